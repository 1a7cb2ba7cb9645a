// Package settings holds the process-wide input device selection. It is
// never written to disk.
package settings

import (
	"fmt"
	"sync"

	"github.com/petems/notetray/internal/audio"
)

// Store is the selected input device.
type Store struct {
	mu       sync.RWMutex
	device   audio.AudioDevice
	selected bool
}

func New() *Store {
	return &Store{}
}

// NewFromDefault initializes a store with the host default input.
func NewFromDefault(reg *audio.Registry) (*Store, error) {
	s := New()
	dev, err := reg.DefaultInputDevice()
	if err != nil {
		return s, err
	}
	s.Select(dev)
	return s, nil
}

// Select overwrites the selection immediately.
func (s *Store) Select(device audio.AudioDevice) {
	s.mu.Lock()
	s.device = device
	s.selected = true
	s.mu.Unlock()
}

// Current returns the selected device, or ErrDeviceUnavailable when
// nothing was ever selected.
func (s *Store) Current() (audio.AudioDevice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.selected {
		return audio.AudioDevice{}, fmt.Errorf("%w: no input device selected", audio.ErrDeviceUnavailable)
	}
	return s.device, nil
}
