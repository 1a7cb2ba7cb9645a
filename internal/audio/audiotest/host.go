// Package audiotest provides an in-memory audio host for tests.
package audiotest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/petems/notetray/internal/audio"
)

// Host is a fake audio.Host. Its device list and default can be changed
// between calls to simulate plug and unplug.
type Host struct {
	mu           sync.Mutex
	devices      []audio.HostDevice
	defaultInput int
	hasDefault   bool
	listErr      error
	openErr      error
	startErr     error
	closeBlock   chan struct{}
	streams      []*Stream
	opened       []int
}

// NewHost returns a host exposing devices, with no default input.
func NewHost(devices ...audio.HostDevice) *Host {
	return &Host{devices: devices}
}

func (h *Host) SetDevices(devices ...audio.HostDevice) {
	h.mu.Lock()
	h.devices = devices
	h.mu.Unlock()
}

func (h *Host) SetDefaultInput(index int) {
	h.mu.Lock()
	h.defaultInput = index
	h.hasDefault = true
	h.mu.Unlock()
}

func (h *Host) ClearDefaultInput() {
	h.mu.Lock()
	h.hasDefault = false
	h.mu.Unlock()
}

func (h *Host) SetListError(err error) {
	h.mu.Lock()
	h.listErr = err
	h.mu.Unlock()
}

// SetOpenError makes OpenInput fail, as when the device is in use.
func (h *Host) SetOpenError(err error) {
	h.mu.Lock()
	h.openErr = err
	h.mu.Unlock()
}

// SetStartError makes Stream.Start fail on streams opened afterwards.
func (h *Host) SetStartError(err error) {
	h.mu.Lock()
	h.startErr = err
	h.mu.Unlock()
}

// BlockClose makes Stream.Close hang until the returned func is called.
func (h *Host) BlockClose() (release func()) {
	ch := make(chan struct{})
	h.mu.Lock()
	h.closeBlock = ch
	h.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (h *Host) Devices() ([]audio.HostDevice, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listErr != nil {
		return nil, h.listErr
	}
	return append([]audio.HostDevice(nil), h.devices...), nil
}

func (h *Host) DefaultInputIndex() (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.hasDefault {
		return 0, errors.New("no default input device")
	}
	return h.defaultInput, nil
}

func (h *Host) OpenInput(index int, params audio.StreamParams, deliver func(in []float32)) (audio.Stream, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.openErr != nil {
		return nil, h.openErr
	}
	found := false
	for _, d := range h.devices {
		if d.Index == index {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("device index %d out of range", index)
	}
	s := &Stream{
		Index:      index,
		Params:     params,
		deliver:    deliver,
		startErr:   h.startErr,
		closeBlock: h.closeBlock,
	}
	h.streams = append(h.streams, s)
	h.opened = append(h.opened, index)
	return s, nil
}

func (h *Host) Close() error { return nil }

// Opened returns the device indexes passed to OpenInput, in order.
func (h *Host) Opened() []int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]int(nil), h.opened...)
}

// LastStream returns the most recently opened stream, or nil.
func (h *Host) LastStream() *Stream {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.streams) == 0 {
		return nil
	}
	return h.streams[len(h.streams)-1]
}

// Stream is a fake audio.Stream. Deliver plays the role of the driver
// thread.
type Stream struct {
	Index  int
	Params audio.StreamParams

	deliver    func(in []float32)
	startErr   error
	closeBlock chan struct{}

	mu      sync.Mutex
	started bool
	closed  bool
}

func (s *Stream) Start() error {
	if s.startErr != nil {
		return s.startErr
	}
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	return nil
}

func (s *Stream) Close() error {
	if s.closeBlock != nil {
		<-s.closeBlock
	}
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *Stream) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Deliver invokes the callback with buf, reusing buf like a driver
// would. It calls through even after Close so tests can exercise late
// callbacks.
func (s *Stream) Deliver(buf []float32) {
	s.deliver(buf)
}

// DeliverFrames delivers a chunk of frames*channels samples, each set
// to value.
func (s *Stream) DeliverFrames(frames int, value float32) {
	buf := make([]float32, frames*s.Params.Channels)
	for i := range buf {
		buf[i] = value
	}
	s.deliver(buf)
}
