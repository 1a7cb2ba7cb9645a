package audio

import "sync"

// Slot is the process-wide recording slot. At most one session holds it
// at a time.
type Slot struct {
	mu     sync.Mutex
	active *Session
}

func NewSlot() *Slot {
	return &Slot{}
}

func (sl *Slot) acquire(s *Session) error {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.active != nil && sl.active != s {
		return ErrSessionConflict
	}
	sl.active = s
	return nil
}

func (sl *Slot) release(s *Session) {
	sl.mu.Lock()
	if sl.active == s {
		sl.active = nil
	}
	sl.mu.Unlock()
}

// Active returns the session currently holding the slot, or nil.
func (sl *Slot) Active() *Session {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.active
}
