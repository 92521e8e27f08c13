package control

import (
	"encoding/json"
	"sync"
)

// pendingSlot holds the reply channel of the one control request currently
// awaiting a UI answer. It is deliberately single-occupancy: install
// replaces the occupant without notifying it.
type pendingSlot struct {
	mu sync.Mutex
	ch chan json.RawMessage
}

// install puts a fresh reply channel in the slot and reports whether a
// pending request was displaced.
func (s *pendingSlot) install() (chan json.RawMessage, bool) {
	ch := make(chan json.RawMessage, 1)

	s.mu.Lock()
	defer s.mu.Unlock()

	displaced := s.ch != nil
	s.ch = ch
	return ch, displaced
}

// take removes and returns the occupant, or nil if the slot is empty.
func (s *pendingSlot) take() chan json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := s.ch
	s.ch = nil
	return ch
}

// release clears the slot if ch still occupies it.
func (s *pendingSlot) release(ch chan json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ch == ch {
		s.ch = nil
	}
}

// occupied reports whether a request is waiting.
func (s *pendingSlot) occupied() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch != nil
}
