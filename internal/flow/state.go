package flow

import (
	"sync"
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusSigning Status = "signing"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// State is the per-page flow state: submission status plus the activity log. It is read by
// pollers while a run mutates it, so every access is locked.
type State struct {
	mu       sync.RWMutex
	status   Status
	log      []string
	attempts int
}

func NewState() *State {
	return &State{
		status: StatusIdle,
	}
}

func (s *State) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Logs returns a copy of the activity log.
func (s *State) Logs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.log))
	copy(out, s.log)
	return out
}

func (s *State) Attempts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attempts
}

func (s *State) Append(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = append(s.log, msg)
}

// Begin starts an attempt. Allowed from idle and, as a manual retry, from error.
func (s *State) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.status {
	case StatusSigning:
		return ErrInProgress
	case StatusSuccess:
		return ErrAlreadyComplete
	}
	s.status = StatusSigning
	s.attempts++
	return nil
}

// finish ends the running attempt; a finished attempt is never moved again.
func (s *State) finish(to Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusSigning {
		return
	}
	s.status = to
}
