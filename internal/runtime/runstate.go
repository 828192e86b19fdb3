package runtime

import "sync"

// RunState holds the process-wide pause/abort flags for one run. It is
// created at experiment start, mutated only by the input controller, read by
// the trial machine at every phase boundary, and torn down at experiment
// end. After Close, reads report aborted and writes are ignored.
//
// The run itself is single-threaded; the mutex exists because the monitor
// server reads these flags from its own goroutine.
type RunState struct {
	mu      sync.Mutex
	paused  bool
	aborted bool
	closed  bool
}

// NewRunState returns a fresh, running state.
func NewRunState() *RunState {
	return &RunState{}
}

// Paused reports whether the run is currently paused.
func (s *RunState) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && s.paused
}

// Aborted reports whether the run has been aborted. Abort is terminal.
// A closed state reads as aborted so late readers stop immediately.
func (s *RunState) Aborted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed || s.aborted
}

// TogglePause flips the paused flag and returns the new value.
func (s *RunState) TogglePause() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.aborted {
		return false
	}
	s.paused = !s.paused
	return s.paused
}

// Abort marks the run aborted. Irreversible; pause is cleared so nothing
// stays blocked waiting for a resume that cannot come.
func (s *RunState) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.aborted = true
	s.paused = false
}

// Close tears the state down at experiment end.
func (s *RunState) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
