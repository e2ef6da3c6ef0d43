// Package clock abstracts wall time so that deadlines, session TTLs and
// quota dates can be driven deterministically in tests.
package clock

import (
	"sync"
	"time"
)

// Clock abstracts time-related functions for easier testing.
type Clock interface {
	Now() time.Time
}

// Real implements Clock using the standard library. Now is local time since
// quota dates and persisted timestamps are calendar-local.
type Real struct{}

// Now returns the current local time.
func (Real) Now() time.Time {
	return time.Now()
}

// Stepping is a test clock that only moves when told to.
type Stepping struct {
	mu  sync.Mutex
	now time.Time
}

// NewStepping constructs a Stepping clock starting at the supplied time.
func NewStepping(start time.Time) *Stepping {
	return &Stepping{now: start}
}

// Now returns the current stepped time.
func (s *Stepping) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Advance moves the clock forward by d and returns the new time.
func (s *Stepping) Advance(d time.Duration) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d > 0 {
		s.now = s.now.Add(d)
	}
	return s.now
}

// Set jumps the clock to t.
func (s *Stepping) Set(t time.Time) {
	s.mu.Lock()
	s.now = t
	s.mu.Unlock()
}
