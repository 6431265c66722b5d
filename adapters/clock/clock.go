// Package clock provides ports.Clock implementations.
package clock

import (
	"sync"
	"time"

	"github.com/zdb/zschema/ports"
)

// Real is the wall clock, in UTC.
type Real struct{}

func (Real) Now() time.Time {
	return time.Now().UTC()
}

// Stepping is a deterministic clock for tests: each call to Now returns
// the previous time plus step.
type Stepping struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

// NewStepping creates a clock whose first reading is start.
func NewStepping(start time.Time, step time.Duration) *Stepping {
	return &Stepping{next: start, step: step}
}

func (s *Stepping) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.next
	s.next = s.next.Add(s.step)
	return t
}

var (
	_ ports.Clock = Real{}
	_ ports.Clock = (*Stepping)(nil)
)
