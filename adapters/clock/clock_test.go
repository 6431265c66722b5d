package clock_test

import (
	"testing"
	"time"

	"github.com/zdb/zschema/adapters/clock"
)

func TestReal(t *testing.T) {
	got := clock.Real{}.Now()
	if got.Location() != time.UTC {
		t.Errorf("Now() location = %v, want UTC", got.Location())
	}
	if d := time.Since(got); d < 0 || d > time.Minute {
		t.Errorf("Now() = %v is not the current time", got)
	}
}

func TestStepping(t *testing.T) {
	start := time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)
	c := clock.NewStepping(start, time.Second)

	for i := 0; i < 3; i++ {
		want := start.Add(time.Duration(i) * time.Second)
		if got := c.Now(); !got.Equal(want) {
			t.Errorf("reading %d = %v, want %v", i, got, want)
		}
	}
}
