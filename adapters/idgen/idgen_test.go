package idgen_test

import (
	"regexp"
	"sync"
	"testing"

	"github.com/zdb/zschema/adapters/idgen"
)

func TestUUID(t *testing.T) {
	uuidRegex := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	g := idgen.UUID{}
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := g.New()
		if !uuidRegex.MatchString(id) {
			t.Fatalf("ID %s doesn't match UUID v4 format", id)
		}
		if seen[id] {
			t.Fatalf("duplicate ID generated: %s", id)
		}
		seen[id] = true
	}
}

func TestSequential(t *testing.T) {
	tests := []struct {
		prefix string
		calls  int
		want   string
	}{
		{"snap_", 1, "snap_1"},
		{"snap_", 3, "snap_3"},
		{"", 1, "1"},
		{"n_", 1001, "n_1001"},
	}
	for _, tt := range tests {
		g := idgen.NewSequential(tt.prefix)
		var id string
		for i := 0; i < tt.calls; i++ {
			id = g.New()
		}
		if id != tt.want {
			t.Errorf("NewSequential(%q) after %d calls = %s, want %s", tt.prefix, tt.calls, id, tt.want)
		}
	}
}

func TestSequentialConcurrent(t *testing.T) {
	g := idgen.NewSequential("c_")
	var mu sync.Mutex
	seen := make(map[string]bool)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := g.New()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != 1000 {
		t.Errorf("expected 1000 unique IDs, got %d", len(seen))
	}
}
