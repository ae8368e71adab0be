package ids

import (
	"sort"
	"sync"
	"testing"
)

func TestNewProducesSortedUniqueIDs(t *testing.T) {
	const n = 1000
	seen := make(map[string]struct{}, n)
	ordered := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := New()
		if len(id) != 26 {
			t.Fatalf("id %q has length %d", id, len(id))
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
		ordered = append(ordered, id)
	}
	if !sort.StringsAreSorted(ordered) {
		t.Fatal("ids not in creation order")
	}
}

func TestNewIsSafeForConcurrentUse(t *testing.T) {
	const goroutines, perGoroutine = 8, 200
	var (
		mu  sync.Mutex
		all = make(map[string]struct{}, goroutines*perGoroutine)
		wg  sync.WaitGroup
	)
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]string, 0, perGoroutine)
			for i := 0; i < perGoroutine; i++ {
				local = append(local, New())
			}
			mu.Lock()
			for _, id := range local {
				all[id] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(all) != goroutines*perGoroutine {
		t.Fatalf("got %d unique ids, want %d", len(all), goroutines*perGoroutine)
	}
}
