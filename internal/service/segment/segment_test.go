package segment

import (
	"sync"
	"testing"
)

func TestGenerator_Next(t *testing.T) {
	gen := New()

	id1 := gen.Next("sess-123")
	if id1 != "sess-123-utt-1" {
		t.Errorf("expected 'sess-123-utt-1', got %s", id1)
	}

	id2 := gen.Next("sess-123")
	if id2 != "sess-123-utt-2" {
		t.Errorf("expected 'sess-123-utt-2', got %s", id2)
	}

	if gen.Count() != 2 {
		t.Errorf("expected count 2, got %d", gen.Count())
	}
}

func TestGenerator_IndependentPerSession(t *testing.T) {
	a, b := New(), New()
	a.Next("a")
	a.Next("a")

	if got := b.Next("b"); got != "b-utt-1" {
		t.Errorf("expected fresh counter per generator, got %s", got)
	}
}

func TestGenerator_ThreadSafety(t *testing.T) {
	gen := New()
	numGoroutines := 100
	resultsPerGoroutine := 10

	var wg sync.WaitGroup
	results := make(chan string, numGoroutines*resultsPerGoroutine)

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < resultsPerGoroutine; j++ {
				results <- gen.Next("sess-concurrent")
			}
		}()
	}

	wg.Wait()
	close(results)

	seen := make(map[string]bool)
	for id := range results {
		if seen[id] {
			t.Errorf("duplicate utterance ID generated: %s", id)
		}
		seen[id] = true
	}

	expectedCount := numGoroutines * resultsPerGoroutine
	if len(seen) != expectedCount {
		t.Errorf("expected %d unique utterance IDs, got %d", expectedCount, len(seen))
	}
}
