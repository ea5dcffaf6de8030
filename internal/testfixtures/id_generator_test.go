package testfixtures

import (
	"sync"
	"testing"
)

func TestIDGeneratorIssuesSequentialMeetingIDs(t *testing.T) {
	gen := NewIDGenerator("")

	first := gen.Next()
	second := gen.NextFunc()()

	if first != "meeting-1" || second != "meeting-2" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}
}

func TestIDGeneratorIsSafeForConcurrentUse(t *testing.T) {
	gen := NewIDGenerator("room")

	var wg sync.WaitGroup
	seen := make(chan string, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- gen.Next()
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[string]struct{})
	for id := range seen {
		unique[id] = struct{}{}
	}
	if len(unique) != 50 {
		t.Fatalf("expected 50 distinct ids, got %d", len(unique))
	}
}
