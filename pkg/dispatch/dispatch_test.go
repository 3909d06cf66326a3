package dispatch

import (
	"sync"
	"testing"
)

func TestPushPopOnce(t *testing.T) {
	l := NewList[func() int]()
	tok := NewToken()

	id := l.Push(func() int { return 7 }, tok)

	cb, ok := l.Pop(id)
	if !ok {
		t.Fatal("Pop() returned false for a live entry")
	}
	if got := cb(); got != 7 {
		t.Errorf("callback = %d, want 7", got)
	}

	if _, ok := l.Pop(id); ok {
		t.Error("second Pop() on the same id returned a callback")
	}
}

func TestPopUnknownID(t *testing.T) {
	l := NewList[func()]()
	if _, ok := l.Pop(999); ok {
		t.Error("Pop() of an unknown id returned a callback")
	}
}

func TestCancelBeforePopDropsEntry(t *testing.T) {
	l := NewList[func()]()
	tok := NewToken()

	id := l.Push(func() { t.Error("cancelled callback was invoked") }, tok)
	tok.Cancel()

	if _, ok := l.Pop(id); ok {
		t.Error("Pop() yielded a cancelled entry")
	}
	// The cancelled entry is removed, not left behind.
	if l.Len() != 0 {
		t.Errorf("Len() = %d after popping cancelled entry, want 0", l.Len())
	}
}

func TestTokenCancellationIsIrreversible(t *testing.T) {
	tok := NewToken()
	if tok.Cancelled() {
		t.Fatal("fresh token reads as cancelled")
	}
	tok.Cancel()
	tok.Cancel()
	if !tok.Cancelled() {
		t.Error("token does not read as cancelled after Cancel")
	}
}

func TestZeroTokenNeverCancelled(t *testing.T) {
	var tok Token
	tok.Cancel()
	if tok.Cancelled() {
		t.Error("zero token reads as cancelled")
	}
}

func TestPopMany(t *testing.T) {
	l := NewList[int]()
	keep := l.Push(1, NewToken())
	cancelled := NewToken()
	dropped := l.Push(2, cancelled)
	other := l.Push(3, NewToken())
	cancelled.Cancel()

	got := l.PopMany([]ID{keep, dropped, other, 12345})
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("PopMany() = %v, want [1 3]", got)
	}
}

func TestDistinctIDs(t *testing.T) {
	l := NewList[int]()
	seen := make(map[ID]bool)
	for i := 0; i < 100; i++ {
		id := l.Push(i, Token{})
		if seen[id] {
			t.Fatalf("Push() returned duplicate id %d", id)
		}
		seen[id] = true
	}
}

// TestConcurrentCancelAndPop exercises the cancel-vs-pop race: whatever the
// interleaving, the callback runs at most once and the entry is removed.
func TestConcurrentCancelAndPop(t *testing.T) {
	for i := 0; i < 200; i++ {
		l := NewList[func()]()
		tok := NewToken()
		var calls int
		id := l.Push(func() { calls++ }, tok)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			tok.Cancel()
		}()
		go func() {
			defer wg.Done()
			if cb, ok := l.Pop(id); ok {
				cb()
			}
		}()
		wg.Wait()

		if calls > 1 {
			t.Fatalf("callback invoked %d times", calls)
		}
		if _, ok := l.Pop(id); ok {
			t.Fatal("entry survived a concurrent cancel/pop")
		}
	}
}
