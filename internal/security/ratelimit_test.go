package security

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeCounter counts in memory and can be forced to fail.
type fakeCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (f *fakeCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	if f.counts == nil {
		f.counts = make(map[string]int64)
	}
	f.counts[key]++
	return f.counts[key], nil
}

func TestLimiterAllowUpToLimit(t *testing.T) {
	l := NewLimiter(&fakeCounter{}, 3, time.Minute)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		if !l.Allow(ctx, "user-a", "tab_hidden") {
			t.Fatalf("event %d blocked, want allowed up to 3", i)
		}
	}
	if l.Allow(ctx, "user-a", "tab_hidden") {
		t.Error("fourth event allowed, want blocked")
	}
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	l := NewLimiter(&fakeCounter{}, 1, time.Minute)
	ctx := context.Background()

	if !l.Allow(ctx, "user-a", "tab_hidden") {
		t.Fatal("first event for user-a blocked")
	}
	if l.Allow(ctx, "user-a", "tab_hidden") {
		t.Error("second event for same user+type allowed, want blocked")
	}
	// A different event type and a different user each get their own window.
	if !l.Allow(ctx, "user-a", "devtools_open") {
		t.Error("different event type blocked, want allowed")
	}
	if !l.Allow(ctx, "user-b", "tab_hidden") {
		t.Error("different user blocked, want allowed")
	}
}

func TestLimiterFailsOpen(t *testing.T) {
	l := NewLimiter(&fakeCounter{err: errors.New("redis down")}, 1, time.Minute)
	for i := 0; i < 5; i++ {
		if !l.Allow(context.Background(), "user-a", "tab_hidden") {
			t.Fatal("limiter blocked while counter is failing, want fail open")
		}
	}
}

func TestLimiterDisabled(t *testing.T) {
	l := NewLimiter(&fakeCounter{}, 0, time.Minute)
	for i := 0; i < 100; i++ {
		if !l.Allow(context.Background(), "user-a", "tab_hidden") {
			t.Fatal("disabled limiter blocked an event")
		}
	}

	l = NewLimiter(nil, 10, time.Minute)
	if !l.Allow(context.Background(), "user-a", "tab_hidden") {
		t.Error("limiter without a counter blocked an event")
	}
}
