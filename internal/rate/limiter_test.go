package rate

import (
	"fmt"
	"testing"
	"time"
)

func TestAllowWithinLimit(t *testing.T) {
	l := NewMemory()
	for i := 0; i < 3; i++ {
		ok, _ := l.Allow("k", 3, time.Minute)
		if !ok {
			t.Fatalf("event %d should be allowed", i+1)
		}
	}
	ok, retry := l.Allow("k", 3, time.Minute)
	if ok {
		t.Fatal("fourth event should be denied")
	}
	if retry <= 0 || retry > time.Minute {
		t.Fatalf("unreasonable retry %v", retry)
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l := NewMemory()
	if ok, _ := l.Allow("a", 1, time.Minute); !ok {
		t.Fatal("first event on a denied")
	}
	if ok, _ := l.Allow("a", 1, time.Minute); ok {
		t.Fatal("second event on a allowed")
	}
	if ok, _ := l.Allow("b", 1, time.Minute); !ok {
		t.Fatal("fresh key b denied")
	}
}

func TestWindowResets(t *testing.T) {
	l := NewMemory()
	if ok, _ := l.Allow("k", 1, 10*time.Millisecond); !ok {
		t.Fatal("first event denied")
	}
	if ok, _ := l.Allow("k", 1, 10*time.Millisecond); ok {
		t.Fatal("second event allowed inside the window")
	}
	time.Sleep(20 * time.Millisecond)
	if ok, _ := l.Allow("k", 1, 10*time.Millisecond); !ok {
		t.Fatal("event after reset denied")
	}
}

func TestPruneCapsTrackedKeys(t *testing.T) {
	l := NewMemory()
	for i := 0; i < maxTrackedKeys; i++ {
		l.Allow(fmt.Sprintf("k%d", i), 1, time.Nanosecond)
	}
	time.Sleep(time.Millisecond)
	// Everything above has expired; the next insert triggers a prune.
	l.Allow("fresh", 1, time.Minute)
	l.mu.Lock()
	n := len(l.windows)
	l.mu.Unlock()
	if n > 1 {
		t.Fatalf("expected expired windows to be pruned, %d remain", n)
	}
}
