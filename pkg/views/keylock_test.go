package views

import (
	"sync"
	"testing"
)

func TestKeyLock(t *testing.T) {
	k := newKeyLock()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  = map[string]int{}
		maxSeen int
	)
	for i := 0; i < 64; i++ {
		key := "a"
		if i%2 == 0 {
			key = "b"
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			k.Lock(key)
			defer k.Unlock(key)

			mu.Lock()
			active[key]++
			maxSeen = max(maxSeen, active[key])
			mu.Unlock()

			mu.Lock()
			active[key]--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Errorf("expected one holder per key at a time, saw %d", maxSeen)
	}
	if k.len() != 0 {
		t.Errorf("expected all entries to be released, got %d", k.len())
	}
}

func TestKeyLockIndependentKeys(t *testing.T) {
	k := newKeyLock()
	k.Lock("a")

	done := make(chan struct{})
	go func() {
		k.Lock("b")
		k.Unlock("b")
		close(done)
	}()
	<-done

	if k.len() != 1 {
		t.Errorf("expected only the held key to remain, got %d", k.len())
	}
	k.Unlock("a")
}
