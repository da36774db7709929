package syncutil

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestLazyGet(t *testing.T) {
	var builds int32
	lazy := NewLazy(func() *int32 {
		n := atomic.AddInt32(&builds, 1)
		return &n
	})

	first := lazy.Get()
	second := lazy.Get()

	if first != second {
		t.Error("Get() returned different instances")
	}
	if got := atomic.LoadInt32(&builds); got != 1 {
		t.Errorf("constructor ran %d times, want 1", got)
	}
}

func TestLazyConcurrentGet(t *testing.T) {
	var builds int32
	lazy := NewLazy(func() int {
		atomic.AddInt32(&builds, 1)
		return 42
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := lazy.Get(); got != 42 {
				t.Errorf("Get() = %d, want 42", got)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&builds); got != 1 {
		t.Errorf("constructor ran %d times, want 1", got)
	}
}

func TestLazyReset(t *testing.T) {
	var builds int
	lazy := NewLazy(func() int {
		builds++
		return builds
	})

	if got := lazy.Get(); got != 1 {
		t.Fatalf("Get() = %d, want 1", got)
	}
	lazy.Reset()
	if got := lazy.Get(); got != 2 {
		t.Errorf("Get() after Reset() = %d, want 2", got)
	}
}

func TestGateDo(t *testing.T) {
	var gate Gate
	var runs int

	for i := 0; i < 3; i++ {
		err := gate.Do(func() error {
			runs++
			return nil
		})
		if err != nil {
			t.Fatalf("Do() unexpected error = %v", err)
		}
	}

	if runs != 1 {
		t.Errorf("function ran %d times, want 1", runs)
	}
	if !gate.Done() {
		t.Error("Done() = false after Do()")
	}
}

func TestGateDoFiresEvenOnError(t *testing.T) {
	var gate Gate
	var runs int
	boom := errors.New("boom")

	if err := gate.Do(func() error {
		runs++
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("Do() error = %v, want %v", err, boom)
	}

	// The failure consumed the single run.
	if err := gate.Do(func() error {
		runs++
		return nil
	}); err != nil {
		t.Fatalf("Do() unexpected error = %v", err)
	}
	if runs != 1 {
		t.Errorf("function ran %d times, want 1", runs)
	}
}

func TestGateReset(t *testing.T) {
	var gate Gate
	var runs int
	fn := func() error {
		runs++
		return nil
	}

	if err := gate.Do(fn); err != nil {
		t.Fatal(err)
	}
	gate.Reset()
	if gate.Done() {
		t.Error("Done() = true after Reset()")
	}
	if err := gate.Do(fn); err != nil {
		t.Fatal(err)
	}
	if runs != 2 {
		t.Errorf("function ran %d times, want 2", runs)
	}
}

func TestGateConcurrentDo(t *testing.T) {
	var gate Gate
	var runs int32

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = gate.Do(func() error {
				atomic.AddInt32(&runs, 1)
				return nil
			})
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&runs); got != 1 {
		t.Errorf("function ran %d times, want 1", got)
	}
}

func TestTrackedMutex(t *testing.T) {
	var m TrackedMutex

	if m.Locked() {
		t.Error("Locked() = true on fresh mutex")
	}

	m.Lock()
	if !m.Locked() {
		t.Error("Locked() = false while held")
	}

	m.Unlock()
	if m.Locked() {
		t.Error("Locked() = true after Unlock()")
	}
}

func TestTrackedMutexTolerantUnlock(t *testing.T) {
	var m TrackedMutex

	// Must not panic.
	m.Unlock()
	m.Unlock()

	m.Lock()
	m.Unlock()
	m.Unlock()

	if m.Locked() {
		t.Error("Locked() = true after unlocks")
	}

	// Still usable afterwards.
	m.Lock()
	if !m.Locked() {
		t.Error("Locked() = false after relock")
	}
	m.Unlock()
}

func TestTrackedMutexExcludes(t *testing.T) {
	var m TrackedMutex
	var counter int

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Lock()
				counter++
				m.Unlock()
			}
		}()
	}
	wg.Wait()

	if counter != 800 {
		t.Errorf("counter = %d, want 800", counter)
	}
}
