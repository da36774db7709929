// Package syncutil provides the small concurrency helpers the
// subscription-manager tools share: lazily constructed singletons,
// run-once gates that can be re-armed by tests, and a mutex whose lock
// state can be observed.
package syncutil

import "sync"

// Lazy holds a value constructed on first use. All callers of Get see the
// same instance until Reset discards it. The zero value is not usable;
// create one with NewLazy.
type Lazy[T any] struct {
	mu    sync.Mutex
	build func() T
	value T
	done  bool
}

// NewLazy returns a Lazy that constructs its value with build.
func NewLazy[T any](build func() T) *Lazy[T] {
	return &Lazy[T]{build: build}
}

// Get returns the value, constructing it on the first call.
func (l *Lazy[T]) Get() T {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.done {
		l.value = l.build()
		l.done = true
	}
	return l.value
}

// Reset discards the value so the next Get constructs a fresh one. Meant
// for tests that need a clean instance; production code has no reason to
// call it.
func (l *Lazy[T]) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	var zero T
	l.value = zero
	l.done = false
}

// Gate lets a function run only once. Unlike sync.Once it can be re-armed
// with Reset, and a call that fails still counts as the one run. The zero
// value is ready to use.
type Gate struct {
	mu   sync.Mutex
	done bool
}

// Do runs fn if the gate has not fired yet and returns fn's error. Later
// calls do nothing and return nil. The gate fires even when fn fails, so a
// second attempt must go through Reset first.
func (g *Gate) Do(fn func() error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done {
		return nil
	}
	g.done = true
	return fn()
}

// Done reports whether the gate has fired.
func (g *Gate) Done() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.done
}

// Reset re-arms the gate so the next Do runs its function again. Meant for
// tests.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.done = false
}

// TrackedMutex is a mutex whose held state can be queried and whose Unlock
// tolerates not being locked. Use it where code paths may release a lock
// they only conditionally acquired, such as cleanup handlers that run on
// both the locked and unlocked path.
type TrackedMutex struct {
	mu      sync.Mutex
	stateMu sync.Mutex
	locked  bool
}

// Lock acquires the mutex, blocking until it is available.
func (m *TrackedMutex) Lock() {
	m.mu.Lock()
	m.stateMu.Lock()
	m.locked = true
	m.stateMu.Unlock()
}

// Unlock releases the mutex. Releasing a mutex that is not held is a
// no-op, not a panic.
func (m *TrackedMutex) Unlock() {
	m.stateMu.Lock()
	wasLocked := m.locked
	m.locked = false
	m.stateMu.Unlock()
	if wasLocked {
		m.mu.Unlock()
	}
}

// Locked reports whether the mutex is currently held.
func (m *TrackedMutex) Locked() bool {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.locked
}
