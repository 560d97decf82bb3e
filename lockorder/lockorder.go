// Package lockorder provides deadlock-free locking over a fixed total order
// of shared-resource categories.
//
// Every lock is bound to a Level, and every call path carries a Context
// recording the levels it holds. Acquire succeeds only when the requested
// level is strictly greater than every level already held (or is already
// held, for nested calls). Because every path in the process obeys the same
// total order, no two paths can ever wait on each other in a cycle.
//
// Usage Pattern:
//
//	ctx := lockorder.Background()
//	ctx, unlock, err := battleMu.Acquire(ctx)
//	if err != nil {
//		return err
//	}
//	defer unlock()
//	// ... operate while holding the Battle level ...
//
// The unlock function MUST be called exactly once, after every inner level
// acquired from this context has been released. Double release and
// out-of-order release are programmer errors and panic. Prefer the With
// helpers, which guarantee release on every exit path.
//
// There must be exactly one lock per level in a process; the Context tracks
// levels, not lock identities.
package lockorder

import (
	"sync"
)

// Mutex is a mutual-exclusion lock bound to one level, for categories with
// no useful read/write distinction (Battle, User).
type Mutex struct {
	level Level
	mu    sync.Mutex
}

// NewMutex creates a Mutex bound to the given level.
func NewMutex(level Level) *Mutex {
	return &Mutex{level: level}
}

// Level returns the level this lock is bound to.
func (m *Mutex) Level() Level {
	return m.level
}

// Acquire blocks until the lock is held and returns the extended context.
// If the context already holds the level, the same context is returned with
// a no-op unlock (idempotent reuse for nested calls).
func (m *Mutex) Acquire(ctx *Context) (*Context, func(), error) {
	if ctx.Holds(m.level) {
		return ctx, func() {}, nil
	}
	if m.level <= ctx.Max() {
		return nil, nil, NewOrderViolationError(m.level, ctx)
	}

	m.mu.Lock()
	child := newFrame(ctx, m.level, true)
	return child, func() {
		child.pop()
		m.mu.Unlock()
	}, nil
}

// RWMutex is a readers/writer lock bound to a read level and a write level.
// Most categories use the same level for both modes; the message category
// splits them into two adjacent levels. Writer preference (a queued writer
// blocks newly arriving readers) comes from sync.RWMutex.
type RWMutex struct {
	readLevel  Level
	writeLevel Level
	mu         sync.RWMutex
}

// NewRWMutex creates an RWMutex using one level for both read and write mode.
func NewRWMutex(level Level) *RWMutex {
	return &RWMutex{readLevel: level, writeLevel: level}
}

// NewRWMutexSplit creates an RWMutex with distinct read and write levels.
// The read level must be strictly below the write level.
func NewRWMutexSplit(readLevel, writeLevel Level) *RWMutex {
	if readLevel >= writeLevel {
		panic("lockorder: split RWMutex requires readLevel < writeLevel")
	}
	return &RWMutex{readLevel: readLevel, writeLevel: writeLevel}
}

// AcquireRead blocks until a shared hold is granted. A context that already
// holds either mode of this lock reuses its hold without touching the lock.
func (m *RWMutex) AcquireRead(ctx *Context) (*Context, func(), error) {
	if ctx.Holds(m.readLevel) || ctx.HoldsWrite(m.writeLevel) {
		return ctx, func() {}, nil
	}
	if m.readLevel <= ctx.Max() {
		return nil, nil, NewOrderViolationError(m.readLevel, ctx)
	}

	m.mu.RLock()
	child := newFrame(ctx, m.readLevel, false)
	return child, func() {
		child.pop()
		m.mu.RUnlock()
	}, nil
}

// AcquireWrite blocks until an exclusive hold is granted. Upgrading an
// existing read hold is rejected: two paths upgrading concurrently would
// deadlock against each other regardless of level order.
func (m *RWMutex) AcquireWrite(ctx *Context) (*Context, func(), error) {
	if ctx.HoldsWrite(m.writeLevel) {
		return ctx, func() {}, nil
	}
	if ctx.Holds(m.readLevel) {
		return nil, nil, NewUpgradeError(m.writeLevel, ctx)
	}
	if m.writeLevel <= ctx.Max() {
		return nil, nil, NewOrderViolationError(m.writeLevel, ctx)
	}

	m.mu.Lock()
	child := newFrame(ctx, m.writeLevel, true)
	return child, func() {
		child.pop()
		m.mu.Unlock()
	}, nil
}

// newFrame extends ctx with a newly acquired level.
func newFrame(ctx *Context, level Level, write bool) *Context {
	ctx.children++
	return &Context{parent: ctx, level: level, write: write}
}

// pop validates and retires a frame on release.
func (ctx *Context) pop() {
	if ctx.released {
		panic("lockorder: level " + ctx.level.String() + " released twice")
	}
	if ctx.children != 0 {
		panic("lockorder: level " + ctx.level.String() + " released while inner levels still held")
	}
	ctx.released = true
	ctx.parent.children--
}

// With acquires m, runs fn with the extended context, and releases on every
// exit path including panics.
func With(ctx *Context, m *Mutex, fn func(*Context) error) error {
	inner, unlock, err := m.Acquire(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	return fn(inner)
}

// WithRead acquires a shared hold on m for the duration of fn.
func WithRead(ctx *Context, m *RWMutex, fn func(*Context) error) error {
	inner, unlock, err := m.AcquireRead(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	return fn(inner)
}

// WithWrite acquires an exclusive hold on m for the duration of fn.
func WithWrite(ctx *Context, m *RWMutex, fn func(*Context) error) error {
	inner, unlock, err := m.AcquireWrite(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	return fn(inner)
}
