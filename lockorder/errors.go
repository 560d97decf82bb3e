package lockorder

import (
	"errors"
	"fmt"
)

// OrderViolationError reports an attempt to acquire a level that is not
// strictly greater than every level already held, or to upgrade a read hold
// to a write hold on the same lock. Both reintroduce the possibility of a
// cross-call-path wait cycle and are never silently permitted.
type OrderViolationError struct {
	Attempted Level
	Held      []Level
	Upgrade   bool
}

// Error returns a human-readable error message.
func (e *OrderViolationError) Error() string {
	if e.Upgrade {
		return fmt.Sprintf("lock order violation: read-to-write upgrade on level %s while holding %v", e.Attempted, e.Held)
	}
	return fmt.Sprintf("lock order violation: cannot acquire level %s while holding %v", e.Attempted, e.Held)
}

// NewOrderViolationError creates a new OrderViolationError.
func NewOrderViolationError(attempted Level, ctx *Context) *OrderViolationError {
	return &OrderViolationError{
		Attempted: attempted,
		Held:      ctx.Levels(),
	}
}

// NewUpgradeError creates an OrderViolationError for a read-to-write upgrade attempt.
func NewUpgradeError(attempted Level, ctx *Context) *OrderViolationError {
	return &OrderViolationError{
		Attempted: attempted,
		Held:      ctx.Levels(),
		Upgrade:   true,
	}
}

// IsOrderViolation reports whether err is a lock order violation.
func IsOrderViolation(err error) bool {
	var e *OrderViolationError
	return errors.As(err, &e)
}

// NotHeldError reports a call into a guarded accessor without the required
// level held. Like an out-of-order acquisition this is a programmer error
// and is never silently permitted.
type NotHeldError struct {
	Required Level
	Write    bool
	Held     []Level
}

// Error returns a human-readable error message.
func (e *NotHeldError) Error() string {
	mode := ""
	if e.Write {
		mode = " in write mode"
	}
	return fmt.Sprintf("lock level %s must be held%s, holding %v", e.Required, mode, e.Held)
}

// NewNotHeldError creates a new NotHeldError.
func NewNotHeldError(required Level, write bool, ctx *Context) *NotHeldError {
	return &NotHeldError{
		Required: required,
		Write:    write,
		Held:     ctx.Levels(),
	}
}

// IsNotHeld reports whether err is a missing-level error.
func IsNotHeld(err error) bool {
	var e *NotHeldError
	return errors.As(err, &e)
}
