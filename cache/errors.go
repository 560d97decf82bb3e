package cache

import (
	"errors"
	"fmt"

	"github.com/driftmark/driftmark/model"
)

// NotFoundError reports an entity absent from both the cache and the durable
// store.
type NotFoundError struct {
	Kind model.Kind
	ID   string
}

// Error returns a human-readable error message.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(kind model.Kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// IsNotFound reports whether err indicates a missing entity.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}
