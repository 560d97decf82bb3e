package uniqueid

import (
	"github.com/google/uuid"
)

// UniqueId returns a new globally unique identifier string.
// Used for battle and message ids.
func UniqueId() string {
	return uuid.NewString()
}
