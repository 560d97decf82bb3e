package model

import "fmt"

// Kind identifies one entity kind held by the cache layer and the durable
// store. The set is closed; code switching on Kind must handle every value
// and reject anything else.
type Kind string

const (
	KindBattle  Kind = "battle"
	KindUser    Kind = "user"
	KindWorld   Kind = "world"
	KindMessage Kind = "message"
)

// Kinds lists every entity kind in flush order (ascending lock level).
func Kinds() []Kind {
	return []Kind{KindBattle, KindUser, KindWorld, KindMessage}
}

// Validate returns an error for a kind outside the closed set.
func (k Kind) Validate() error {
	switch k {
	case KindBattle, KindUser, KindWorld, KindMessage:
		return nil
	default:
		return fmt.Errorf("unknown entity kind: %q", string(k))
	}
}

// String returns the kind name.
func (k Kind) String() string {
	return string(k)
}
