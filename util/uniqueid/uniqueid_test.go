package uniqueid

import (
	"testing"

	"github.com/google/uuid"
)

func TestUniqueIdIsValidUUID(t *testing.T) {
	id := UniqueId()
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("UniqueId() returned invalid UUID %q: %v", id, err)
	}
}

func TestUniqueIdIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := UniqueId()
		if seen[id] {
			t.Fatalf("UniqueId() returned duplicate id %q", id)
		}
		seen[id] = true
	}
}
