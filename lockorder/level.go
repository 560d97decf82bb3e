package lockorder

// Level is a position in the fixed total order over shared-resource
// categories. Every lock in the process is bound to exactly one level, and a
// call path may only acquire levels in strictly ascending order. This total
// order is what makes a wait-for cycle, and therefore deadlock, impossible.
type Level int

const (
	// LevelNone is the zero value; no level is held.
	LevelNone Level = iota

	// LevelBattle guards the active battle map.
	LevelBattle

	// LevelUser guards the user cache.
	LevelUser

	// LevelWorld guards the world singleton.
	LevelWorld

	// LevelMessageRead is the shared-read level for per-user message lists.
	LevelMessageRead

	// LevelMessageWrite is the exclusive-write level for per-user message lists.
	LevelMessageWrite

	// LevelStoreBattle guards durable-store access for battle records.
	LevelStoreBattle

	// LevelStoreUser guards durable-store access for user records.
	LevelStoreUser

	// LevelStoreWorld guards durable-store access for the world record.
	LevelStoreWorld

	// LevelStoreMessage guards durable-store access for message lists.
	LevelStoreMessage
)

// String returns the string representation of the level
func (l Level) String() string {
	switch l {
	case LevelNone:
		return "None"
	case LevelBattle:
		return "Battle"
	case LevelUser:
		return "User"
	case LevelWorld:
		return "World"
	case LevelMessageRead:
		return "MessageRead"
	case LevelMessageWrite:
		return "MessageWrite"
	case LevelStoreBattle:
		return "StoreBattle"
	case LevelStoreUser:
		return "StoreUser"
	case LevelStoreWorld:
		return "StoreWorld"
	case LevelStoreMessage:
		return "StoreMessage"
	default:
		return "Unknown"
	}
}
