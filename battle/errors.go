package battle

import (
	"errors"
	"fmt"
)

// AlreadyInBattleError reports an initiation against a participant who is
// already fighting.
type AlreadyInBattleError struct {
	UserID   int64
	BattleID string
}

// Error returns a human-readable error message.
func (e *AlreadyInBattleError) Error() string {
	return fmt.Sprintf("user %d is already in battle %s", e.UserID, e.BattleID)
}

// IsAlreadyInBattle reports whether err is an AlreadyInBattleError.
func IsAlreadyInBattle(err error) bool {
	var e *AlreadyInBattleError
	return errors.As(err, &e)
}

// NoShipError reports a participant without a ship.
type NoShipError struct {
	UserID int64
}

// Error returns a human-readable error message.
func (e *NoShipError) Error() string {
	return fmt.Sprintf("user %d has no ship", e.UserID)
}

// IsNoShip reports whether err is a NoShipError.
func IsNoShip(err error) bool {
	var e *NoShipError
	return errors.As(err, &e)
}

// OutOfRangeError reports participants beyond the engagement range.
type OutOfRangeError struct {
	Distance float64
	MaxRange float64
}

// Error returns a human-readable error message.
func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("target is out of range: distance %.1f exceeds %.1f", e.Distance, e.MaxRange)
}

// IsOutOfRange reports whether err is an OutOfRangeError.
func IsOutOfRange(err error) bool {
	var e *OutOfRangeError
	return errors.As(err, &e)
}

// NoWeaponsError reports an attacker without any armed weapon.
type NoWeaponsError struct {
	UserID int64
}

// Error returns a human-readable error message.
func (e *NoWeaponsError) Error() string {
	return fmt.Sprintf("user %d has no weapons equipped", e.UserID)
}

// IsNoWeapons reports whether err is a NoWeaponsError.
func IsNoWeapons(err error) bool {
	var e *NoWeaponsError
	return errors.As(err, &e)
}

// EndedError reports an operation against a battle that already resolved.
type EndedError struct {
	BattleID string
}

// Error returns a human-readable error message.
func (e *EndedError) Error() string {
	return fmt.Sprintf("battle %s has already ended", e.BattleID)
}

// IsEnded reports whether err is an EndedError.
func IsEnded(err error) bool {
	var e *EndedError
	return errors.As(err, &e)
}
