package hub

import (
	"errors"
	"fmt"
)

// Error taxonomy for hub operations. Callers distinguish classes with
// errors.Is; PersistenceError additionally wraps the storage failure.
var (
	// ErrAuthentication means the connection credential was rejected. The
	// connection attempt is refused and no state is mutated.
	ErrAuthentication = errors.New("authentication failed")

	// ErrNotAMember means the user is not an authoritative member of the room.
	ErrNotAMember = errors.New("not a member of this room")

	// ErrPermission means the operation is not allowed for this user.
	ErrPermission = errors.New("permission denied")

	// ErrValidation means the input was malformed or out of bounds.
	ErrValidation = errors.New("validation failed")

	// ErrRoomNotFound means the target room does not exist.
	ErrRoomNotFound = errors.New("room not found")

	// ErrNotInConference means the sender is not currently subscribed to the
	// conference room it is signaling in.
	ErrNotInConference = errors.New("not in conference")

	// ErrTargetOffline is a soft failure: the signaling target has no live
	// connection. The peer may reconnect and re-negotiate.
	ErrTargetOffline = errors.New("target user offline")
)

// PersistenceError wraps a storage failure. The request fails, no partial
// fanout happens, and the hub itself keeps running.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func persistenceErr(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

// IsPersistence reports whether err is (or wraps) a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

// IsRetryable reports whether the client should treat err as transient and
// retry the operation later.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTargetOffline) || IsPersistence(err)
}
