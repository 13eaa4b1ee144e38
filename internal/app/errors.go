package app

import "errors"

var (
	// ErrRoleMismatch rejects a queue action claimed under the wrong role.
	ErrRoleMismatch = errors.New("role mismatch")
	// ErrAlreadyActive rejects join/announce while queued or in a room.
	ErrAlreadyActive = errors.New("already queued or in a call")
	// ErrInvalidMatch rejects pairing two connections of the same account.
	ErrInvalidMatch = errors.New("cannot match an account with itself")
	// ErrRoomNotFound rejects signaling or end-call for an unknown or
	// no longer active room.
	ErrRoomNotFound = errors.New("room not found")
	// ErrAlreadyCompleted is returned for a duplicate end-call.
	ErrAlreadyCompleted = errors.New("session already completed")
	// ErrIdentity covers directory lookup failures; treated like a role
	// mismatch by callers.
	ErrIdentity = errors.New("identity resolution failed")
)
