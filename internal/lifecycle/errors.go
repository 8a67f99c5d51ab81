// Package lifecycle implements the waste/reservation state machine.
// Every legal transition of a listing and its reservation runs through
// the Engine, which performs the state change together with its side
// effects (score accrual, audit append) in one atomic unit of work.
package lifecycle

import (
	"errors"
	"fmt"
)

// Kind classifies engine failures so handlers can map them onto
// stable HTTP statuses.  Messages are written for end users; no
// internal identifiers or stack traces are included.
type Kind int

const (
	// KindValidation marks malformed or out-of-range input, such as a
	// non-positive amount or a collector reserving their own listing.
	KindValidation Kind = iota + 1
	// KindConflict marks a precondition violated by a concurrent actor
	// or by a live reference: another collector won the reservation
	// race, or a delete is blocked by dependent records.
	KindConflict
	// KindState marks an operation that is invalid for the entity's
	// current lifecycle state, such as collecting an already-collected
	// reservation.
	KindState
	// KindNotFound marks a referenced entity that does not exist.
	KindNotFound
	// KindForbidden marks an actor touching an entity they do not own.
	KindForbidden
)

// Error is the failure type returned by every Engine operation.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func errf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind carried by err, or 0 when err is not an
// engine error (e.g. a raw database failure).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
