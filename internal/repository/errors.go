// Package repository defines the reservation store contract and its
// backends.  The sentinel errors below let the coordinator tell an
// expected "seat taken" apart from a store fault without inspecting
// driver-specific error types.
package repository

import "errors"

// ErrAlreadyReserved is returned by TryReserve when a reservation for the
// (showing, seat) pair already exists.  It is an expected outcome, not a
// fault; handlers surface it to the viewer as "seat taken".
var ErrAlreadyReserved = errors.New("seat already reserved")

// ErrStoreUnavailable wraps every other store failure, including timeouts.
// Callers must treat it as "do not admit, do not broadcast".
var ErrStoreUnavailable = errors.New("reservation store unavailable")
