package model

import "time"

// SeatReservation records that a seat of a showing is held.  Exactly one
// record may exist per (ShowingID, SeatID); records are created once and
// never mutated.
//
// Fields:
//  ShowingID – showing the seat belongs to.
//  SeatID    – seat identifier, unique within the showing.
//  Holder    – who holds the seat (an anonymous placeholder when the
//              viewer did not provide one).
//  CreatedAt – admission timestamp in UTC.
type SeatReservation struct {
    ShowingID string    `json:"showing"`    // seat_reservations.showing_id
    SeatID    string    `json:"seat"`       // seat_reservations.seat_id
    Holder    string    `json:"holder"`     // seat_reservations.holder
    CreatedAt time.Time `json:"created_at"` // seat_reservations.created_at
}

// ReservationAttempt is a transient request to hold a seat.  It is
// consumed once by the coordinator and never stored.
type ReservationAttempt struct {
    ShowingID string
    SeatID    string
    Holder    string
}

// OutcomeState is the terminal state of a reservation attempt.
type OutcomeState string

const (
    OutcomeCommitted OutcomeState = "COMMITTED"
    OutcomeRejected  OutcomeState = "REJECTED"
)

// Rejection reasons delivered privately to the requester.
const (
    ReasonAlreadyReserved  = "already_reserved"
    ReasonStoreUnavailable = "store_unavailable"
    ReasonInvalidRequest   = "invalid_request"
    ReasonWrongShowing     = "wrong_showing"
)

// Outcome is the result of a reservation attempt.  Reservation is set only
// when State is OutcomeCommitted; Reason only when it is OutcomeRejected.
type Outcome struct {
    State       OutcomeState
    Reason      string
    Reservation *SeatReservation
}

// Committed reports whether the attempt was admitted.
func (o Outcome) Committed() bool { return o.State == OutcomeCommitted }

// SeatIDs extracts the seat identifiers of the given reservations,
// preserving order.
func SeatIDs(rs []SeatReservation) []string {
    ids := make([]string, 0, len(rs))
    for _, r := range rs {
        ids = append(ids, r.SeatID)
    }
    return ids
}
