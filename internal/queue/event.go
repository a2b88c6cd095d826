// Package queue defines message payloads exchanged over the message broker.
package queue

import (
    "time"

    "github.com/iliyamo/cinema-seat-sync/internal/model"
)

// SeatReservedQueue is the durable queue admissions are published to.
const SeatReservedQueue = "seat.reserved"

// SeatReservedEvent is published after a reservation is durably admitted.
// It carries enough information for downstream consumers to audit or
// notify without querying the reservation store.
type SeatReservedEvent struct {
    ShowingID  string `json:"showing"`
    SeatID     string `json:"seat"`
    Holder     string `json:"holder"`
    SessionID  string `json:"session_id"`
    ReservedAt string `json:"reserved_at"`
}

// NewSeatReservedEvent builds the event for an admitted reservation.
func NewSeatReservedEvent(rec model.SeatReservation, sessionID string) SeatReservedEvent {
    return SeatReservedEvent{
        ShowingID:  rec.ShowingID,
        SeatID:     rec.SeatID,
        Holder:     rec.Holder,
        SessionID:  sessionID,
        ReservedAt: rec.CreatedAt.UTC().Format(time.RFC3339Nano),
    }
}
