package model

// Event names exchanged with viewers over the realtime connection.
const (
    EventInitialSeats = "initialSeats"
    EventBookSeat     = "bookSeat"
    EventSeatUpdated  = "seatUpdated"
    EventSeatRejected = "seatRejected"
    EventError        = "error"
)

// Message is the envelope written to a viewer.  Data carries the
// event-specific payload: a seat list for initialSeats, a single seat id
// for seatUpdated, a Rejection for seatRejected.
type Message struct {
    Event string      `json:"event"`
    Data  interface{} `json:"data"`
}

// Rejection is the private payload of a seatRejected event.
type Rejection struct {
    SeatID string `json:"seat"`
    Reason string `json:"reason"`
}

// InitialSeats builds the snapshot message pushed to a newly connected viewer.
// A nil slice is sent as an empty list so clients can always iterate it.
func InitialSeats(seatIDs []string) Message {
    if seatIDs == nil {
        seatIDs = []string{}
    }
    return Message{Event: EventInitialSeats, Data: seatIDs}
}

// SeatUpdated builds the broadcast emitted after a seat is durably held.
func SeatUpdated(seatID string) Message {
    return Message{Event: EventSeatUpdated, Data: seatID}
}

// SeatRejected builds the private notice sent to a requester whose attempt
// was not admitted.
func SeatRejected(seatID, reason string) Message {
    return Message{Event: EventSeatRejected, Data: Rejection{SeatID: seatID, Reason: reason}}
}

// ErrorMessage reports a malformed or unknown inbound frame.
func ErrorMessage(msg string) Message {
    return Message{Event: EventError, Data: map[string]string{"message": msg}}
}
