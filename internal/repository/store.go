package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/iliyamo/cinema-seat-sync/internal/model"
)

// ReservationStore is the durable mapping from (showing, seat) to a
// reservation record.
//
// TryReserve must be atomic per (showing, seat): when several calls race
// for the same pair exactly one returns the stored record and the others
// return ErrAlreadyReserved.  Any other failure is reported as an error
// wrapping ErrStoreUnavailable.
//
// ListReservations returns the reservations of a showing ordered by
// creation time, then seat id.
type ReservationStore interface {
	TryReserve(ctx context.Context, showingID, seatID, holder string) (model.SeatReservation, error)
	ListReservations(ctx context.Context, showingID string) ([]model.SeatReservation, error)
}

// unavailable wraps err so that errors.Is(err, ErrStoreUnavailable) holds
// while keeping the driver message for logs.
func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

// sortReservations orders records by CreatedAt, breaking ties by seat id.
func sortReservations(rs []model.SeatReservation) {
	sort.SliceStable(rs, func(i, j int) bool {
		if !rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].CreatedAt.Before(rs[j].CreatedAt)
		}
		return rs[i].SeatID < rs[j].SeatID
	})
}
