package repository

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/cinema-seat-sync/internal/model"
)

// MemoryStore keeps reservations in process memory.  It satisfies the
// ReservationStore contract but is not durable across restarts, so it is
// meant for tests and local development (STORE_DRIVER=memory).
type MemoryStore struct {
	mu    sync.Mutex
	seats map[string]map[string]model.SeatReservation // showing -> seat -> record
	now   func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		seats: make(map[string]map[string]model.SeatReservation),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// TryReserve stores a reservation unless one already exists for the pair.
func (s *MemoryStore) TryReserve(ctx context.Context, showingID, seatID, holder string) (model.SeatReservation, error) {
	if err := ctx.Err(); err != nil {
		return model.SeatReservation{}, unavailable("try reserve", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	bySeat, ok := s.seats[showingID]
	if !ok {
		bySeat = make(map[string]model.SeatReservation)
		s.seats[showingID] = bySeat
	}
	if _, taken := bySeat[seatID]; taken {
		return model.SeatReservation{}, ErrAlreadyReserved
	}
	rec := model.SeatReservation{
		ShowingID: showingID,
		SeatID:    seatID,
		Holder:    holder,
		CreatedAt: s.now(),
	}
	bySeat[seatID] = rec
	return rec, nil
}

// ListReservations returns a copy of the reservations of a showing.
func (s *MemoryStore) ListReservations(ctx context.Context, showingID string) ([]model.SeatReservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("list reservations", err)
	}
	s.mu.Lock()
	out := make([]model.SeatReservation, 0, len(s.seats[showingID]))
	for _, rec := range s.seats[showingID] {
		out = append(out, rec)
	}
	s.mu.Unlock()
	sortReservations(out)
	return out, nil
}
