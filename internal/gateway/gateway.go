// Package gateway admits new sessions and brings them up to date with the
// current reservation snapshot.
package gateway

import (
	"context"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/cinema-seat-sync/internal/model"
	"github.com/iliyamo/cinema-seat-sync/internal/repository"
	"github.com/iliyamo/cinema-seat-sync/internal/session"
)

// Gateway registers sessions and pushes the initialSeats snapshot.
type Gateway struct {
	store     repository.ReservationStore
	registry  *session.Registry
	showingID string
	timeout   time.Duration
	log       *log.Logger
}

// New constructs a Gateway for one showing.  timeout bounds the snapshot
// read; zero falls back to five seconds.
func New(store repository.ReservationStore, registry *session.Registry, showingID string, timeout time.Duration, logger *log.Logger) *Gateway {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Gateway{
		store:     store,
		registry:  registry,
		showingID: showingID,
		timeout:   timeout,
		log:       logger,
	}
}

// Connect registers s and delivers the snapshot.
//
// The session is registered before the store is read so that admissions
// racing with the read are still delivered (after the snapshot).  When the
// store cannot be read the session stays connected and receives an empty
// snapshot; the viewer may then see taken seats as free until the next
// seatUpdated or reconnect.  This is logged, not retried.
func (g *Gateway) Connect(ctx context.Context, s *session.Session) []string {
	g.registry.Add(s)
	g.log.Infof("session %s connected (live=%d)", s.ID, g.registry.Len())

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
	defer cancel()
	reservations, err := g.store.ListReservations(ctx, g.showingID)
	if err != nil {
		g.log.Warnf("snapshot for session %s unavailable, sending empty seat list: %v", s.ID, err)
		s.Prime(model.InitialSeats(nil))
		return nil
	}
	seats := model.SeatIDs(reservations)
	s.Prime(model.InitialSeats(seats))
	g.log.Debugf("sent %d existing reservations to %s", len(seats), s.ID)
	return seats
}

// Disconnect removes the session and closes it.  In-flight store work the
// session triggered is not cancelled.
func (g *Gateway) Disconnect(id string) {
	if s := g.registry.Remove(id); s != nil {
		s.Close()
		g.log.Infof("session %s disconnected (live=%d)", id, g.registry.Len())
	}
}
