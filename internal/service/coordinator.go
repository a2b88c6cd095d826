// Package service implements the reservation coordinator: the state machine
// that turns a viewer's attempt into an admitted, persisted and broadcast
// seat, or into a private rejection.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/cinema-seat-sync/internal/model"
	"github.com/iliyamo/cinema-seat-sync/internal/queue"
	"github.com/iliyamo/cinema-seat-sync/internal/repository"
)

// DefaultHolder is used when neither the attempt nor the configuration
// provides a holder.
const DefaultHolder = "anonymous"

// Broadcaster delivers outcomes to sessions.
type Broadcaster interface {
	Broadcast(msg model.Message) int
	SendTo(sessionID string, msg model.Message) bool
}

// EventPublisher forwards admissions to downstream consumers.
type EventPublisher interface {
	PublishSeatReserved(ctx context.Context, event queue.SeatReservedEvent) error
}

// Options configures a Coordinator.
type Options struct {
	ShowingID     string
	DefaultHolder string
	StoreTimeout  time.Duration
	Publisher     EventPublisher // optional
}

// Coordinator admits reservation attempts for one showing.
//
// ─────────────────────────────────────────────────────────────────────────────
// ADMISSION ORDER
// ─────────────────────────────────────────────────────────────────────────────
//
// Check, broadcast, then write (BROKEN):
//
//	session A: seat A1 free?  → yes
//	session B: seat A1 free?  → yes
//	session A: broadcast seatUpdated(A1), insert
//	session B: broadcast seatUpdated(A1), insert → duplicate or lost write
//
// Here the check and the write are one store call (TryReserve), and the
// broadcast happens only once that call has returned a committed record.
// ─────────────────────────────────────────────────────────────────────────────
type Coordinator struct {
	store     repository.ReservationStore
	fanout    Broadcaster
	publisher EventPublisher
	showingID string
	holder    string
	timeout   time.Duration
	log       *log.Logger
}

// NewCoordinator constructs a Coordinator.
func NewCoordinator(store repository.ReservationStore, fanout Broadcaster, opts Options, logger *log.Logger) *Coordinator {
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 5 * time.Second
	}
	if strings.TrimSpace(opts.DefaultHolder) == "" {
		opts.DefaultHolder = DefaultHolder
	}
	return &Coordinator{
		store:     store,
		fanout:    fanout,
		publisher: opts.Publisher,
		showingID: opts.ShowingID,
		holder:    opts.DefaultHolder,
		timeout:   opts.StoreTimeout,
		log:       logger,
	}
}

// ShowingID returns the showing this coordinator serves.
func (c *Coordinator) ShowingID() string { return c.showingID }

// Book runs one attempt to a terminal state.
//
// The store call runs on a context detached from ctx's cancellation, so a
// requester that disconnects mid-flight does not abort the write; it is
// bounded by the store timeout instead.  Rejections are never broadcast;
// the requester alone receives a seatRejected notice.
func (c *Coordinator) Book(ctx context.Context, requesterID string, attempt model.ReservationAttempt) model.Outcome {
	seatID := strings.TrimSpace(attempt.SeatID)
	showingID := strings.TrimSpace(attempt.ShowingID)
	if showingID == "" {
		showingID = c.showingID
	}
	if seatID == "" {
		return c.reject(requesterID, seatID, model.ReasonInvalidRequest)
	}
	if showingID != c.showingID {
		return c.reject(requesterID, seatID, model.ReasonWrongShowing)
	}
	holder := strings.TrimSpace(attempt.Holder)
	if holder == "" {
		holder = c.holder
	}

	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()
	rec, err := c.store.TryReserve(storeCtx, showingID, seatID, holder)
	switch {
	case err == nil:
		// committed below
	case errors.Is(err, repository.ErrAlreadyReserved):
		c.log.Infof("seat %s/%s already reserved; rejecting session %s", showingID, seatID, requesterID)
		return c.reject(requesterID, seatID, model.ReasonAlreadyReserved)
	default:
		c.log.Errorf("reserve %s/%s for session %s failed: %v", showingID, seatID, requesterID, err)
		return c.reject(requesterID, seatID, model.ReasonStoreUnavailable)
	}

	delivered := c.fanout.Broadcast(model.SeatUpdated(rec.SeatID))
	c.log.Infof("seat %s/%s booked by %q (session %s), delivered to %d sessions",
		rec.ShowingID, rec.SeatID, rec.Holder, requesterID, delivered)
	c.publish(rec, requesterID)
	return model.Outcome{State: model.OutcomeCommitted, Reservation: &rec}
}

func (c *Coordinator) reject(requesterID, seatID, reason string) model.Outcome {
	c.fanout.SendTo(requesterID, model.SeatRejected(seatID, reason))
	return model.Outcome{State: model.OutcomeRejected, Reason: reason}
}

// publish hands the admission to the audit queue in the background.
func (c *Coordinator) publish(rec model.SeatReservation, sessionID string) {
	if c.publisher == nil {
		return
	}
	event := queue.NewSeatReservedEvent(rec, sessionID)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		if err := c.publisher.PublishSeatReserved(ctx, event); err != nil {
			c.log.Warnf("publish seat.reserved for %s/%s: %v", rec.ShowingID, rec.SeatID, err)
		}
	}()
}
