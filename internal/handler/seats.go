package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/cinema-seat-sync/internal/model"
    "github.com/iliyamo/cinema-seat-sync/internal/repository"
)

// SeatsHandler exposes the reservation snapshot over plain HTTP for clients
// that poll instead of holding a websocket open.
type SeatsHandler struct {
    Store     repository.ReservationStore
    ShowingID string
    Timeout   time.Duration
}

// GetSeats handles GET /v1/showings/:id/seats.  It returns the reserved
// seat ids in admission order.  Only the showing served by this instance
// is known; others yield 404.  A store failure yields 503 rather than an
// empty list so clients never mistake an outage for a free hall.
func (h *SeatsHandler) GetSeats(c echo.Context) error {
    showingID := c.Param("id")
    if showingID != h.ShowingID {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "showing not found"})
    }
    timeout := h.Timeout
    if timeout <= 0 {
        timeout = 5 * time.Second
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
    defer cancel()
    reservations, err := h.Store.ListReservations(ctx, showingID)
    if err != nil {
        c.Logger().Errorf("list reservations for %s: %v", showingID, err)
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "reservation store unavailable"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "showing": showingID,
        "seats":   model.SeatIDs(reservations),
    })
}
