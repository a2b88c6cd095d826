package router

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/cinema-seat-sync/internal/broadcast"
	"github.com/iliyamo/cinema-seat-sync/internal/gateway"
	"github.com/iliyamo/cinema-seat-sync/internal/handler"
	"github.com/iliyamo/cinema-seat-sync/internal/repository"
	"github.com/iliyamo/cinema-seat-sync/internal/service"
	"github.com/iliyamo/cinema-seat-sync/internal/session"
)

func newEcho(t *testing.T, rateLimit echo.MiddlewareFunc) *echo.Echo {
	t.Helper()
	logger := log.New("test")
	logger.SetOutput(io.Discard)
	store := repository.NewMemoryStore()
	registry := session.NewRegistry()
	coord := service.NewCoordinator(store, broadcast.New(registry), service.Options{ShowingID: "movie123"}, logger)
	gw := gateway.New(store, registry, "movie123", time.Second, logger)

	e := echo.New()
	e.Logger = logger
	RegisterRoutes(e, Handlers{
		Sync:  handler.NewSyncHandler(gw, coord, []string{"*"}, logger),
		Seats: &handler.SeatsHandler{Store: store, ShowingID: "movie123"},
	}, Options{AllowedOrigins: []string{"*"}, RateLimit: rateLimit})
	return e
}

func TestRoutes(t *testing.T) {
	e := newEcho(t, nil)
	tests := []struct {
		path string
		code int
	}{
		{"/", http.StatusOK},
		{"/healthz", http.StatusOK},
		{"/v1/showings/movie123/seats", http.StatusOK},
		{"/v1/showings/other/seats", http.StatusNotFound},
		{"/ws", http.StatusBadRequest}, // plain GET without upgrade headers
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.code {
				t.Fatalf("GET %s = %d, want %d", tt.path, rec.Code, tt.code)
			}
		})
	}
}

func TestRateLimitAppliesToV1Only(t *testing.T) {
	block := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error { return c.NoContent(http.StatusTooManyRequests) }
	}
	e := newEcho(t, block)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/showings/movie123/seats", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("/v1 status = %d, want 429", rec.Code)
	}
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/healthz status = %d, want 200", rec.Code)
	}
}
