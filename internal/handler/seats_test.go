package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-seat-sync/internal/model"
	"github.com/iliyamo/cinema-seat-sync/internal/repository"
)

type unavailableStore struct{}

func (unavailableStore) TryReserve(context.Context, string, string, string) (model.SeatReservation, error) {
	return model.SeatReservation{}, repository.ErrStoreUnavailable
}
func (unavailableStore) ListReservations(context.Context, string) ([]model.SeatReservation, error) {
	return nil, repository.ErrStoreUnavailable
}

func getSeats(t *testing.T, h *SeatsHandler, showing string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.Logger = testLogger()
	req := httptest.NewRequest(http.MethodGet, "/v1/showings/"+showing+"/seats", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/showings/:id/seats")
	c.SetParamNames("id")
	c.SetParamValues(showing)
	if err := h.GetSeats(c); err != nil {
		t.Fatalf("GetSeats: %v", err)
	}
	return rec
}

func TestGetSeats(t *testing.T) {
	store := repository.NewMemoryStore()
	for _, seat := range []string{"A1", "A2"} {
		if _, err := store.TryReserve(context.Background(), "movie123", seat, "x"); err != nil {
			t.Fatal(err)
		}
	}
	h := &SeatsHandler{Store: store, ShowingID: "movie123", Timeout: time.Second}

	rec := getSeats(t, h, "movie123")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Showing string   `json:"showing"`
		Seats   []string `json:"seats"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Showing != "movie123" || len(body.Seats) != 2 {
		t.Fatalf("body = %+v", body)
	}

	if rec := getSeats(t, h, "movie999"); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown showing status = %d, want 404", rec.Code)
	}
}

func TestGetSeatsStoreDown(t *testing.T) {
	h := &SeatsHandler{Store: unavailableStore{}, ShowingID: "movie123"}
	if rec := getSeats(t, h, "movie123"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}
