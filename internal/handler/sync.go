package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/cinema-seat-sync/internal/gateway"
	"github.com/iliyamo/cinema-seat-sync/internal/model"
	"github.com/iliyamo/cinema-seat-sync/internal/session"
)

const (
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = (pongWait * 9) / 10
	maxFrameBytes = 4096
)

// Booker admits reservation attempts.  *service.Coordinator implements it.
type Booker interface {
	Book(ctx context.Context, requesterID string, attempt model.ReservationAttempt) model.Outcome
}

// SyncHandler serves the realtime seat channel at GET /ws.  Each connection
// becomes a session: the gateway pushes initialSeats, bookSeat frames go to
// the coordinator, and closing the socket disconnects the session.
type SyncHandler struct {
	Gateway *gateway.Gateway
	Booker  Booker

	upgrader websocket.Upgrader
	log      *log.Logger
}

// NewSyncHandler builds a SyncHandler.  allowedOrigins is checked against
// the Origin header of the upgrade request; "*" accepts any origin.
func NewSyncHandler(gw *gateway.Gateway, booker Booker, allowedOrigins []string, logger *log.Logger) *SyncHandler {
	if gw == nil || booker == nil {
		panic("nil dependency passed to NewSyncHandler")
	}
	return &SyncHandler{
		Gateway: gw,
		Booker:  booker,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		log: logger,
	}
}

// inboundFrame is the envelope viewers send.
type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// bookSeatPayload accepts both the documented field names and the legacy
// movieId/seatId/userEmail names older clients send.
type bookSeatPayload struct {
	Showing   string `json:"showing"`
	Seat      string `json:"seat"`
	Holder    string `json:"holder"`
	MovieID   string `json:"movieId"`
	SeatID    string `json:"seatId"`
	UserEmail string `json:"userEmail"`
}

func (p bookSeatPayload) attempt() model.ReservationAttempt {
	return model.ReservationAttempt{
		ShowingID: firstNonEmpty(p.Showing, p.MovieID),
		SeatID:    firstNonEmpty(p.Seat, p.SeatID),
		Holder:    firstNonEmpty(p.Holder, p.UserEmail),
	}
}

// Serve handles GET /ws.
func (h *SyncHandler) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written an HTTP error
		h.log.Warnf("websocket upgrade from %s failed: %v", c.RealIP(), err)
		return nil
	}

	sess := session.New(uuid.NewString(), conn)
	go func() {
		if err := sess.Run(writeWait, pingPeriod); err != nil && !errors.Is(err, session.ErrClosed) {
			h.log.Debugf("session %s writer stopped: %v", sess.ID, err)
		}
	}()

	ctx := c.Request().Context()
	h.Gateway.Connect(ctx, sess)
	defer h.Gateway.Disconnect(sess.ID)

	conn.SetReadLimit(maxFrameBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debugf("session %s read: %v", sess.ID, err)
			}
			return nil
		}
		h.dispatch(ctx, sess, data)
	}
}

func (h *SyncHandler) dispatch(ctx context.Context, sess *session.Session, data []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		sess.Send(model.ErrorMessage("malformed frame"))
		return
	}
	switch frame.Event {
	case model.EventBookSeat:
		var p bookSeatPayload
		if len(frame.Data) == 0 || json.Unmarshal(frame.Data, &p) != nil {
			sess.Send(model.ErrorMessage("malformed bookSeat payload"))
			return
		}
		h.Booker.Book(ctx, sess.ID, p.attempt())
	default:
		sess.Send(model.ErrorMessage("unknown event: " + frame.Event))
	}
}

// originChecker returns a CheckOrigin func for the allow-list.  Requests
// without an Origin header (non-browser clients) are accepted.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
