package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/cinema-seat-sync/internal/handler"
)

// Handlers bundles everything the routes dispatch to.
type Handlers struct {
	Sync  *handler.SyncHandler
	Seats *handler.SeatsHandler
}

// Options controls the global middleware stack.
type Options struct {
	AllowedOrigins []string
	RateLimit      echo.MiddlewareFunc // optional; applied to /ws and /v1
}

// RegisterRoutes installs the middleware stack and all routes.
//
//	GET /                        liveness banner
//	GET /healthz                 health check
//	GET /ws                      realtime seat channel (websocket)
//	GET /v1/showings/:id/seats   reservation snapshot
func RegisterRoutes(e *echo.Echo, h Handlers, opts Options) {
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(requestLogger(e))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: opts.AllowedOrigins,
		AllowMethods: []string{"GET", "POST"},
	}))

	e.GET("/", handler.Root)
	e.GET("/healthz", handler.Health)

	limited := []echo.MiddlewareFunc{}
	if opts.RateLimit != nil {
		limited = append(limited, opts.RateLimit)
	}
	e.GET("/ws", h.Sync.Serve, limited...)

	v1 := e.Group("/v1", limited...)
	v1.GET("/showings/:id/seats", h.Seats.GetSeats)
}

// requestLogger logs one line per request through the echo logger.  The
// websocket route logs when the connection ends, so its latency is the
// session duration.
func requestLogger(e *echo.Echo) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			e.Logger.Infof("%s %s %d %s ip=%s id=%s", v.Method, v.URI, v.Status, v.Latency, v.RemoteIP, v.RequestID)
			return nil
		},
	})
}
