// Package handler contains the HTTP and websocket handlers of the service.
package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

// Health is a simple health‑check endpoint used by load balancers and
// monitoring systems to verify that the service is running.
func Health(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}

// Root answers GET / so that hitting the bare host shows the service is up.
func Root(c echo.Context) error {
    return c.String(http.StatusOK, "seat sync backend is live")
}
