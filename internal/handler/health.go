package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health answers liveness probes with a bare 200.  It deliberately
// touches neither MySQL nor Redis: a venue API that can still serve
// cached calendars should not be cycled out of the pool because a
// dependency is briefly down.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
