package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health handles GET /healthz.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
