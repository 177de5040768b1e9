package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// GetHealthcheckHandler implements GET /healthcheck.
func GetHealthcheckHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}
