package handlers

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/netunicorn/netunicorn/pkg/apierr"
	"github.com/netunicorn/netunicorn/pkg/store"
)

// PostResultHandler writes the serialized final result and marks the
// executor finished. Idempotent: the first submission wins, later ones
// are silently ignored (spec.md §4.5).
func PostResultHandler(executors store.ExecutorInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		executorID := c.Param("executor_id")

		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return apierr.BadRequest("could not read result body", err)
		}

		if err := executors.SetResult(ctx, executorID, body); err != nil {
			return apierr.InternalServerError(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
