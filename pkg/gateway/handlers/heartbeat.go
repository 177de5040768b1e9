package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/netunicorn/netunicorn/pkg/apierr"
	"github.com/netunicorn/netunicorn/pkg/domain"
	"github.com/netunicorn/netunicorn/pkg/store"
)

type heartbeatRequest struct {
	State string `json:"state"`
}

// PostHeartbeatHandler sets keepalive_time = now and records the
// executor's reported state; 404 if unknown (spec.md §4.5).
func PostHeartbeatHandler(executors store.ExecutorInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		executorID := c.Param("executor_id")

		var req heartbeatRequest
		if err := c.Bind(&req); err != nil {
			return apierr.BadRequest("invalid heartbeat body", err)
		}
		state := domain.ExecutorExecuting
		if req.State != "" {
			state = domain.ExecutorState(req.State)
		}

		if err := executors.Heartbeat(ctx, executorID, state); err != nil {
			if _, ok := err.(domain.ErrMissing); ok {
				return apierr.NotFound()
			}
			return apierr.InternalServerError(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
