package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/netunicorn/netunicorn/pkg/apierr"
	"github.com/netunicorn/netunicorn/pkg/domain"
	"github.com/netunicorn/netunicorn/pkg/store"
)

// GetPipelineHandler returns the serialized pipeline for a started,
// non-finished executor; 404 otherwise (spec.md §4.5).
func GetPipelineHandler(executors store.ExecutorInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		executorID := c.Param("executor_id")

		blob, err := executors.GetPipeline(ctx, executorID)
		if err != nil {
			if _, ok := err.(domain.ErrMissing); ok {
				return apierr.NotFound()
			}
			return apierr.InternalServerError(err)
		}
		return c.Blob(http.StatusOK, "application/octet-stream", blob)
	}
}
