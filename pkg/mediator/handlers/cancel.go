package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/netunicorn/netunicorn/pkg/apierr"
	"github.com/netunicorn/netunicorn/pkg/domain"
	"github.com/netunicorn/netunicorn/pkg/infra"
	"github.com/netunicorn/netunicorn/pkg/mediator/auth"
	"github.com/netunicorn/netunicorn/pkg/store"
)

// PostCancelHandler implements POST /experiment/{name}/cancel (spec.md
// §4.8): tears down every running executor through the owning
// connectors and finishes the experiment immediately, marked Cancelled.
// Legal from any non-terminal status; a CREATED experiment has nothing
// deployed yet so Stop is a no-op sweep over an empty deployment list.
func PostCancelHandler(db store.Interface, infraSvc *infra.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		exp, ok := auth.ExperimentFromContext(c)
		if !ok {
			return apierr.InternalServerError(nil)
		}

		if exp.Status == domain.Finished {
			return apierr.Conflict("experiment is already finished")
		}

		deployments, err := db.Deployments().List(ctx, exp.ID)
		if err != nil {
			return apierr.InternalServerError(err)
		}

		// Best-effort: a connector that fails to stop here is retried by
		// the processor's cleanup sweep once the experiment is FINISHED.
		_ = infraSvc.Stop(ctx, exp.ID, deployments)

		if err := db.Experiments().MarkCancelled(ctx, exp.ID); err != nil {
			return apierr.InternalServerError(err)
		}

		results := make([]domain.DeploymentResult, 0, len(deployments))
		for _, d := range deployments {
			r := domain.DeploymentResult{Node: d.Node}
			if d.Error != nil {
				r.Error = d.Error
			} else {
				msg := "experiment cancelled"
				r.Error = &msg
			}
			results = append(results, r)
		}
		if err := db.Experiments().Finish(ctx, exp.ID, results); err != nil {
			return apierr.InternalServerError(err)
		}

		return c.NoContent(http.StatusAccepted)
	}
}
