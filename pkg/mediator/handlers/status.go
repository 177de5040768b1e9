package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/netunicorn/netunicorn/pkg/apierr"
	"github.com/netunicorn/netunicorn/pkg/mediator/auth"
	"github.com/netunicorn/netunicorn/pkg/store"
)

type deploymentStatus struct {
	NodeName   string  `json:"node_name"`
	Connector  string  `json:"connector"`
	Prepared   bool    `json:"prepared"`
	ExecutorID *string `json:"executor_id,omitempty"`
	Error      *string `json:"error,omitempty"`
}

type statusResponse struct {
	ExperimentID     string             `json:"experiment_id"`
	Name             string             `json:"name"`
	Status           string             `json:"status"`
	Cancelled        bool               `json:"cancelled"`
	Deployments      []deploymentStatus `json:"deployments"`
	ExecutionResults []executionResult  `json:"execution_results,omitempty"`
}

type executionResult struct {
	NodeName  string  `json:"node_name"`
	Connector string  `json:"connector"`
	Error     *string `json:"error,omitempty"`
	Result    []byte  `json:"result,omitempty"`
}

// GetExperimentHandler implements GET /experiment/{name} (spec.md §4.8):
// the experiment's lifecycle status, its current deployment states, and
// (once FINISHED) its execution results snapshot.
func GetExperimentHandler(db store.Interface) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		exp, ok := auth.ExperimentFromContext(c)
		if !ok {
			return apierr.InternalServerError(nil)
		}

		deployments, err := db.Deployments().List(ctx, exp.ID)
		if err != nil {
			return apierr.InternalServerError(err)
		}

		resp := statusResponse{
			ExperimentID: exp.ID,
			Name:         exp.Name,
			Status:       exp.Status.String(),
			Cancelled:    exp.Cancelled,
		}
		for _, d := range deployments {
			resp.Deployments = append(resp.Deployments, deploymentStatus{
				NodeName:   d.Node.Name,
				Connector:  d.Node.Connector,
				Prepared:   d.Prepared,
				ExecutorID: d.ExecutorID,
				Error:      d.Error,
			})
		}
		for _, r := range exp.ExecutionResults {
			resp.ExecutionResults = append(resp.ExecutionResults, executionResult{
				NodeName:  r.Node.Name,
				Connector: r.Node.Connector,
				Error:     r.Error,
				Result:    r.ResultRaw,
			})
		}

		return c.JSON(http.StatusOK, resp)
	}
}
