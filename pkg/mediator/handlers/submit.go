package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/netunicorn/netunicorn/pkg/apierr"
	"github.com/netunicorn/netunicorn/pkg/domain"
	"github.com/netunicorn/netunicorn/pkg/mediator/auth"
	"github.com/netunicorn/netunicorn/pkg/store"
)

// deploymentRequest is one (node, pipeline, environment) binding as the
// client submits it; PipelineBlob travels opaque end-to-end (spec.md §6).
type deploymentRequest struct {
	NodeName    string                       `json:"node_name"`
	Connector   string                       `json:"connector"`
	PipelineID  string                       `json:"pipeline_id"`
	Pipeline    []byte                       `json:"pipeline"`
	Environment domain.EnvironmentDefinition `json:"environment"`

	KeepAliveTimeoutMinutes *int `json:"keep_alive_timeout_minutes,omitempty"`
}

type submitRequest struct {
	Name        string              `json:"name"`
	Deployments []deploymentRequest `json:"deployments"`
}

type submitResponse struct {
	ExperimentID string `json:"experiment_id"`
}

// PostExperimentHandler implements POST /experiment (spec.md §6): persists
// the experiment in CREATED and its requested deployments, unprepared.
// prepare (not this call) reserves locks and enqueues compilations.
func PostExperimentHandler(db store.Interface) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		id, ok := auth.FromContext(c)
		if !ok {
			return apierr.Unauthorized()
		}

		var req submitRequest
		if err := c.Bind(&req); err != nil {
			return apierr.BadRequest("invalid experiment body", err)
		}
		if req.Name == "" {
			return apierr.BadRequest("experiment name must not be empty", nil)
		}
		if len(req.Deployments) == 0 {
			return apierr.BadRequest("experiment must reference at least one deployment", nil)
		}

		exp, err := db.Experiments().Create(ctx, id.Username, req.Name)
		if err != nil {
			if _, ok := err.(domain.ErrNameConflict); ok {
				return apierr.Conflict("experiment name already in use")
			}
			return apierr.InternalServerError(err)
		}

		deployments := make([]domain.Deployment, 0, len(req.Deployments))
		for _, dr := range req.Deployments {
			if dr.NodeName == "" || dr.Connector == "" {
				return apierr.BadRequest("deployment must name a node and a connector", nil)
			}
			deployments = append(deployments, domain.Deployment{
				ExperimentID:            exp.ID,
				Node:                    domain.NodeRef{Name: dr.NodeName, Connector: dr.Connector},
				PipelineID:              dr.PipelineID,
				Pipeline:                dr.Pipeline,
				Environment:             dr.Environment,
				KeepAliveTimeoutMinutes: dr.KeepAliveTimeoutMinutes,
			})
		}
		if err := db.Deployments().Put(ctx, exp.ID, deployments); err != nil {
			return apierr.InternalServerError(err)
		}

		return c.JSON(http.StatusCreated, submitResponse{ExperimentID: exp.ID})
	}
}
