package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/netunicorn/netunicorn/pkg/apierr"
	"github.com/netunicorn/netunicorn/pkg/domain"
	"github.com/netunicorn/netunicorn/pkg/gateway/token"
	"github.com/netunicorn/netunicorn/pkg/infra"
	"github.com/netunicorn/netunicorn/pkg/mediator/auth"
	"github.com/netunicorn/netunicorn/pkg/store"
)

type startErrorResponse struct {
	Errors map[string]string `json:"errors"`
}

// PostStartHandler implements POST /experiment/{name}/start (spec.md
// §4.8): requires READY, mints one gateway token per executor, starts
// each prepared deployment's executor through its connector, and
// transitions READY -> RUNNING. A deployment whose connector start call
// fails is recorded as a deployment error rather than failing the whole
// request, mirroring prepare's per-node error handling.
func PostStartHandler(db store.Interface, infraSvc *infra.Service, kc *token.Keychain, gatewayRoot string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		exp, ok := auth.ExperimentFromContext(c)
		if !ok {
			return apierr.InternalServerError(nil)
		}

		if exp.Status != domain.Ready {
			return apierr.Conflict("experiment is not in READY status")
		}

		deployments, err := db.Deployments().List(ctx, exp.ID)
		if err != nil {
			return apierr.InternalServerError(err)
		}

		images := make(map[domain.NodeRef]string, len(deployments))
		for _, d := range deployments {
			if !d.Prepared {
				continue
			}
			fp := domain.CompilationFingerprint{
				Environment:  d.Environment,
				Pipeline:     d.Pipeline,
				Architecture: d.Architecture,
			}
			compilationID, err := fp.ID()
			if err != nil {
				return apierr.InternalServerError(err)
			}
			comp, err := db.Compilations().Get(ctx, exp.ID, compilationID)
			if err != nil {
				return apierr.InternalServerError(err)
			}
			images[d.Node] = comp.Image
		}

		executorIDs := make(map[domain.NodeRef]string, len(deployments))
		tokens := make(map[domain.NodeRef]string, len(deployments))
		for _, d := range deployments {
			if !d.Prepared {
				continue
			}
			executorID := fmt.Sprintf("exec-%s", uuid.NewString())
			raw, err := kc.Issue(exp.ID, executorID)
			if err != nil {
				return apierr.InternalServerError(err)
			}
			executorIDs[d.Node] = executorID
			tokens[d.Node] = raw
		}

		ids, errs := infraSvc.Start(
			ctx,
			deployments,
			func(d domain.Deployment) (string, error) {
				image, ok := images[d.Node]
				if !ok || image == "" {
					return "", fmt.Errorf("no compiled image available for node %s", d.Node.Name)
				}
				return image, nil
			},
			func(d domain.Deployment) map[string]string {
				return map[string]string{
					"NETUNICORN_GATEWAY_ENDPOINT": gatewayRoot,
					"NETUNICORN_EXPERIMENT_ID":    exp.ID,
					"NETUNICORN_EXECUTOR_ID":      executorIDs[d.Node],
					"NETUNICORN_GATEWAY_TOKEN":    tokens[d.Node],
					"NETUNICORN_HEARTBEAT":        "true",
				}
			},
		)

		byNode := make(map[domain.NodeRef]domain.Deployment, len(deployments))
		for _, d := range deployments {
			byNode[d.Node] = d
		}

		errResp := make(map[string]string)
		now := time.Now()
		for node, executorID := range ids {
			if err := db.Deployments().SetExecutor(ctx, exp.ID, node, executorID); err != nil {
				return apierr.InternalServerError(err)
			}
			d := byNode[node]
			executor := domain.Executor{
				ExperimentID:            exp.ID,
				ExecutorID:              executorID,
				Node:                    node,
				Connector:               node.Connector,
				PipelineBlob:            d.Pipeline,
				KeepaliveTime:           now,
				State:                   domain.ExecutorLoading,
				StartedAt:               now,
				KeepAliveTimeoutMinutes: d.KeepAliveTimeoutMinutes,
			}
			if err := db.Executors().Create(ctx, executor); err != nil {
				return apierr.InternalServerError(err)
			}
		}
		for node, err := range errs {
			if serr := db.Deployments().SetError(ctx, exp.ID, node, err.Error()); serr != nil {
				return apierr.InternalServerError(serr)
			}
			errResp[node.Name] = err.Error()
		}

		if err := db.Experiments().SetStatus(ctx, exp.ID, domain.Running); err != nil {
			if _, ok := err.(domain.ErrInvalidTransition); ok {
				return apierr.Conflict("experiment cannot be started from its current status")
			}
			return apierr.InternalServerError(err)
		}

		if len(errResp) > 0 {
			return c.JSON(http.StatusAccepted, startErrorResponse{Errors: errResp})
		}
		return c.NoContent(http.StatusAccepted)
	}
}
