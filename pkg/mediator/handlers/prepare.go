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

type conflictResponse struct {
	Conflicts []domain.LockConflict `json:"conflicts"`
}

// PostPrepareHandler implements POST /experiment/{name}/prepare
// (spec.md §4.8): claims locks for every referenced node, dispatches
// connector Deploy in parallel, enqueues one compilation per deployment
// fingerprint, and transitions CREATED -> PREPARING. On a lock conflict
// nothing is claimed and the conflicting nodes are returned so the user
// can retry (spec.md §7.4).
func PostPrepareHandler(db store.Interface, infraSvc *infra.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		exp, ok := auth.ExperimentFromContext(c)
		if !ok {
			return apierr.InternalServerError(nil)
		}
		id, _ := auth.FromContext(c)

		if exp.Status != domain.Created {
			return apierr.Conflict("experiment is not in CREATED status")
		}

		deployments, err := db.Deployments().List(ctx, exp.ID)
		if err != nil {
			return apierr.InternalServerError(err)
		}

		nodes, err := infraSvc.ListNodes(ctx, nil)
		if err != nil {
			return apierr.InternalServerError(err)
		}
		archByNode := make(map[domain.NodeRef]string, len(nodes))
		for _, n := range nodes {
			arch, _ := n.Architecture()
			archByNode[n.NodeRef] = arch
		}
		for i := range deployments {
			deployments[i].Architecture = archByNode[deployments[i].Node]
		}

		_, conflicts, err := infraSvc.Deploy(ctx, id.Username, exp.ID, deployments)
		if err != nil {
			return apierr.InternalServerError(err)
		}
		if len(conflicts) > 0 {
			return c.JSON(http.StatusConflict, conflictResponse{Conflicts: conflicts})
		}

		for _, d := range deployments {
			fp := domain.CompilationFingerprint{
				Environment:  d.Environment,
				Pipeline:     d.Pipeline,
				Architecture: d.Architecture,
			}
			if _, _, err := db.Compilations().EnsureCompilation(ctx, exp.ID, fp); err != nil {
				return apierr.InternalServerError(err)
			}
		}

		if err := db.Deployments().Put(ctx, exp.ID, deployments); err != nil {
			return apierr.InternalServerError(err)
		}

		if err := db.Experiments().SetStatus(ctx, exp.ID, domain.Preparing); err != nil {
			if _, ok := err.(domain.ErrInvalidTransition); ok {
				return apierr.Conflict("experiment cannot be prepared from its current status")
			}
			return apierr.InternalServerError(err)
		}

		return c.NoContent(http.StatusAccepted)
	}
}
