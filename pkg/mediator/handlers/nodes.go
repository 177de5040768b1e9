package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/netunicorn/netunicorn/pkg/apierr"
	"github.com/netunicorn/netunicorn/pkg/domain"
	"github.com/netunicorn/netunicorn/pkg/infra"
	"github.com/netunicorn/netunicorn/pkg/mediator/auth"
)

// GetNodesHandler implements GET /nodes (spec.md §4.4): every node
// visible under the caller's access tags, across every connector.
func GetNodesHandler(infraSvc *infra.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		id, ok := auth.FromContext(c)
		if !ok {
			return apierr.Unauthorized()
		}

		nodes, err := infraSvc.ListNodes(ctx, id.AccessTags)
		if err != nil {
			return apierr.InternalServerError(err)
		}
		if nodes == nil {
			nodes = []domain.Node{}
		}
		return c.JSON(http.StatusOK, nodes)
	}
}
