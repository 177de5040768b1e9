// Package mediator builds the echo server users submit experiments
// through: submit, prepare, start, cancel, status, nodes and flag
// operations (spec.md §4.8). Modeled on the teacher's cmd/knitd server
// wiring: same logging middleware, same loglevel switch, route
// registration grouped by resource.
package mediator

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/netunicorn/netunicorn/pkg/gateway/token"
	"github.com/netunicorn/netunicorn/pkg/infra"
	"github.com/netunicorn/netunicorn/pkg/mediator/auth"
	"github.com/netunicorn/netunicorn/pkg/mediator/handlers"
	"github.com/netunicorn/netunicorn/pkg/store"
)

func BuildServer(
	db store.Interface,
	infraSvc *infra.Service,
	kc *token.Keychain,
	authenticator auth.Authenticator,
	gatewayRoot string,
	loglevel string,
) *echo.Echo {
	e := echo.New()

	switch strings.ToLower(loglevel) {
	case "debug":
		e.Logger.SetLevel(log.DEBUG)
	case "info":
		e.Logger.SetLevel(log.INFO)
	case "warn", "":
		e.Logger.SetLevel(log.WARN)
	case "error":
		e.Logger.SetLevel(log.ERROR)
	case "off":
		e.Logger.SetLevel(log.OFF)
	default:
		e.Logger.SetLevel(log.WARN)
		e.Logger.Warnf("unknown loglevel: %s . fall-backed to warn", loglevel)
	}

	e.HTTPErrorHandler = func(err error, ctx echo.Context) {
		e.DefaultHTTPErrorHandler(err, ctx)
		e.Logger.Error(err)
	}

	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			meth := c.Request().Method
			path := c.Request().URL
			begin := time.Now()
			var err error
			defer func() {
				c.Logger().Infof(
					"%s %s -> %d in %v / error = %+v",
					meth, path, c.Response().Status, time.Since(begin), err,
				)
			}()
			err = next(c)
			return err
		}
	})
	e.Use(middleware.Recover())

	requireAuth := auth.RequireAuth(authenticator)
	requireOwner := auth.RequireOwner(db.Experiments(), "name")

	e.POST("/experiment", handlers.PostExperimentHandler(db), requireAuth)
	e.GET("/experiment/:name", handlers.GetExperimentHandler(db), requireAuth, requireOwner)
	e.POST("/experiment/:name/prepare", handlers.PostPrepareHandler(db, infraSvc), requireAuth, requireOwner)
	e.POST("/experiment/:name/start", handlers.PostStartHandler(db, infraSvc, kc, gatewayRoot), requireAuth, requireOwner)
	e.POST("/experiment/:name/cancel", handlers.PostCancelHandler(db, infraSvc), requireAuth, requireOwner)

	flags := db.Flags()
	e.GET("/experiment/:name/flag/:key", handlers.GetFlagHandler(flags), requireAuth, requireOwner)
	e.POST("/experiment/:name/flag/:key", handlers.PostFlagHandler(flags), requireAuth, requireOwner)
	e.POST("/experiment/:name/flag/:key/increment", handlers.PostFlagIncrementHandler(flags), requireAuth, requireOwner)
	e.POST("/experiment/:name/flag/:key/decrement", handlers.PostFlagDecrementHandler(flags), requireAuth, requireOwner)

	e.GET("/nodes", handlers.GetNodesHandler(infraSvc), requireAuth)
	e.GET("/healthcheck", handlers.GetHealthcheckHandler())

	return e
}
