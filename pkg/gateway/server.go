// Package gateway builds the echo server executors talk to: pipeline
// fetch, heartbeat, result submission, and flag operations
// (spec.md §4.5, §4.9). Modeled on the teacher's cmd/knitd_backend
// server.go: same logging middleware, same loglevel switch.
package gateway

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/netunicorn/netunicorn/pkg/gateway/handlers"
	"github.com/netunicorn/netunicorn/pkg/gateway/token"
	"github.com/netunicorn/netunicorn/pkg/store"
)

func BuildServer(db store.Interface, kc *token.Keychain, loglevel string) *echo.Echo {
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

	executors := db.Executors()
	flags := db.Flags()
	executorAuth := handlers.RequireExecutorToken(executors, kc)
	experimentAuth := handlers.RequireExperimentToken(kc)

	e.GET("/pipeline/:executor_id", handlers.GetPipelineHandler(executors), executorAuth)
	e.POST("/heartbeat/:executor_id", handlers.PostHeartbeatHandler(executors), executorAuth)
	e.POST("/result/:executor_id", handlers.PostResultHandler(executors), executorAuth)

	e.POST("/experiment/:experiment_id/flag/:key", handlers.PostFlagHandler(flags), experimentAuth)
	e.GET("/experiment/:experiment_id/flag/:key", handlers.GetFlagHandler(flags), experimentAuth)
	e.POST("/experiment/:experiment_id/flag/:key/increment", handlers.PostFlagIncrementHandler(flags), experimentAuth)
	e.POST("/experiment/:experiment_id/flag/:key/decrement", handlers.PostFlagDecrementHandler(flags), experimentAuth)

	e.GET("/health", func(c echo.Context) error { return c.NoContent(204) })

	return e
}
