package handlers

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/netunicorn/netunicorn/pkg/apierr"
	"github.com/netunicorn/netunicorn/pkg/gateway/token"
	"github.com/netunicorn/netunicorn/pkg/store"
)

// RequireExecutorToken verifies the bearer token an executor presents
// as NETUNICORN_GATEWAY_TOKEN against the executor_id path param and
// its owning experiment, so one executor can't fetch or report another's
// pipeline (spec.md §4.5, §6).
func RequireExecutorToken(executors store.ExecutorInterface, kc *token.Keychain) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			executorID := c.Param("executor_id")

			auth := c.Request().Header.Get("Authorization")
			raw := strings.TrimPrefix(auth, "Bearer ")
			if raw == "" || raw == auth {
				return apierr.Unauthorized()
			}

			ex, err := executors.Get(ctx, "", executorID)
			if err != nil {
				return apierr.NotFound()
			}
			if _, verr := kc.Verify(raw, ex.ExperimentID, executorID); verr != nil {
				return apierr.Unauthorized()
			}

			return next(c)
		}
	}
}

// RequireExperimentToken verifies the bearer token against the
// experiment_id path param only, without pinning it to one executor:
// flag endpoints are shared by every executor running in an experiment
// (spec.md §4.9), so any token minted for that experiment is accepted.
func RequireExperimentToken(kc *token.Keychain) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			experimentID := c.Param("experiment_id")

			auth := c.Request().Header.Get("Authorization")
			raw := strings.TrimPrefix(auth, "Bearer ")
			if raw == "" || raw == auth {
				return apierr.Unauthorized()
			}

			if _, err := kc.VerifyExperiment(raw, experimentID); err != nil {
				return apierr.Unauthorized()
			}

			return next(c)
		}
	}
}
