// Package auth implements the mediator's side of spec.md §1/§7's
// external authenticator boundary: a BasicAuth pass-through to
// whatever answers username/password with a yes/no, a sudo bit and an
// access-tag list, plus the owner-or-sudo authorization middleware
// every experiment-scoped route runs behind.
package auth

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/netunicorn/netunicorn/pkg/apierr"
	"github.com/netunicorn/netunicorn/pkg/domain"
	"github.com/netunicorn/netunicorn/pkg/store"
)

// Identity is the verdict an external authenticator returns for one
// request's credentials (spec.md §1: "a yes/no verdict plus a role bit
// and an access-tag list").
type Identity struct {
	Username   string
	Sudo       bool
	AccessTags []string
}

// Authenticator is the external auth service boundary. The mediator
// never stores or checks credentials itself; this is the only thing it
// consumes from that system (spec.md §1 Non-goals).
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (Identity, bool, error)
}

const identityContextKey = "netunicorn_identity"

// RequireAuth does BasicAuth pass-through: it extracts the request's
// Basic credentials, asks auth to verify them, and stashes the
// resulting Identity on the echo.Context for downstream handlers.
func RequireAuth(authenticator Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			username, password, ok := c.Request().BasicAuth()
			if !ok {
				return apierr.Unauthorized()
			}
			id, valid, err := authenticator.Authenticate(c.Request().Context(), username, password)
			if err != nil {
				return apierr.InternalServerError(err)
			}
			if !valid {
				return apierr.Unauthorized()
			}
			c.Set(identityContextKey, id)
			return next(c)
		}
	}
}

// FromContext retrieves the Identity RequireAuth attached.
func FromContext(c echo.Context) (Identity, bool) {
	id, ok := c.Get(identityContextKey).(Identity)
	return id, ok
}

// RequireOwner authorizes an experiment-scoped route named by its owner
// and experiment name (spec.md §4.8's `/experiment/{name}/...` routes,
// names unique per owner per spec.md §3 invariant (a)). The caller must
// own the experiment; a sudo caller may instead target any user's
// experiment via the `owner` query parameter. On any authorization
// failure it returns the same apierr.NotFound() a missing experiment
// would, so existence never leaks to a caller who isn't allowed to see
// it (spec.md §7.2).
func RequireOwner(experiments store.ExperimentInterface, nameParam string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := FromContext(c)
			if !ok {
				return apierr.Unauthorized()
			}

			owner := c.QueryParam("owner")
			if owner == "" {
				owner = id.Username
			}
			if owner != id.Username && !id.Sudo {
				return apierr.NotFound()
			}

			exp, err := experiments.GetByName(c.Request().Context(), owner, c.Param(nameParam))
			if err != nil {
				if _, ok := err.(domain.ErrMissing); ok {
					return apierr.NotFound()
				}
				return apierr.InternalServerError(err)
			}

			c.Set("netunicorn_experiment", exp)
			return next(c)
		}
	}
}

// ExperimentFromContext retrieves the domain.Experiment RequireOwner
// already fetched, sparing handlers a second store round trip.
func ExperimentFromContext(c echo.Context) (domain.Experiment, bool) {
	exp, ok := c.Get("netunicorn_experiment").(domain.Experiment)
	return exp, ok
}
