package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/netunicorn/netunicorn/pkg/apierr"
	"github.com/netunicorn/netunicorn/pkg/domain"
	"github.com/netunicorn/netunicorn/pkg/mediator/auth"
	"github.com/netunicorn/netunicorn/pkg/store"
)

// These mirror pkg/gateway/handlers/flag.go exactly, but sit behind
// RequireOwner instead of a gateway token: a user inspecting their own
// experiment's flags uses the name-keyed mediator route, while a
// running executor uses the id-keyed gateway route (spec.md §4.9).

type flagSetRequest struct {
	Text *string `json:"text"`
	Int  *int64  `json:"int"`
}

type flagResponse struct {
	Key       string `json:"key"`
	TextValue string `json:"text_value"`
	IntValue  int64  `json:"int_value"`
}

func toFlagResponse(f domain.Flag) flagResponse {
	return flagResponse{Key: f.Key, TextValue: f.TextValue, IntValue: f.IntValue}
}

// PostFlagHandler implements POST /experiment/{name}/flag/{key} (set).
func PostFlagHandler(flags store.FlagInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		exp, ok := auth.ExperimentFromContext(c)
		if !ok {
			return apierr.InternalServerError(nil)
		}
		var req flagSetRequest
		if err := c.Bind(&req); err != nil {
			return apierr.BadRequest("invalid flag body", err)
		}
		f, err := flags.Update(ctx, exp.ID, c.Param("key"), domain.SetFlag(req.Text, req.Int))
		if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, toFlagResponse(f))
	}
}

// GetFlagHandler implements GET /experiment/{name}/flag/{key}.
func GetFlagHandler(flags store.FlagInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		exp, ok := auth.ExperimentFromContext(c)
		if !ok {
			return apierr.InternalServerError(nil)
		}
		f, err := flags.Update(ctx, exp.ID, c.Param("key"), domain.GetFlag())
		if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, toFlagResponse(f))
	}
}

// PostFlagIncrementHandler implements POST /experiment/{name}/flag/{key}/increment.
func PostFlagIncrementHandler(flags store.FlagInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		exp, ok := auth.ExperimentFromContext(c)
		if !ok {
			return apierr.InternalServerError(nil)
		}
		f, err := flags.Update(ctx, exp.ID, c.Param("key"), domain.IncFlag())
		if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, toFlagResponse(f))
	}
}

// PostFlagDecrementHandler implements POST /experiment/{name}/flag/{key}/decrement.
func PostFlagDecrementHandler(flags store.FlagInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		exp, ok := auth.ExperimentFromContext(c)
		if !ok {
			return apierr.InternalServerError(nil)
		}
		f, err := flags.Update(ctx, exp.ID, c.Param("key"), domain.DecFlag())
		if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, toFlagResponse(f))
	}
}
