package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/netunicorn/netunicorn/pkg/apierr"
	"github.com/netunicorn/netunicorn/pkg/domain"
	"github.com/netunicorn/netunicorn/pkg/store"
)

type flagSetRequest struct {
	Text *string `json:"text"`
	Int  *int64  `json:"int"`
}

type flagResponse struct {
	Key       string `json:"key"`
	TextValue string `json:"text_value"`
	IntValue  int64  `json:"int_value"`
}

func toResponse(f domain.Flag) flagResponse {
	return flagResponse{Key: f.Key, TextValue: f.TextValue, IntValue: f.IntValue}
}

// PostFlagHandler implements POST /experiment/{id}/flag/{key} (set).
func PostFlagHandler(flags store.FlagInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		var req flagSetRequest
		if err := c.Bind(&req); err != nil {
			return apierr.BadRequest("invalid flag body", err)
		}
		f, err := flags.Update(ctx, c.Param("experiment_id"), c.Param("key"), domain.SetFlag(req.Text, req.Int))
		if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, toResponse(f))
	}
}

// GetFlagHandler implements GET /experiment/{id}/flag/{key}.
func GetFlagHandler(flags store.FlagInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		f, err := flags.Update(ctx, c.Param("experiment_id"), c.Param("key"), domain.GetFlag())
		if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, toResponse(f))
	}
}

// PostFlagIncrementHandler implements POST /experiment/{id}/flag/{key}/increment.
func PostFlagIncrementHandler(flags store.FlagInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		f, err := flags.Update(ctx, c.Param("experiment_id"), c.Param("key"), domain.IncFlag())
		if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, toResponse(f))
	}
}

// PostFlagDecrementHandler implements POST /experiment/{id}/flag/{key}/decrement.
func PostFlagDecrementHandler(flags store.FlagInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		f, err := flags.Update(ctx, c.Param("experiment_id"), c.Param("key"), domain.DecFlag())
		if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, toResponse(f))
	}
}
