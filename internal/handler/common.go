package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/recycleshare/recycleshare/internal/lifecycle"
	"github.com/recycleshare/recycleshare/internal/model"
)

// getUserID extracts the authenticated user's ID from the context.
// JWTAuth stores the raw "sub" claim, which the JWT library decodes
// as a float64; string is accepted for robustness.
func getUserID(c echo.Context) (uint64, error) {
	switch v := c.Get("user_id").(type) {
	case float64:
		if v > 0 {
			return uint64(v), nil
		}
	case string:
		if id, err := strconv.ParseUint(v, 10, 64); err == nil && id > 0 {
			return id, nil
		}
	case uint64:
		if v > 0 {
			return v, nil
		}
	}
	return 0, errors.New("no user in context")
}

// isAdmin reports whether the authenticated user carries the ADMIN role.
func isAdmin(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == model.RoleAdmin
}

// paramID parses a positive numeric path parameter.
func paramID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// respondEngineError maps a lifecycle engine failure onto a stable
// HTTP status with the engine's user-facing message.  Anything that
// is not an engine error is reported as a generic database failure so
// internals never leak.
func respondEngineError(c echo.Context, err error) error {
	switch lifecycle.KindOf(err) {
	case lifecycle.KindValidation:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case lifecycle.KindConflict:
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case lifecycle.KindState:
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	case lifecycle.KindNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case lifecycle.KindForbidden:
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
}
