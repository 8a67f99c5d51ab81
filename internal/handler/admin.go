package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/recycleshare/recycleshare/internal/lifecycle"
	"github.com/recycleshare/recycleshare/internal/repository"
)

// AdminHandler bundles the management surface: the waste-type
// catalog, user administration, the schema explorer and the canned
// reports.  Every route it serves sits behind RequireRole(ADMIN).
type AdminHandler struct {
	Engine *lifecycle.Engine
	Types  *repository.WasteTypeRepo
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
	Scores *repository.ScoreRepo
	Audit  *repository.AuditRepo
	Schema *repository.SchemaRepo
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(engine *lifecycle.Engine, types *repository.WasteTypeRepo, users *repository.UserRepo, tokens *repository.TokenRepo, scores *repository.ScoreRepo, audit *repository.AuditRepo, schema *repository.SchemaRepo) *AdminHandler {
	if engine == nil || types == nil || users == nil || tokens == nil || scores == nil || audit == nil || schema == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{Engine: engine, Types: types, Users: users, Tokens: tokens, Scores: scores, Audit: audit, Schema: schema}
}

type wasteTypeReq struct {
	Name         string  `json:"name"`
	UnitLabel    string  `json:"unit_label"`
	ScorePerUnit float64 `json:"score_per_unit"`
}

func (r wasteTypeReq) validate() string {
	if r.Name == "" {
		return "name is required"
	}
	if r.UnitLabel == "" {
		return "unit_label is required"
	}
	if r.ScorePerUnit <= 0 {
		return "score_per_unit must be greater than zero"
	}
	return ""
}

// CreateWasteType handles POST /v1/admin/waste-types.
func (h *AdminHandler) CreateWasteType(c echo.Context) error {
	var req wasteTypeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	id, err := h.Types.Create(c.Request().Context(), req.Name, req.UnitLabel, req.ScorePerUnit)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "waste type name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// UpdateWasteType handles PUT /v1/admin/waste-types/:id.  Changing
// score_per_unit never rewrites already-accrued points.
func (h *AdminHandler) UpdateWasteType(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid waste type id"})
	}
	var req wasteTypeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	if err := h.Types.Update(c.Request().Context(), id, req.Name, req.UnitLabel, req.ScorePerUnit); err != nil {
		switch {
		case err == sql.ErrNoRows:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "waste type not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "waste type name already exists"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": true})
}

// DeleteWasteType handles DELETE /v1/admin/waste-types/:id.  Types
// referenced by any listing cannot be removed.
func (h *AdminHandler) DeleteWasteType(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid waste type id"})
	}
	if err := h.Engine.DeleteWasteType(c.Request().Context(), id); err != nil {
		return respondEngineError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type adminUserPart struct {
	ID         uint64 `json:"id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	IsVerified bool   `json:"is_verified"`
	IsActive   bool   `json:"is_active"`
	CreatedAt  string `json:"created_at"`
}

// ListUsers handles GET /v1/admin/users.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	users, err := h.Users.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]adminUserPart, 0, len(users))
	for _, u := range users {
		out = append(out, adminUserPart{
			ID:         u.ID,
			Email:      u.Email,
			Role:       u.Role,
			IsVerified: u.IsVerified,
			IsActive:   u.IsActive,
			CreatedAt:  u.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"users": out})
}

// SetUserActive handles PATCH /v1/admin/users/:id.  Deactivating a
// user also revokes every refresh token they hold, so their sessions
// end at access-token expiry.
func (h *AdminHandler) SetUserActive(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req struct {
		IsActive *bool `json:"is_active"`
	}
	if err := c.Bind(&req); err != nil || req.IsActive == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "is_active is required"})
	}
	if err := h.Users.SetActive(c.Request().Context(), id, *req.IsActive); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !*req.IsActive {
		if err := h.Tokens.RevokeAllForUser(c.Request().Context(), id); err != nil {
			c.Logger().Errorf("revoke tokens for user %d: %v", id, err)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "is_active": *req.IsActive})
}

// ExploreSchema handles GET /v1/admin/schema: every table with its
// columns, types and foreign keys, read live from information_schema.
func (h *AdminHandler) ExploreSchema(c echo.Context) error {
	tables, err := h.Schema.Explore(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"tables": tables})
}

// MonthlySummary handles GET /v1/admin/reports/monthly-summary.
func (h *AdminHandler) MonthlySummary(c echo.Context) error {
	rows, err := h.Scores.MonthlySummaries(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"months": rows})
}

// TopRecyclers handles GET /v1/admin/reports/top-recyclers.  The
// period defaults to the current month; limit defaults to 10 and is
// capped at 100.
func (h *AdminHandler) TopRecyclers(c echo.Context) error {
	now := time.Now().UTC()
	month, year, limit := int(now.Month()), now.Year(), 10
	if v := c.QueryParam("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "month must be between 1 and 12"})
		}
		month = m
	}
	if v := c.QueryParam("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 2000 || y > 2100 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid year"})
		}
		year = y
	}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
		if n > 100 {
			n = 100
		}
		limit = n
	}
	rows, err := h.Scores.TopRecyclers(c.Request().Context(), month, year, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"month": month, "year": year, "recyclers": rows})
}

// AuditLog handles GET /v1/admin/audit with optional entity filter
// and limit/offset paging, newest entries first.
func (h *AdminHandler) AuditLog(c echo.Context) error {
	entity := c.QueryParam("entity")
	limit, offset := 50, 0
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
		if n > 500 {
			n = 500
		}
		limit = n
	}
	if v := c.QueryParam("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid offset"})
		}
		offset = n
	}
	entries, err := h.Audit.List(c.Request().Context(), entity, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]echo.Map, 0, len(entries))
	for _, e := range entries {
		out = append(out, echo.Map{
			"id":         e.ID,
			"entity":     e.Entity,
			"action":     e.Action,
			"before":     e.Before,
			"after":      e.After,
			"message":    e.Message,
			"created_at": e.CreatedAt.Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"entries": out})
}
