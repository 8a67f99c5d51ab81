package handler

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/recycleshare/recycleshare/internal/model"
	"github.com/recycleshare/recycleshare/internal/repository"
)

// PublicHandler serves unauthenticated browse endpoints: the waste
// type catalog and the listing board.  Responses are sanitized views
// assembled by the repositories; guests see no account data beyond
// the owner's email on a listing.
type PublicHandler struct {
	Types    *repository.WasteTypeRepo
	Listings *repository.ListingRepo
}

// NewPublicHandler constructs a PublicHandler with its repositories.
func NewPublicHandler(types *repository.WasteTypeRepo, listings *repository.ListingRepo) *PublicHandler {
	if types == nil || listings == nil {
		panic("nil repository passed to NewPublicHandler")
	}
	return &PublicHandler{Types: types, Listings: listings}
}

// GetWasteTypes handles GET /v1/waste-types and returns the whole
// catalog ordered by name.
func (h *PublicHandler) GetWasteTypes(c echo.Context) error {
	types, err := h.Types.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]echo.Map, 0, len(types))
	for _, wt := range types {
		out = append(out, echo.Map{
			"id":                     wt.ID,
			"name":                   wt.Name,
			"unit_label":             wt.UnitLabel,
			"recycle_score_per_unit": wt.RecycleScorePerUnit,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"waste_types": out})
}

// GetListings handles GET /v1/listings.  Optional query parameters:
// ?status=waiting|reserved|collected|cancelled and ?type=<waste type id>.
func (h *PublicHandler) GetListings(c echo.Context) error {
	status := strings.ToUpper(strings.TrimSpace(c.QueryParam("status")))
	if status != "" && !model.ValidStatus(status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status filter"})
	}
	var typeID uint64
	if t := c.QueryParam("type"); t != "" {
		id, err := strconv.ParseUint(t, 10, 64)
		if err != nil || id == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid type filter"})
		}
		typeID = id
	}
	listings, err := h.Listings.ListPublic(c.Request().Context(), status, typeID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"listings": listings})
}

// GetListing handles GET /v1/listings/:id with the joined detail view.
func (h *PublicHandler) GetListing(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}
	d, err := h.Listings.GetDetail(c.Request().Context(), id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, d)
}
