package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/recycleshare/recycleshare/internal/lifecycle"
	"github.com/recycleshare/recycleshare/internal/repository"
)

// ListingHandler serves the authenticated listing endpoints.  All
// mutations run through the lifecycle engine so state transitions,
// score accrual and audit entries stay atomic; this layer only binds
// requests and maps engine errors onto HTTP statuses.
type ListingHandler struct {
	Engine   *lifecycle.Engine
	Listings *repository.ListingRepo
}

// NewListingHandler constructs a ListingHandler.
func NewListingHandler(engine *lifecycle.Engine, listings *repository.ListingRepo) *ListingHandler {
	if engine == nil || listings == nil {
		panic("nil dependency passed to NewListingHandler")
	}
	return &ListingHandler{Engine: engine, Listings: listings}
}

type listingReq struct {
	WasteTypeID uint64  `json:"waste_type_id"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

// Create handles POST /v1/listings.  The new listing starts WAITING.
func (h *ListingHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req listingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	l, err := h.Engine.CreateListing(c.Request().Context(), uid, req.WasteTypeID, req.Amount, req.Description)
	if err != nil {
		return respondEngineError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id":            l.ID,
		"waste_type_id": l.WasteTypeID,
		"amount":        l.Amount,
		"description":   l.Description,
		"status":        l.Status,
	})
}

// Update handles PATCH /v1/listings/:id.  Owners can edit amount,
// type and description while the listing has not been collected.
func (h *ListingHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}
	var req listingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	l, err := h.Engine.UpdateListing(c.Request().Context(), uid, id, req.WasteTypeID, req.Amount, req.Description)
	if err != nil {
		return respondEngineError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":            l.ID,
		"waste_type_id": l.WasteTypeID,
		"amount":        l.Amount,
		"description":   l.Description,
		"status":        l.Status,
	})
}

// Delete handles DELETE /v1/listings/:id.  A listing with an active
// reservation cannot be removed.
func (h *ListingHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}
	if err := h.Engine.DeleteListing(c.Request().Context(), uid, isAdmin(c), id); err != nil {
		return respondEngineError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Mine handles GET /v1/my-listings with all of the caller's listings.
func (h *ListingHandler) Mine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listings, err := h.Listings.ListByOwner(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"listings": listings})
}
