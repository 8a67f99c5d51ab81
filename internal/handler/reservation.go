package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/recycleshare/recycleshare/internal/lifecycle"
	qmodel "github.com/recycleshare/recycleshare/internal/queue"
	"github.com/recycleshare/recycleshare/internal/repository"
	queue_publisher "github.com/recycleshare/recycleshare/internal/service"
)

// ReservationHandler serves the collector-side lifecycle endpoints:
// reserving a listing, completing the pickup and cancelling.  The
// race-sensitive operations are delegated entirely to the engine;
// after a completed collection the handler publishes the
// collection.completed event outside the transaction.
type ReservationHandler struct {
	Engine       *lifecycle.Engine
	Reservations *repository.ReservationRepo
	Types        *repository.WasteTypeRepo
}

// NewReservationHandler constructs a ReservationHandler.
func NewReservationHandler(engine *lifecycle.Engine, reservations *repository.ReservationRepo, types *repository.WasteTypeRepo) *ReservationHandler {
	if engine == nil || reservations == nil || types == nil {
		panic("nil dependency passed to NewReservationHandler")
	}
	return &ReservationHandler{Engine: engine, Reservations: reservations, Types: types}
}

// Reserve handles POST /v1/listings/:id/reserve.  The body carries
// the agreed pickup time; first reservation wins, the loser of a race
// receives 409.
func (h *ReservationHandler) Reserve(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listingID, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}
	var req struct {
		PickupAt string `json:"pickup_at"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	pickupAt, err := time.Parse(time.RFC3339, req.PickupAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "pickup_at must be RFC3339"})
	}
	r, err := h.Engine.Reserve(c.Request().Context(), listingID, uid, pickupAt)
	if err != nil {
		return respondEngineError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id":         r.ID,
		"listing_id": r.ListingID,
		"pickup_at":  r.PickupAt.Format(time.RFC3339),
		"status":     r.Status,
	})
}

// Collect handles POST /v1/reservations/:id/collect.  The body
// carries the actual weighed amount, which may differ from the posted
// one.  Points are accrued to the listing owner inside the engine
// transaction; the event is published best-effort afterwards.
func (h *ReservationHandler) Collect(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	reservationID, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var req struct {
		ActualAmount float64 `json:"actual_amount"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	res, err := h.Engine.CompleteCollection(c.Request().Context(), reservationID, uid, req.ActualAmount)
	if err != nil {
		return respondEngineError(c, err)
	}

	// The state change is committed; a broker outage must not fail the
	// request, so the publish error is only logged by the publisher.
	wt, wtErr := h.Types.GetByID(c.Request().Context(), res.Listing.WasteTypeID)
	if wtErr == nil {
		_ = queue_publisher.PublishCollectionCompleted(c.Request().Context(), qmodel.CollectionCompletedEvent{
			ReservationID: res.Reservation.ID,
			ListingID:     res.Listing.ID,
			OwnerID:       res.Listing.OwnerID,
			CollectorID:   uid,
			WasteType:     wt.Name,
			UnitLabel:     wt.UnitLabel,
			Amount:        req.ActualAmount,
			Points:        res.Points,
			Month:         res.Month,
			Year:          res.Year,
			CollectedAt:   time.Now().UTC().Format(time.RFC3339),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"reservation_id": res.Reservation.ID,
		"listing_id":     res.Listing.ID,
		"status":         res.Reservation.Status,
		"points":         res.Points,
		"month":          res.Month,
		"year":           res.Year,
	})
}

// Cancel handles POST /v1/reservations/:id/cancel.  Either the
// collector or the listing owner may cancel; the listing returns to
// WAITING and becomes reservable again.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	reservationID, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	if err := h.Engine.CancelReservation(c.Request().Context(), reservationID, uid); err != nil {
		return respondEngineError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"cancelled": true})
}

// Mine handles GET /v1/my-reservations with the caller's reservations.
func (h *ReservationHandler) Mine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	details, err := h.Reservations.ListByCollector(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": details})
}

// Get handles GET /v1/reservations/:id for the collector or the
// listing owner.
func (h *ReservationHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	reservationID, ok := paramID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	d, err := h.Reservations.GetDetail(c.Request().Context(), reservationID, uid)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		if errors.Is(err, repository.ErrForbidden) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, d)
}
