package router

import (
	"github.com/labstack/echo/v4"

	"github.com/recycleshare/recycleshare/internal/handler"
	"github.com/recycleshare/recycleshare/internal/middleware"
)

// RegisterResident registers the authenticated resident endpoints
// under /v1.  Residents both post listings and collect from others,
// so the listing and reservation surfaces share one group.  Admins
// are accepted too so that they can moderate listings.
func RegisterResident(e *echo.Echo, l *handler.ListingHandler, r *handler.ReservationHandler, s *handler.ReportHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("RESIDENT", "ADMIN"),
	)

	// ---- Listings ----
	// Note: GET /v1/listings and GET /v1/listings/:id are registered on
	// the public router so that guests can browse before signing up.
	g.POST("/listings", l.Create)
	g.PUT("/listings/:id", l.Update)
	g.PATCH("/listings/:id", l.Update)
	g.DELETE("/listings/:id", l.Delete)
	g.GET("/my-listings", l.Mine)

	// ---- Reservations ----
	g.POST("/listings/:id/reserve", r.Reserve)
	g.POST("/reservations/:id/collect", r.Collect)
	g.POST("/reservations/:id/cancel", r.Cancel)
	g.GET("/reservations/:id", r.Get)
	g.GET("/my-reservations", r.Mine)

	// ---- Scores ----
	g.GET("/my-score", s.MyScore)
	g.GET("/my-score/history", s.ScoreHistory)
}
