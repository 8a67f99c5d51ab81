package router

import (
	"github.com/labstack/echo/v4"

	"github.com/recycleshare/recycleshare/internal/handler"
	"github.com/recycleshare/recycleshare/internal/middleware"
)

// RegisterAdmin registers ADMIN-scoped endpoints under /v1/admin.
// All routes require a valid JWT and the ADMIN role.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN"),
	)

	// ---- Waste-type catalog ----
	g.POST("/waste-types", a.CreateWasteType)
	g.PUT("/waste-types/:id", a.UpdateWasteType)
	g.PATCH("/waste-types/:id", a.UpdateWasteType)
	g.DELETE("/waste-types/:id", a.DeleteWasteType)

	// ---- Users ----
	g.GET("/users", a.ListUsers)
	g.PATCH("/users/:id", a.SetUserActive)

	// ---- Schema explorer ----
	g.GET("/schema", a.ExploreSchema)

	// ---- Reports ----
	g.GET("/reports/monthly-summary", a.MonthlySummary)
	g.GET("/reports/top-recyclers", a.TopRecyclers)

	// ---- Audit trail ----
	g.GET("/audit", a.AuditLog)
}
