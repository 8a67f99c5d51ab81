package router

import (
	"github.com/labstack/echo/v4"

	"github.com/recycleshare/recycleshare/internal/handler"
	"github.com/recycleshare/recycleshare/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication
// on the provided Echo instance.  Currently it exposes only a health
// check used by load balancers and monitoring.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes.
// Unauthenticated operations live under /v1/auth, while the /v1/me
// endpoint sits behind the JWT middleware.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/verify-otp", a.VerifyOTP)
	g.POST("/resend-otp", a.ResendOTP)
	g.POST("/login", a.Login)
	// Refresh rotates the refresh token; refresh-access issues a new
	// access token without rotation.
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout takes the refresh token in the body, so it does not
	// require a valid access token.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("RESIDENT", "ADMIN"))
	auth.GET("/me", a.Me)
}

// RegisterPublic registers the unauthenticated browse endpoints.
// Guests can inspect the waste-type catalog and open listings before
// creating an account.  When a cache middleware is supplied it is
// applied to these routes only; authenticated responses are never
// cached.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache echo.MiddlewareFunc) {
	mws := []echo.MiddlewareFunc{}
	if cache != nil {
		mws = append(mws, cache)
	}
	g := e.Group("/v1", mws...)
	g.GET("/waste-types", p.GetWasteTypes)
	// Supports ?status= and ?type= filters.
	g.GET("/listings", p.GetListings)
	g.GET("/listings/:id", p.GetListing)
}
