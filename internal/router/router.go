package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // Echo web framework used for routing

	"github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/handler"    // handlers implementing the endpoints
	"github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/middleware" // JWT authentication and role enforcement
	"github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/model"      // role constants
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check, used by load balancers and
// monitoring systems to verify the service is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication surface.  Registration and
// password reset are multi-step OTP flows and live under /api/auth
// without a session; profile and change-password require a valid
// access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/api/auth")
	// Registration flow: request a code, verify it, or ask for a new
	// one.  No account exists until the verify step succeeds.
	g.POST("/register", a.Register)
	g.POST("/register/verify", a.VerifyRegister)
	g.POST("/register/resend", a.ResendRegister)
	// Password reset flow: request a code, trade it for a single-use
	// verification token, then set the new password.
	g.POST("/request-otp", a.RequestOTP)
	g.POST("/verify-otp", a.VerifyOTP)
	g.POST("/reset-password", a.ResetPassword)
	g.POST("/login", a.Login)
	// short alias kept for clients that call the login endpoint at the
	// top level
	e.POST("/api/login", a.Login)

	auth := e.Group("/api/auth")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Profile)
	auth.POST("/change-password", a.ChangePassword)

	profile := e.Group("/api/profile")
	profile.Use(middleware.JWTAuth(jwtSecret))
	profile.GET("", a.Profile)
}

// RegisterComplaints wires the complaint endpoints for each role.
// Users file and track their own complaints, admins work the ones
// assigned to them, and heads handle whatever the resolver could not
// place.
func RegisterComplaints(e *echo.Echo, h *handler.ComplaintHandler, jwtSecret string) {
	user := e.Group("/api/complaints")
	user.Use(middleware.JWTAuth(jwtSecret))
	user.POST("", h.Create)
	user.GET("", h.ListMine)
	user.GET("/:id", h.Get)

	admin := e.Group("/api/admin/complaints")
	admin.Use(middleware.JWTAuth(jwtSecret))
	admin.Use(middleware.RequireRole(model.RoleAdmin, model.RoleHead))
	admin.GET("", h.Assigned)
	admin.PATCH("/:id/status", h.UpdateStatus)

	head := e.Group("/api/head/complaints")
	head.Use(middleware.JWTAuth(jwtSecret))
	head.Use(middleware.RequireRole(model.RoleHead))
	head.GET("/unassigned", h.Unassigned)
	head.POST("/:id/assign", h.Reassign)
}

// RegisterHead wires the head-only management endpoints for districts,
// routes, buses and admin route assignments.  The public read-only
// listings are registered separately with the cache middleware so
// guests can browse the network without a session.
func RegisterHead(e *echo.Echo, h *handler.HeadHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	head := e.Group("/api/head")
	head.Use(middleware.JWTAuth(jwtSecret))
	head.Use(middleware.RequireRole(model.RoleHead))
	head.POST("/districts", h.CreateDistrict)
	head.POST("/routes", h.CreateRoute)
	head.POST("/buses", h.CreateBus)
	head.PUT("/admins/:id/routes", h.SetAdminRoutes)
	head.GET("/admins/:id/routes", h.GetAdminRoutes)
	head.DELETE("/admins/:id/routes", h.ClearAdminRoutes)

	// Public listings of the transit network, cached in Redis.
	pub := e.Group("/api")
	if cache != nil {
		pub.Use(cache)
	}
	pub.GET("/districts", h.ListDistricts)
	pub.GET("/routes", h.ListRoutes)
	pub.GET("/buses", h.ListBuses)
}
