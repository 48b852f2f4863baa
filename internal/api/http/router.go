package http

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/coursekit/course-service/internal/api/http/handlers"
	"github.com/coursekit/course-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Courses        *handlers.CourseHandler
	Enrollment     *handlers.EnrollmentHandler
	AuthMiddleware *auth.AuthMiddleware
	// Metrics is served at MetricsPath when set.
	Metrics     http.Handler
	MetricsPath string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil && cfg.MetricsPath != "" {
		app.Get(cfg.MetricsPath, adaptor.HTTPHandler(cfg.Metrics))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/password/reset/request", cfg.Auth.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Auth.ConfirmPasswordReset)

	// Guards are attached per route: group middleware registered under an
	// empty prefix would also run for public and unmatched paths.
	user := func(h ...fiber.Handler) []fiber.Handler {
		return append([]fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireAnyRole()}, h...)
	}
	admin := func(h ...fiber.Handler) []fiber.Handler {
		return append([]fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireAdmin()}, h...)
	}

	authGroup.Post("/password/change", user(cfg.Auth.ChangePassword)...)
	app.Get("/me", user(cfg.Enrollment.Me)...)
	app.Post("/attendance/validate", user(cfg.Enrollment.ValidateCode)...)

	app.Get("/courses", user(cfg.Courses.List)...)
	app.Post("/courses", admin(cfg.Courses.Create)...)
	app.Get("/courses/:id", user(cfg.Courses.Get)...)
	app.Put("/courses/:id", admin(cfg.Courses.Update)...)
	app.Get("/courses/:id/history", admin(cfg.Courses.History)...)
	app.Post("/courses/:id/image", admin(cfg.Courses.UploadImage)...)
	app.Get("/courses/:id/images", user(cfg.Courses.ListImages)...)

	app.Post("/courses/:id/register", user(cfg.Enrollment.Register)...)
	app.Post("/courses/:id/checkout", user(cfg.Enrollment.Checkout)...)
	app.Post("/courses/:id/code", admin(cfg.Enrollment.GenerateCode)...)
	app.Get("/courses/:id/waiting", admin(cfg.Enrollment.Waiting)...)
	app.Post("/courses/:id/decisions", admin(cfg.Enrollment.Decide)...)
}
