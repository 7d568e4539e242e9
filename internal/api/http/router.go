package http

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/console-access/internal/access"
	"github.com/spec-kit/console-access/internal/api/http/handlers"
	"github.com/spec-kit/console-access/internal/auth"
)

// Console routes the admin endpoints back. A caller may use an endpoint
// exactly when the guard lets them open the screen.
const (
	routePermissionView = "/permission/view"
	routeRolePermission = "/permission/role/:id"
	routeUserRoles      = "/permission/user/:id"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Access         *handlers.AccessHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.Middleware
	Guard          access.Guard
	Decisions      auth.DecisionRecorder
	// Metrics serves the Prometheus exposition; nil disables /metrics.
	Metrics http.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}

	var gateOpts []auth.GateOption
	if cfg.Decisions != nil {
		gateOpts = append(gateOpts, auth.WithRecorder(cfg.Decisions))
	}
	requireSession := auth.RequireSession(cfg.Guard, gateOpts...)
	requireRoute := func(route string) fiber.Handler {
		return auth.RequireRoute(cfg.Guard, route, gateOpts...)
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/signin", cfg.Auth.SignIn)
	authGroup.Post("/signout", cfg.AuthMiddleware.Handle, requireSession, cfg.Auth.SignOut)
	authGroup.Get("/session", cfg.AuthMiddleware.Handle, requireSession, cfg.Auth.Session)

	accessGroup := app.Group("/access", cfg.AuthMiddleware.Handle)
	accessGroup.Get("/check", cfg.Access.Check)
	accessGroup.Get("/menu", requireSession, cfg.Access.Menu)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle)
	admin.Get("/permissions", requireRoute(routePermissionView), cfg.Admin.ListPermissions)
	admin.Get("/roles", requireRoute(routePermissionView), cfg.Admin.ListRoles)
	admin.Get("/roles/:id/permissions", requireRoute(routeRolePermission), cfg.Admin.RolePermissions)
	admin.Put("/roles/:id/permissions", requireRoute(routeRolePermission), cfg.Admin.SyncRolePermissions)
	admin.Get("/users/:id/roles", requireRoute(routeUserRoles), cfg.Admin.UserRoles)
	admin.Put("/users/:id/roles", requireRoute(routeUserRoles), cfg.Admin.SyncUserRoles)
}
