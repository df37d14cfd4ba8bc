package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/realty-crm/internal/api/http/handlers"
	"github.com/spec-kit/realty-crm/internal/auth"
	"github.com/spec-kit/realty-crm/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Clients        *handlers.ClientsHandler
	Properties     *handlers.PropertiesHandler
	Dashboard      *handlers.DashboardHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)

	authProtected := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	authProtected.Get("/me", cfg.Auth.Me)
	authProtected.Post("/password/change", cfg.Auth.ChangePassword)

	users := app.Group("/users", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	users.Get("/", cfg.Users.ListUsers)
	users.Get("/assignable-agents", cfg.Users.ListAssignableAgents)
	users.Post("/", auth.RequireRole(domain.RoleDirector, domain.RoleManager), cfg.Users.CreateUser)
	users.Put("/:id", auth.RequireRole(domain.RoleDirector, domain.RoleManager), cfg.Users.UpdateUser)
	users.Delete("/:id", auth.RequireRole(domain.RoleDirector, domain.RoleManager), cfg.Users.DeleteUser)

	clients := app.Group("/clients", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	clients.Get("/", cfg.Clients.ListClients)
	clients.Post("/", cfg.Clients.CreateClient)
	clients.Get("/:id", cfg.Clients.GetClient)
	clients.Put("/:id", cfg.Clients.UpdateClient)
	clients.Delete("/:id", cfg.Clients.DeleteClient)
	clients.Patch("/:id/stage", cfg.Clients.ChangeStage)
	clients.Patch("/:id/owner", auth.RequireRole(domain.RoleDirector, domain.RoleManager), cfg.Clients.ReassignClient)
	clients.Get("/:id/notes", cfg.Clients.ListNotes)
	clients.Post("/:id/notes", cfg.Clients.AddNote)

	properties := app.Group("/properties", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	properties.Get("/", cfg.Properties.ListProperties)
	properties.Post("/", cfg.Properties.CreateProperty)
	properties.Put("/:id", cfg.Properties.UpdateProperty)
	properties.Delete("/:id", cfg.Properties.DeleteProperty)

	dashboard := app.Group("/dashboard", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	dashboard.Get("/stats", cfg.Dashboard.Stats)
}
