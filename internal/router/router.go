package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/adminkit/adminkit/internal/api/group"
	"github.com/adminkit/adminkit/internal/api/role"
	"github.com/adminkit/adminkit/internal/api/session"
	"github.com/adminkit/adminkit/internal/api/user"
)

// Config contains dependencies needed for the router setup
type Config struct {
	SessionHandler         session.Handler
	UserHandler            user.Handler
	RoleHandler            role.Handler
	GroupHandler           group.Handler
	AuthenticateMiddleware func(http.Handler) http.Handler
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (logger, requestID, recoverer) are expected to be
// applied before mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// Public auth routes
		r.Group(func(r chi.Router) {
			r.Post("/auth/register", cfg.SessionHandler.Register)
			r.Post("/auth/login", cfg.SessionHandler.Login)
			r.Get("/auth/{provider}", cfg.SessionHandler.OAuthBegin)
			r.Get("/auth/{provider}/callback", cfg.SessionHandler.OAuthCallback)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthenticateMiddleware)

			r.Post("/auth/logout", cfg.SessionHandler.Logout)
			r.Get("/auth/me", cfg.SessionHandler.Me)

			r.Route("/users", func(r chi.Router) {
				r.Get("/", cfg.UserHandler.ListUsers)
				r.Post("/", cfg.UserHandler.CreateUser)
				r.Get("/search", cfg.UserHandler.SearchUsers)
				r.Get("/availability", cfg.UserHandler.CheckAvailability)
				r.Get("/recent", cfg.UserHandler.RecentlyRegistered)
				r.Get("/active", cfg.UserHandler.ActiveSince)
				r.Post("/bulk", cfg.UserHandler.BulkCreateUsers)
				r.Post("/bulk/role", cfg.UserHandler.BulkAssignRole)
				r.Post("/bulk/group", cfg.UserHandler.BulkAssignGroup)
				r.Post("/bulk/delete", cfg.UserHandler.BulkDeleteUsers)
				r.Post("/bulk/restore", cfg.UserHandler.BulkRestoreUsers)
				r.Post("/bulk/purge", cfg.UserHandler.BulkPurgeUsers)
				r.Get("/{id}", cfg.UserHandler.GetUser)
				r.Put("/{id}", cfg.UserHandler.UpdateUser)
				r.Delete("/{id}", cfg.UserHandler.DeleteUser)
				r.Post("/{id}/restore", cfg.UserHandler.RestoreUser)
				r.Delete("/{id}/purge", cfg.UserHandler.PurgeUser)
			})

			r.Route("/roles", func(r chi.Router) {
				r.Get("/", cfg.RoleHandler.ListRoles)
				r.Post("/", cfg.RoleHandler.CreateRole)
				r.Get("/search", cfg.RoleHandler.SearchRoles)
				r.Get("/by-name", cfg.RoleHandler.GetRoleByName)
				r.Get("/{id}", cfg.RoleHandler.GetRole)
				r.Put("/{id}", cfg.RoleHandler.UpdateRole)
				r.Delete("/{id}", cfg.RoleHandler.DeleteRole)
				r.Post("/{id}/restore", cfg.RoleHandler.RestoreRole)
				r.Delete("/{id}/purge", cfg.RoleHandler.PurgeRole)
				r.Get("/{id}/users/count", cfg.RoleHandler.GetRoleUserCount)
			})

			r.Route("/groups", func(r chi.Router) {
				r.Get("/", cfg.GroupHandler.ListGroups)
				r.Post("/", cfg.GroupHandler.CreateGroup)
				r.Get("/search", cfg.GroupHandler.SearchGroups)
				r.Get("/by-name", cfg.GroupHandler.GetGroupByName)
				r.Get("/{id}", cfg.GroupHandler.GetGroup)
				r.Put("/{id}", cfg.GroupHandler.UpdateGroup)
				r.Delete("/{id}", cfg.GroupHandler.DeleteGroup)
				r.Post("/{id}/restore", cfg.GroupHandler.RestoreGroup)
				r.Delete("/{id}/purge", cfg.GroupHandler.PurgeGroup)
				r.Get("/{id}/users/count", cfg.GroupHandler.GetGroupUserCount)
			})
		})
	})

	return r
}
