package container

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/adminkit/adminkit/app/db"
	"github.com/adminkit/adminkit/config"
	"github.com/adminkit/adminkit/internal/api/group"
	"github.com/adminkit/adminkit/internal/api/oauthlink"
	"github.com/adminkit/adminkit/internal/api/role"
	"github.com/adminkit/adminkit/internal/api/session"
	"github.com/adminkit/adminkit/internal/api/user"
)

// Container holds all application dependencies
type Container struct {
	Config         *config.Config
	Logger         *slog.Logger
	Pool           *pgxpool.Pool
	SessionHandler *session.HandlerImpl
	UserHandler    *user.HandlerImpl
	RoleHandler    *role.HandlerImpl
	GroupHandler   *group.HandlerImpl
}

// NewContainer initializes and returns a new dependency container
func NewContainer(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		return nil, err
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		return nil, err
	}

	// Record stores
	userStore := user.NewStore(pool, logger)
	roleStore := role.NewStore(pool, logger)
	groupStore := group.NewStore(pool, logger)
	linkStore := oauthlink.NewStore(pool, logger)

	// Services
	linkService := oauthlink.NewLinkService(linkStore, logger)
	userService := user.NewUserService(userStore, linkService, logger)
	roleService := role.NewRoleService(roleStore, userStore, logger)
	groupService := group.NewGroupService(groupStore, userStore, logger)
	sessionService := session.NewSessionService(userService, linkService, cfg.Auth, logger)

	// Handlers
	sessionHandler := session.NewHandlerImpl(sessionService, logger)
	userHandler := user.NewHandlerImpl(userService, logger)
	roleHandler := role.NewHandlerImpl(roleService, logger)
	groupHandler := group.NewHandlerImpl(groupService, logger)

	return &Container{
		Config:         cfg,
		Logger:         logger,
		Pool:           pool,
		SessionHandler: sessionHandler,
		UserHandler:    userHandler,
		RoleHandler:    roleHandler,
		GroupHandler:   groupHandler,
	}, nil
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// WaitForDB waits for the database to be ready
func (c *Container) WaitForDB(ctx context.Context) bool {
	return database.WaitForDB(ctx, c.Pool, c.Logger)
}

// RunMigrations runs database migrations
func (c *Container) RunMigrations(connectionURL string) error {
	return database.RunMigrations(connectionURL, c.Logger)
}
