// Package bootstrap wires configuration into the storage adapters, the
// progress service and the refresh job. Both cmd/worker and cmd/progressctl
// build their dependencies through it.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/quiz-hub/level-manager/config"
	"github.com/quiz-hub/level-manager/internal/application/service"
	"github.com/quiz-hub/level-manager/internal/domain/catalog"
	"github.com/quiz-hub/level-manager/internal/domain/progress"
	"github.com/quiz-hub/level-manager/internal/domain/selection"
	"github.com/quiz-hub/level-manager/internal/infrastructure/catalogfile"
	"github.com/quiz-hub/level-manager/internal/infrastructure/persistence/memory"
	"github.com/quiz-hub/level-manager/internal/infrastructure/persistence/mongo"
	"github.com/quiz-hub/level-manager/internal/infrastructure/persistence/postgres"
	"github.com/quiz-hub/level-manager/internal/infrastructure/persistence/redis"
	"github.com/quiz-hub/level-manager/internal/infrastructure/scheduler/jobs"
)

// ErrCatalogReadOnly is returned when seeding a catalog that is not stored in postgres.
var ErrCatalogReadOnly = errors.New("catalog is read from CATALOG_FILE and cannot be seeded")

// Container holds the wired application.
type Container struct {
	Config   *config.Config
	Logger   *slog.Logger
	Users    progress.UserRepository
	Catalog  catalog.Repository
	Progress *service.ProgressService
	Refresh  *jobs.RefreshAllUsersJob

	pg           *postgres.Connection
	pgCatalog    *postgres.CatalogRepository
	catalogCache *redis.CatalogCache
	closers      []func()
}

// NewLogger builds the process logger: JSON in production, text otherwise,
// unless LOG_FORMAT says so explicitly.
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Observability.LogLevel)}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	format := cfg.Observability.LogFormat
	if format == "" {
		format = "text"
		if cfg.IsProduction() {
			format = "json"
		}
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler).With("app", cfg.App.Name)
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Build connects to the configured stores and assembles the service.
// On error, everything opened so far is closed.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}
	if err := c.build(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Container) build(ctx context.Context) error {
	cfg := c.Config

	if cfg.Storage.Backend == config.BackendPostgres || cfg.Catalog.Source == config.CatalogFromPostgres {
		if err := c.openPostgres(ctx); err != nil {
			return err
		}
	}

	if err := c.buildUsers(ctx); err != nil {
		return err
	}

	cache, err := c.openRedis(ctx)
	if err != nil {
		return err
	}

	if err := c.buildCatalog(cache); err != nil {
		return err
	}

	var cursors selection.CursorStore
	if cache != nil {
		cursors = redis.NewCursorStore(cache)
	}
	selector, err := selection.New(selection.Policy(cfg.Selector.Policy), cursors)
	if err != nil {
		return fmt.Errorf("selector: %w", err)
	}

	c.Progress = service.NewProgressService(c.Users, c.Catalog, selector, c.Logger)
	c.Refresh = jobs.NewRefreshAllUsersJob(c.Users, c.Progress, c.Logger, jobs.RefreshAllUsersConfig{
		Concurrency:      cfg.Scheduler.Concurrency,
		Timeout:          cfg.Scheduler.JobTimeout,
		ConflictAttempts: cfg.Scheduler.ConflictAttempts,
		ConflictBackoff:  jobs.DefaultRefreshAllUsersConfig().ConflictBackoff,
	})

	c.Logger.Info("application wired",
		"storage", cfg.Storage.Backend,
		"catalog", cfg.Catalog.Source,
		"selector", cfg.Selector.Policy,
		"redis", cache != nil,
	)
	return nil
}

// openRedis returns nil without error when Redis is not configured, or when it
// is unreachable and nothing strictly needs it.
func (c *Container) openRedis(ctx context.Context) (*redis.Cache, error) {
	cfg := c.Config
	if !cfg.Redis.Enabled() {
		return nil, nil
	}

	cache, err := redis.NewCache(ctx, cfg.Redis.URL, cfg.Redis.DialTimeout)
	if err != nil {
		if cfg.Selector.Policy == string(selection.PolicySharedRoundRobin) {
			return nil, fmt.Errorf("redis: %w", err)
		}
		c.Logger.Warn("failed to connect to Redis, caching disabled", "error", err)
		return nil, nil
	}

	c.closers = append(c.closers, func() { _ = cache.Close() })
	c.Logger.Info("redis connection established")
	return cache, nil
}

func (c *Container) openPostgres(ctx context.Context) error {
	db := c.Config.Database
	conn, err := postgres.NewConnection(ctx, db.URL, postgres.PoolOptions{
		MaxConns:        int32(db.MaxConns),
		MinConns:        int32(db.MinConns),
		MaxConnLifetime: db.ConnMaxLifetime,
		MaxConnIdleTime: db.ConnMaxIdleTime,
	})
	if err != nil {
		return err
	}
	c.pg = conn
	c.closers = append(c.closers, conn.Close)
	c.Logger.Info("database connection established")

	if db.AutoMigrate {
		if _, err := c.Migrate(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (c *Container) buildUsers(ctx context.Context) error {
	switch c.Config.Storage.Backend {
	case config.BackendPostgres:
		c.Users = postgres.NewUserRepository(c.pg)
	case config.BackendMongo:
		client, err := mongo.Connect(ctx, c.Config.Mongo.URI, c.Config.Mongo.ConnectTimeout)
		if err != nil {
			return err
		}
		c.closers = append(c.closers, func() { _ = client.Disconnect(context.Background()) })
		c.Users = mongo.NewUserRepository(client.Database(c.Config.Mongo.Database))
		c.Logger.Info("mongo connection established", "database", c.Config.Mongo.Database)
	case config.BackendMemory:
		c.Users = memory.NewUserRepository()
		c.Logger.Warn("using in-memory user storage, data is lost on exit")
	default:
		return fmt.Errorf("unknown storage backend %q", c.Config.Storage.Backend)
	}
	return nil
}

func (c *Container) buildCatalog(cache *redis.Cache) error {
	var source catalog.Repository
	switch c.Config.Catalog.Source {
	case config.CatalogFromPostgres:
		c.pgCatalog = postgres.NewCatalogRepository(c.pg)
		source = c.pgCatalog
	case config.CatalogFromFile:
		topics, err := catalogfile.Load(c.Config.Catalog.File)
		if err != nil {
			return err
		}
		source = memory.NewCatalog(topics)
		c.Logger.Info("catalog loaded from file", "file", c.Config.Catalog.File, "topics", len(topics))
	default:
		return fmt.Errorf("unknown catalog source %q", c.Config.Catalog.Source)
	}

	if cache != nil {
		c.catalogCache = redis.NewCatalogCache(source, cache, c.Config.Redis.CatalogTTL, c.Logger)
		c.Catalog = c.catalogCache
		return nil
	}
	c.Catalog = source
	return nil
}

// Migrate applies pending postgres migrations.
func (c *Container) Migrate(ctx context.Context) (int, error) {
	if c.pg == nil {
		return 0, errors.New("postgres is not configured")
	}
	n, err := postgres.NewMigrator(c.pg).Migrate(ctx)
	if err != nil {
		return n, fmt.Errorf("migrate: %w", err)
	}
	c.Logger.Info("database schema is up to date", "applied", n)
	return n, nil
}

// SeedCatalog replaces the stored catalog and drops the cached copy.
func (c *Container) SeedCatalog(ctx context.Context, topics []catalog.Topic) error {
	if c.pgCatalog == nil {
		return ErrCatalogReadOnly
	}
	if err := c.pgCatalog.Replace(ctx, topics); err != nil {
		return err
	}
	if c.catalogCache != nil {
		if err := c.catalogCache.Invalidate(ctx); err != nil {
			c.Logger.Warn("failed to invalidate catalog cache", "error", err)
		}
	}
	c.Logger.Info("catalog seeded", "topics", len(topics))
	return nil
}

// Close releases connections in reverse order of opening.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
