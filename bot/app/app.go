// Package app wires configuration, storage and Telegram routes into a
// runnable bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/pdfbot/bot/convert"
	"github.com/m3rciful/pdfbot/bot/files"
	"github.com/m3rciful/pdfbot/bot/handlers"
	"github.com/m3rciful/pdfbot/bot/interaction"
	"github.com/m3rciful/pdfbot/bot/session"
	"github.com/m3rciful/pdfbot/bot/stats"
	"github.com/m3rciful/pdfbot/core/bootstrap"
	corecmd "github.com/m3rciful/pdfbot/core/cmd"
	coredatabase "github.com/m3rciful/pdfbot/core/database"
	"github.com/m3rciful/pdfbot/core/health"
	"github.com/m3rciful/pdfbot/core/logger"
	coretelegram "github.com/m3rciful/pdfbot/core/telegram"
	"github.com/m3rciful/pdfbot/core/telegram/router"
	tgsender "github.com/m3rciful/pdfbot/core/telegram/sender"
	"github.com/m3rciful/pdfbot/migrations"
)

// App is a bootstrapped bot ready to run.
type App struct {
	cfg      *Config
	db       *sqlx.DB
	redis    *redis.Client
	repo     *stats.Repository
	registry *coretelegram.Registry
	handlers *handlers.Handlers
}

// Bootstrap initializes logging and storage and builds the bot.
func Bootstrap(cfg *Config) (*App, error) {
	var dbCfg *coredatabase.Config
	if cfg.Stats.Backend == BackendPostgres {
		dbCfg = &cfg.Database
	}
	res, err := bootstrap.Run(bootstrap.Options{
		Config:     &cfg.Config,
		Database:   dbCfg,
		Migrations: migrations.FS,
	})
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, db: res.DB}
	if cfg.Stats.Backend == BackendRedis {
		if a.redis, err = connectRedis(cfg.Redis); err != nil {
			return nil, err
		}
	}

	var rdb redis.Cmdable
	if a.redis != nil {
		rdb = a.redis
	}
	backend, err := NewStatsBackend(cfg, a.db, rdb)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.repo = stats.NewRepository(backend)

	// Load once so a legacy record is migrated before the first update.
	ctx := logger.Background()
	if _, err := a.repo.Load(ctx); err != nil {
		logger.Warn(ctx, "stats", "stats.load",
			slog.String("status", "error"),
			slog.String("backend", backend.Name()),
			slog.String("err", err.Error()),
		)
	}

	storage := files.NewStorage(cfg.Files.Dir)
	ctrl := interaction.NewController(interaction.Deps{
		Sessions: session.NewRegistry(),
		Engine:   convert.NewEngine(convert.NewPDFEncoder(), storage, a.repo),
		Stats:    a.repo,
		Storage:  storage,
		AdminID:  cfg.Telegram.AdminID,
	})

	a.handlers = handlers.New(ctrl)
	a.registry = coretelegram.NewRegistry()
	if err := a.handlers.Register(a.registry); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// NewStatsBackend selects the statistics backend named in cfg.
func NewStatsBackend(cfg *Config, db *sqlx.DB, rdb redis.Cmdable) (stats.Backend, error) {
	switch cfg.Stats.Backend {
	case BackendFile, "":
		return stats.NewFileBackend(cfg.Stats.Path, cfg.Stats.LegacyPath), nil
	case BackendPostgres:
		if db == nil {
			return nil, errors.New("app: postgres stats backend needs a database")
		}
		return stats.NewPostgresBackend(db), nil
	case BackendRedis:
		if rdb == nil {
			return nil, errors.New("app: redis stats backend needs a client")
		}
		return stats.NewRedisBackend(rdb, cfg.Stats.RedisPrefix), nil
	default:
		return nil, fmt.Errorf("app: unknown stats backend %q", cfg.Stats.Backend)
	}
}

func connectRedis(cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		logger.Error(ctx, "stats", "redis.connect",
			slog.String("status", "error"),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	logger.Info(ctx, "stats", "redis.connect",
		slog.String("status", "ok"),
		slog.Int("db", cfg.DB),
		slog.Duration("duration", logger.Took(start)),
	)
	return client, nil
}

// TelegramRunOptions builds routes and middleware for the bot runtime.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{
		AdminID: a.cfg.Telegram.AdminID,
	})
	routes = append(routes, router.CallbackRoute(a.registry, router.CallbackOptions{}))
	routes = append(routes, router.PhotoRoute(a.handlers.Photo))
	routes = append(routes, router.FallbackRoutes(a.registry, a.handlers)...)

	return coretelegram.RunOptions{
		Config:   &a.cfg.Config,
		Registry: a.registry,
		DispatcherOptions: tgsender.Options{
			MaxRetries:  3,
			MaxDuration: 12 * time.Second,
		},
		Middlewares: coretelegram.DefaultMiddlewares(),
		Routes:      routes,
		OnStop: func(context.Context, coretelegram.Runtime) error {
			return a.Close()
		},
	}, nil
}

// Services returns the background services that run next to the bot.
func (a *App) Services() []corecmd.Service {
	if !a.cfg.HTTP.Enabled {
		return nil
	}
	srv := health.NewServer(a.cfg.HTTP.Listen)
	return []corecmd.Service{{
		Name: "http",
		Run: func(ctx context.Context) error {
			return health.Run(ctx, srv)
		},
	}}
}

// Close releases database and redis connections.
func (a *App) Close() error {
	var errs []error
	if a.db != nil {
		errs = append(errs, a.db.Close())
		a.db = nil
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
		a.redis = nil
	}
	return errors.Join(errs...)
}
