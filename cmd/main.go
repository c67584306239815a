package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/golang-cz/devslog"
	"github.com/mdobak/go-xerrors"
	"github.com/robfig/cron/v3"
	"github.com/siahsang/conduit/internal/auth"
	"github.com/siahsang/conduit/internal/config"
	"github.com/siahsang/conduit/internal/core"
	"github.com/siahsang/conduit/internal/database"
	"github.com/siahsang/conduit/internal/filter"
	"github.com/siahsang/conduit/internal/metrics"
	"github.com/siahsang/conduit/internal/ratelimit"
	"github.com/siahsang/conduit/models"
)

// coreService is what the handlers need from *core.Core.
type coreService interface {
	RegisterUser(ctx context.Context, newUser core.NewUser) (*auth.User, error)
	AuthenticateUser(ctx context.Context, email, password string) (*auth.User, error)
	GetUserByID(ctx context.Context, id int64) (*auth.User, error)
	UpdateUser(ctx context.Context, userID int64, patch core.UserPatch) (*auth.User, error)

	CreateArticle(ctx context.Context, author *auth.User, newArticle core.NewArticle) (*models.Article, error)
	GetArticle(ctx context.Context, slug string, viewerID int64) (*models.Article, error)
	UpdateArticle(ctx context.Context, slug string, requesterID int64, patch core.ArticlePatch) (*models.Article, error)
	DeleteArticle(ctx context.Context, slug string, requesterID int64) error
	ListArticles(ctx context.Context, viewerID int64, articleFilter filter.ArticleFilter) (*core.ArticleList, error)

	AddFavorite(ctx context.Context, slug string, userID int64) (*models.Article, error)
	RemoveFavorite(ctx context.Context, slug string, userID int64) (*models.Article, error)
	ReconcileFavoritesCount(ctx context.Context) (int64, error)

	ListTags(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
}

type application struct {
	config  *config.Config
	logger  *slog.Logger
	core    coreService
	auth    *auth.Auth
	limiter ratelimit.Limiter
	metrics *metrics.Metrics
	cron    *cron.Cron
	wg      sync.WaitGroup
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := configLogger(cfg.Log)
	logger.Info("Starting application...", "env", cfg.Env)

	if err := run(cfg, logger); err != nil {
		logger.Error("Application stopped with error", slog.String("stack", xerrors.Sprint(err)))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Error closing database connection", slog.String("error", err.Error()))
		}
	}()
	logger.Info("Database connection established successfully")

	if cfg.DB.AutoMigrate {
		if err := database.Migrate(db, logger); err != nil {
			return err
		}
	}

	limiter, closeLimiter, err := newLimiter(ctx, cfg.RateLimit, logger)
	if err != nil {
		return err
	}
	defer closeLimiter()

	app := &application{
		config:  cfg,
		logger:  logger,
		core:    core.NewCore(db, logger, auth.NewBcryptHasher(cfg.BcryptCost), cfg.DB.QueryTimeout),
		auth:    auth.New(cfg.JWT.Secret, cfg.JWT.TTL),
		limiter: limiter,
		metrics: metrics.New(),
	}

	return app.serve()
}

func configLogger(cfg config.LogConfig) *slog.Logger {
	handlerOptions := &slog.HandlerOptions{
		AddSource: true,
		Level:     cfg.Level,
	}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, handlerOptions))
	}

	handler := devslog.NewHandler(
		os.Stdout, &devslog.Options{
			HandlerOptions:  handlerOptions,
			NewLineAfterLog: false,
		})
	return slog.New(handler)
}

// newLimiter picks the Redis limiter when REDIS_ADDR is set and the in-memory one
// otherwise. A nil Limiter disables rate limiting.
func newLimiter(ctx context.Context, cfg config.RateLimitConfig, logger *slog.Logger) (ratelimit.Limiter, func(), error) {
	noop := func() {}
	if !cfg.Enabled {
		logger.Info("Rate limiting disabled")
		return nil, noop, nil
	}

	if cfg.RedisAddr == "" {
		logger.Info("Using in-memory rate limiter", "rps", cfg.RPS, "burst", cfg.Burst)
		return ratelimit.NewMemoryLimiter(cfg.RPS, cfg.Burst), noop, nil
	}

	client, err := ratelimit.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Using Redis rate limiter", "addr", cfg.RedisAddr, "limit", cfg.Burst, "window", cfg.Window)

	closeClient := func() {
		if err := client.Close(); err != nil {
			logger.Error("Error closing Redis client", slog.String("error", err.Error()))
		}
	}
	return ratelimit.NewRedisLimiter(client, "auth", cfg.Burst, cfg.Window), closeClient, nil
}
