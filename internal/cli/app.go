package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Ulixes-8/orderflow/internal/catalog"
	"github.com/Ulixes-8/orderflow/internal/config"
	"github.com/Ulixes-8/orderflow/internal/entities"
	"github.com/Ulixes-8/orderflow/internal/metrics"
	"github.com/Ulixes-8/orderflow/internal/repo"
	"github.com/Ulixes-8/orderflow/internal/service"
	"github.com/Ulixes-8/orderflow/internal/sqlite"
	"github.com/Ulixes-8/orderflow/pkg/trm"

	"github.com/jmoiron/sqlx"
)

type orderService interface {
	PlaceOrder(ctx context.Context, mobile, message string) (entities.Order, error)
	ListOutstanding(ctx context.Context) ([]service.OutstandingGroup, error)
	ShowOrder(ctx context.Context, rawID string) (entities.Order, error)
	FulfillOrder(ctx context.Context, rawID, rawAuthCode string) (entities.Order, error)
	PlaceBatch(ctx context.Context, lines []string) (service.BatchResult, error)
}

type orderStore interface {
	service.OrderRepo
	LoadMetrics(ctx context.Context) (*metrics.Collector, error)
	SaveMetrics(ctx context.Context, c *metrics.Collector) error
}

// app wires one invocation: config, logger, store, metrics snapshot, service.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	db      *sqlx.DB
	store   orderStore
	metrics *metrics.Collector
	svc     orderService
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger := newLogger(cfg)

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalogue: %w", err)
	}

	db, err := sqlite.New(cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	store := repo.NewSQLiteRepo(db)
	collector, err := store.LoadMetrics(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	limits := service.Limits{
		MaxMessageLen: cfg.Limits.MaxMessageLen,
		MaxItems:      cfg.Limits.MaxItems,
		MaxQty:        cfg.Limits.MaxQty,
	}
	svc := service.NewOrderService(logger, trm.NewManager(db), store, cat, collector, cfg.Auth.Code, limits)

	return &app{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		store:   store,
		metrics: collector,
		svc:     svc,
	}, nil
}

// close persists the metrics snapshot and releases the store.
func (a *app) close(ctx context.Context) {
	if err := a.store.SaveMetrics(ctx, a.metrics); err != nil {
		a.logger.Error("failed to save metrics snapshot", "error", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", "error", err)
	}
}

// Logs go to stderr: stdout carries only the JSON result envelope.
func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}
	if cfg.Env == "production" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func logLevel(level string) slog.Level {
	switch level {
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
