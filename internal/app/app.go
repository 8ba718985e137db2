// Package app wires the store together: configuration, logging, database
// pool, migrations, the backend gateway, and the entity engines.
package app

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quarryhq/quarry/internal/adapter/postgres"
	"github.com/quarryhq/quarry/internal/cache"
	"github.com/quarryhq/quarry/internal/config"
	"github.com/quarryhq/quarry/internal/domain"
	"github.com/quarryhq/quarry/internal/provision"
	"github.com/quarryhq/quarry/internal/service/document"
	"github.com/quarryhq/quarry/internal/service/tenant"
	"github.com/quarryhq/quarry/internal/service/view"
)

// App is the assembled store: one gateway, one engine per entity kind.
type App struct {
	Log       *slog.Logger
	Gateway   *postgres.Gateway
	Documents *document.Service
	Views     *view.Service
	Tenants   *tenant.Service

	pool *pgxpool.Pool
}

// New builds the full store against cfg: connects the pool, runs pending
// migrations, provisions the root domain, and constructs the engines.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	if err := postgres.Migrate(ctx, cfg.Database.DSN); err != nil {
		return nil, err
	}

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	gw := postgres.New(pool, log, postgres.Config{
		DefaultPageSize: cfg.Store.DefaultPageSize,
		MaxPageSize:     cfg.Store.MaxPageSize,
		ScrollTTL:       cfg.Store.ScrollTTL,
	})

	prov := provision.New(log, gw, cfg.Provision)
	if err := prov.InitRoot(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	cacheCfg := cache.Config{
		TTL:             cfg.Cache.TTL,
		CleanupInterval: cfg.Cache.CleanupInterval,
	}

	return &App{
		Log:       log,
		Gateway:   gw,
		Documents: document.New(log, gw, cacheCfg, document.Kind{}),
		Views:     view.New(log, gw, cacheCfg),
		Tenants:   tenant.New(log, gw, prov, cacheCfg),
		pool:      pool,
	}, nil
}

// Close releases the database pool.
func (a *App) Close() { a.pool.Close() }

// Run is the daemon entry point. It assembles the store and blocks until the
// context is canceled.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)

	logger.Info("starting store",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
	)

	a, err := New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Info("store ready", slog.String("root_domain", domain.RootDomain))

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}
