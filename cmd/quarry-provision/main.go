// Command quarry-provision bootstraps a domain from the command line: it
// creates the domain's default indices and writes the seed entities. With no
// --domain flag it provisions the root domain.
//
// Flags:
//
//	--domain  domain id to provision (default: the root domain)
//	--author  author recorded on the seed entities (default: administrator)
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/quarryhq/quarry/internal/adapter/postgres"
	"github.com/quarryhq/quarry/internal/app"
	"github.com/quarryhq/quarry/internal/config"
	"github.com/quarryhq/quarry/internal/domain"
	"github.com/quarryhq/quarry/internal/provision"
)

func main() {
	domainFlag := flag.String("domain", domain.RootDomain, "domain id to provision")
	authorFlag := flag.String("author", "administrator", "author recorded on seed entities")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := postgres.Migrate(ctx, cfg.Database.DSN); err != nil {
		logger.Error("migrate", slog.String("error", err.Error()))
		os.Exit(1)
	}

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	gw := postgres.New(pool, logger, postgres.Config{
		DefaultPageSize: cfg.Store.DefaultPageSize,
		MaxPageSize:     cfg.Store.MaxPageSize,
		ScrollTTL:       cfg.Store.ScrollTTL,
	})

	prov := provision.New(logger, gw, cfg.Provision)
	if err := prov.InitDomain(ctx, *authorFlag, *domainFlag); err != nil {
		logger.Error("provision domain",
			slog.String("domain", *domainFlag),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	logger.Info("domain ready", slog.String("domain", *domainFlag))
}
