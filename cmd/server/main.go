package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Simplici0/tierprice/internal/config"
	"github.com/Simplici0/tierprice/internal/db"
	"github.com/Simplici0/tierprice/internal/logger"
	"github.com/Simplici0/tierprice/internal/metrics"
	"github.com/Simplici0/tierprice/internal/migrations"
	"github.com/Simplici0/tierprice/internal/seed"
	"github.com/Simplici0/tierprice/internal/store"
)

const serviceName = "tierprice"

func main() {
	mintActor := flag.String("mint-actor-token", "", "print a signed actor token for the given actor and exit")
	mintTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of a minted actor token")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *mintActor != "" {
		os.Exit(mintToken(cfg, *mintActor, *mintTTL))
	}

	logg := logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "server.exit", err)
		os.Exit(1)
	}
}

func mintToken(cfg *config.Config, actor string, ttl time.Duration) int {
	tokens := newActorTokens(cfg.Auth)
	if tokens == nil {
		fmt.Fprintln(os.Stderr, "PRICING_ACTOR_TOKEN_SECRET is not set")
		return 1
	}
	token, err := tokens.mint(actor, time.Now(), ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to mint token: %v\n", err)
		return 1
	}
	fmt.Println(token)
	return 0
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	database, err := db.Open(ctx, cfg.DB.Path, cfg.DB.BusyTimeout)
	if err != nil {
		return err
	}
	defer database.Close()

	if cfg.App.IsDev() || cfg.DB.AutoMigrate {
		if err := migrations.Up(ctx, database); err != nil {
			return err
		}
		logg.Info(ctx, "database.migrated")
	}

	st := store.New(database)

	if cfg.DB.SeedDemo {
		stats, err := seed.Run(ctx, st, seed.Config{Currency: cfg.Pricing.DefaultCurrency})
		if err != nil {
			return fmt.Errorf("seed demo catalog: %w", err)
		}
		logg.Info(logg.WithFields(ctx, map[string]any{
			"inserts": stats.Inserts,
			"updates": stats.Updates,
		}), "seed.complete")
	}

	if !cfg.Auth.Enabled() {
		logg.Warn(ctx, "auth.actor_tokens_disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv := &server{
		store:           st,
		log:             logg,
		metrics:         metrics.NewPricingMetrics(registry),
		gatherer:        registry,
		actors:          newActorTokens(cfg.Auth),
		defaultCurrency: cfg.Pricing.DefaultCurrency,
		marginThreshold: cfg.Pricing.MarginAlertThreshold,
		now:             time.Now,
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           srv.routes(),
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(logg.WithField(ctx, "addr", httpServer.Addr), "server.listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	logg.Info(ctx, "server.shutdown")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
