package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/Simplici0/tierprice/internal/logger"
	"github.com/Simplici0/tierprice/internal/metrics"
	"github.com/Simplici0/tierprice/internal/pricing"
	"github.com/Simplici0/tierprice/internal/store"
)

// variantStore is the persistence the handlers need.
type variantStore interface {
	CreateVariant(ctx context.Context, v pricing.Variant) (pricing.Variant, error)
	GetVariant(ctx context.Context, id string) (pricing.Variant, error)
	ReplaceTiers(ctx context.Context, id string, tiers []pricing.Tier) (pricing.Variant, error)
	ApplyPriceChange(ctx context.Context, id string, build store.RecordFunc) (pricing.Variant, pricing.PriceChangeRecord, error)
	ListPriceChanges(ctx context.Context, id string) ([]pricing.PriceChangeRecord, error)
	Ping(ctx context.Context) error
}

type server struct {
	store           variantStore
	log             *logger.Logger
	metrics         *metrics.PricingMetrics
	gatherer        prometheus.Gatherer
	actors          *actorTokens
	defaultCurrency string
	marginThreshold decimal.Decimal
	now             func() time.Time
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID(s.log))
	r.Use(recoverer(s.log))
	r.Use(requestLogging(s.log, s.metrics))

	r.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/variants", func(r chi.Router) {
		r.With(s.actors.requireActor(s.log)).Post("/", s.handleCreateVariant)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetVariant)
			r.Post("/resolve-price", s.handleResolvePrice)
			r.Post("/tiers/validate", s.handleValidateTiers)
			r.Get("/margin", s.handleMargin)
			r.Get("/price-changes", s.handleListPriceChanges)

			r.Group(func(r chi.Router) {
				r.Use(s.actors.requireActor(s.log))
				r.Put("/tiers", s.handleReplaceTiers)
				r.Post("/price-change", s.handlePriceChange)
			})
		})
	})

	return r
}
