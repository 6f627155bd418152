package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tierprice"

// PricingMetrics records engine outcomes observed by the service.
type PricingMetrics struct {
	resolutions      *prometheus.CounterVec
	overlapWarnings  prometheus.Counter
	validationErrors *prometheus.CounterVec
	priceChanges     prometheus.Counter
	marginAlerts     prometheus.Counter
	requestDurations *prometheus.HistogramVec
}

// NewPricingMetrics registers the pricing metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewPricingMetrics(reg prometheus.Registerer) *PricingMetrics {
	if reg == nil {
		return &PricingMetrics{}
	}
	m := &PricingMetrics{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_resolutions_total",
			Help:      "Price resolutions by source of the unit price.",
		}, []string{"source"}),
		overlapWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tier_overlap_warnings_total",
			Help:      "Resolutions where more than one tier matched the quantity.",
		}),
		validationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tier_validation_errors_total",
			Help:      "Tier validation errors by code.",
		}, []string{"code"}),
		priceChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_changes_total",
			Help:      "Price changes recorded.",
		}),
		marginAlerts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "margin_below_threshold_total",
			Help:      "Margin computations that fell below the alert threshold.",
		}),
		requestDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
	reg.MustRegister(
		m.resolutions,
		m.overlapWarnings,
		m.validationErrors,
		m.priceChanges,
		m.marginAlerts,
		m.requestDurations,
	)
	return m
}

// ObserveResolution counts a resolution; tiered reports whether a tier applied.
func (m *PricingMetrics) ObserveResolution(tiered bool, overlapping bool) {
	if m == nil || m.resolutions == nil {
		return
	}
	source := "current"
	if tiered {
		source = "tier"
	}
	m.resolutions.WithLabelValues(source).Inc()
	if overlapping {
		m.overlapWarnings.Inc()
	}
}

func (m *PricingMetrics) IncValidationError(code string) {
	if m == nil || m.validationErrors == nil {
		return
	}
	m.validationErrors.WithLabelValues(normalizeLabel(code)).Inc()
}

func (m *PricingMetrics) IncPriceChange() {
	if m == nil || m.priceChanges == nil {
		return
	}
	m.priceChanges.Inc()
}

func (m *PricingMetrics) IncMarginAlert() {
	if m == nil || m.marginAlerts == nil {
		return
	}
	m.marginAlerts.Inc()
}

func (m *PricingMetrics) ObserveRequest(route, method string, status int, duration time.Duration) {
	if m == nil || m.requestDurations == nil {
		return
	}
	m.requestDurations.
		WithLabelValues(normalizeLabel(route), method, statusLabel(status)).
		Observe(duration.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
