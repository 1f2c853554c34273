package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/parking"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Navigation guard
	GuardDecisionsTotal metric.Int64Counter

	// Auth API
	LoginAttemptsTotal   metric.Int64Counter
	RegistrationsTotal   metric.Int64Counter
	TokenRejectionsTotal metric.Int64Counter
	TokensIssuedTotal    metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.GuardDecisionsTotal, _ = meter.Int64Counter(
		"parking.guard.decisions.total",
		metric.WithDescription("Total number of navigation guard decisions"),
		metric.WithUnit("{decision}"),
	)

	m.LoginAttemptsTotal, _ = meter.Int64Counter(
		"parking.auth.login.attempts.total",
		metric.WithDescription("Total number of login attempts by result"),
		metric.WithUnit("{attempt}"),
	)

	m.RegistrationsTotal, _ = meter.Int64Counter(
		"parking.auth.registrations.total",
		metric.WithDescription("Total number of user registrations"),
		metric.WithUnit("{user}"),
	)

	m.TokenRejectionsTotal, _ = meter.Int64Counter(
		"parking.auth.token.rejections.total",
		metric.WithDescription("Total number of API requests rejected for a bad or missing token"),
		metric.WithUnit("{request}"),
	)

	m.TokensIssuedTotal, _ = meter.Int64Counter(
		"parking.auth.tokens.issued.total",
		metric.WithDescription("Total number of access tokens issued"),
		metric.WithUnit("{token}"),
	)

	return m
}
