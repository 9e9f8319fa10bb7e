package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login outcome labels
const (
	OutcomeSuccess             = "success"
	OutcomeInvalidCredentials  = "invalid_credentials"
	OutcomeInvalidTokens       = "invalid_tokens"
	OutcomeUnknownSigningKey   = "unknown_signing_key"
	OutcomeProviderUnavailable = "provider_unavailable"
	OutcomeError               = "error"
)

// Session validation outcome labels
const (
	ValidationAccepted        = "accepted"
	ValidationUnauthenticated = "unauthenticated"
	ValidationForbidden       = "forbidden"
)

// AuthMetrics collects authentication metrics
type AuthMetrics struct {
	logins      *prometheus.CounterVec
	validations *prometheus.CounterVec
	jwksFetch   *prometheus.HistogramVec
}

// NewAuthMetrics creates the collectors and registers them on reg
func NewAuthMetrics(reg prometheus.Registerer) *AuthMetrics {
	m := &AuthMetrics{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subway_logins_total",
			Help: "Login attempts by auth mode and outcome",
		}, []string{"mode", "outcome"}),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subway_session_validations_total",
			Help: "Access control decisions by outcome",
		}, []string{"outcome"}),
		jwksFetch: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "subway_jwks_fetch_seconds",
			Help:    "Latency of provider JWKS fetches",
			Buckets: prometheus.DefBuckets,
		}, []string{"realm", "result"}),
	}

	reg.MustRegister(m.logins, m.validations, m.jwksFetch)
	return m
}

// RecordLogin counts one login attempt
func (m *AuthMetrics) RecordLogin(mode, outcome string) {
	m.logins.WithLabelValues(mode, outcome).Inc()
}

// RecordValidation counts one access control decision
func (m *AuthMetrics) RecordValidation(outcome string) {
	m.validations.WithLabelValues(outcome).Inc()
}

// ObserveJWKSFetch records the latency of one key set fetch
func (m *AuthMetrics) ObserveJWKSFetch(realm string, duration time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.jwksFetch.WithLabelValues(realm, result).Observe(duration.Seconds())
}

// Handler returns the Prometheus scrape handler
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
