package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the platform
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Authorization metrics
	AuthzDecisionsTotal   *prometheus.CounterVec
	AuthzDecisionDuration *prometheus.HistogramVec

	// Identity metrics
	IdentityResolutionsTotal *prometheus.CounterVec
	SubjectsProvisionedTotal prometheus.Counter

	// Invitation metrics
	InvitationTransitionsTotal *prometheus.CounterVec
	InvitationsExpiredTotal    prometheus.Counter

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Database metrics
	DBQueryDuration   *prometheus.HistogramVec
	DBConnectionsOpen prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the given registry
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deskhive_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "deskhive_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "deskhive_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),
		AuthzDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deskhive_authz_decisions_total",
				Help: "Total number of authorization decisions",
			},
			[]string{"resource", "action", "allowed"},
		),
		AuthzDecisionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "deskhive_authz_decision_duration_seconds",
				Help:    "Authorization decision evaluation duration in seconds",
				Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
			},
			[]string{"resource"},
		),
		IdentityResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deskhive_identity_resolutions_total",
				Help: "Total number of identity resolutions by outcome",
			},
			[]string{"outcome"},
		),
		SubjectsProvisionedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "deskhive_subjects_provisioned_total",
				Help: "Total number of subjects provisioned on first login",
			},
		),
		InvitationTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deskhive_invitation_transitions_total",
				Help: "Total number of invitation state transitions",
			},
			[]string{"to_status"},
		),
		InvitationsExpiredTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "deskhive_invitations_expired_total",
				Help: "Total number of invitations expired by the sweeper",
			},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deskhive_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache", "tier"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deskhive_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache", "tier"},
		),
		DBQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "deskhive_db_query_duration_seconds",
				Help:    "Database query duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		DBConnectionsOpen: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "deskhive_db_connections_open",
				Help: "Number of open database connections",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.AuthzDecisionsTotal,
		m.AuthzDecisionDuration,
		m.IdentityResolutionsTotal,
		m.SubjectsProvisionedTotal,
		m.InvitationTransitionsTotal,
		m.InvitationsExpiredTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.DBQueryDuration,
		m.DBConnectionsOpen,
	)

	return m
}

// RecordHTTPRequest records metrics for a completed HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordAuthzDecision records the outcome of a single authorization decision
func (m *Metrics) RecordAuthzDecision(resource, action string, allowed bool, duration time.Duration) {
	m.AuthzDecisionsTotal.WithLabelValues(resource, action, strconv.FormatBool(allowed)).Inc()
	m.AuthzDecisionDuration.WithLabelValues(resource).Observe(duration.Seconds())
}

// RecordIdentityResolution records the outcome of an identity resolution
func (m *Metrics) RecordIdentityResolution(outcome string) {
	m.IdentityResolutionsTotal.WithLabelValues(outcome).Inc()
}

// RecordInvitationTransition records an invitation state transition
func (m *Metrics) RecordInvitationTransition(toStatus string) {
	m.InvitationTransitionsTotal.WithLabelValues(toStatus).Inc()
}
