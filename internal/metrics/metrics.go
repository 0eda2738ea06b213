package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics holds the service counters.
type Metrics struct {
	Signups      *prometheus.CounterVec
	OTPIssued    *prometheus.CounterVec
	OTPVerified  *prometheus.CounterVec
	MailFailures prometheus.Counter
	HTTPRequests *prometheus.CounterVec
	registry     *prometheus.Registry
}

// New registers the counters on a fresh registry, along with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Signups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "candlux",
			Name:      "signups_total",
			Help:      "Signup attempts by outcome (created, resent, duplicate, error).",
		}, []string{"outcome"}),
		OTPIssued: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "candlux",
			Name:      "otp_issued_total",
			Help:      "OTP codes issued by reason.",
		}, []string{"reason"}),
		OTPVerified: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "candlux",
			Name:      "otp_verifications_total",
			Help:      "OTP verification attempts by outcome.",
		}, []string{"outcome"}),
		MailFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: "candlux",
			Name:      "mail_failures_total",
			Help:      "Transactional mails that could not be delivered.",
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "candlux",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		registry: reg,
	}
}

// Handler returns an http.Handler for Prometheus scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
