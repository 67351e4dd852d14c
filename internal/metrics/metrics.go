// Package metrics exposes Prometheus counters for identity operations.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the service and HTTP layers report into.
type Recorder interface {
	RecordLogin(outcome string)
	RecordRegistration(outcome string)
	RecordReset(stage, outcome string)
	RecordTokenVerification(outcome string)
	RecordHTTPStatus(statusCode int)
	SetUsers(n int)
}

type Collector struct {
	logins        *prometheus.CounterVec
	registrations *prometheus.CounterVec
	resets        *prometheus.CounterVec
	verifications *prometheus.CounterVec
	httpStatus    *prometheus.CounterVec
	users         prometheus.Gauge
}

// NewCollector registers all metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_login_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_registrations_total",
			Help: "Registration attempts by outcome.",
		}, []string{"outcome"}),
		resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_password_resets_total",
			Help: "Password reset requests and completions by outcome.",
		}, []string{"stage", "outcome"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_token_verifications_total",
			Help: "Bearer token verifications by outcome.",
		}, []string{"outcome"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_http_responses_total",
			Help: "HTTP responses by status code.",
		}, []string{"status_code"}),
		users: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "identity_users",
			Help: "Users currently held in the directory.",
		}),
	}

	reg.MustRegister(
		c.logins,
		c.registrations,
		c.resets,
		c.verifications,
		c.httpStatus,
		c.users,
	)
	return c
}

func (c *Collector) RecordLogin(outcome string) {
	c.logins.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordRegistration(outcome string) {
	c.registrations.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordReset(stage, outcome string) {
	c.resets.WithLabelValues(stage, outcome).Inc()
}

func (c *Collector) RecordTokenVerification(outcome string) {
	c.verifications.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

func (c *Collector) SetUsers(n int) {
	c.users.Set(float64(n))
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Nop discards everything. Useful in tests.
type Nop struct{}

func (Nop) RecordLogin(string)             {}
func (Nop) RecordRegistration(string)      {}
func (Nop) RecordReset(string, string)     {}
func (Nop) RecordTokenVerification(string) {}
func (Nop) RecordHTTPStatus(int)           {}
func (Nop) SetUsers(int)                   {}
