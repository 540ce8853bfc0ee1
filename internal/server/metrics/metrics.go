// Package metrics collects and exposes Prometheus metrics for the auth
// subsystem.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by the refresh and verification counters.
const (
	ResultOK      = "ok"
	ResultInvalid = "invalid"
	ResultExpired = "expired"
)

// AuthRecorder is the recording interface used by services and middleware.
type AuthRecorder interface {
	RecordLogin(provider string)
	RecordRefresh(result string)
	RecordVerification(result string)
	RecordReapedSessions(count int64)
}

// Collector implements AuthRecorder on a Prometheus registry.
type Collector struct {
	logins        *prometheus.CounterVec
	refreshes     *prometheus.CounterVec
	verifications *prometheus.CounterVec
	reaped        prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Successful logins by provider.",
		}, []string{"provider"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_refreshes_total",
			Help: "Refresh attempts by outcome.",
		}, []string{"result"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_token_verifications_total",
			Help: "Access-token verifications by outcome.",
		}, []string{"result"}),
		reaped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_reaped_sessions_total",
			Help: "Expired refresh sessions removed by the reaper.",
		}),
	}

	reg.MustRegister(c.logins, c.refreshes, c.verifications, c.reaped)
	return c
}

func (c *Collector) RecordLogin(provider string) {
	c.logins.WithLabelValues(provider).Inc()
}

func (c *Collector) RecordRefresh(result string) {
	c.refreshes.WithLabelValues(result).Inc()
}

func (c *Collector) RecordVerification(result string) {
	c.verifications.WithLabelValues(result).Inc()
}

func (c *Collector) RecordReapedSessions(count int64) {
	c.reaped.Add(float64(count))
}

// Handler returns an HTTP handler serving the registry in the Prometheus
// exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Noop discards all recordings. Useful in tests.
type Noop struct{}

func (Noop) RecordLogin(string)        {}
func (Noop) RecordRefresh(string)      {}
func (Noop) RecordVerification(string) {}
func (Noop) RecordReapedSessions(int64) {}
