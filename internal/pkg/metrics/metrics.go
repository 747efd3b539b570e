// Package metrics exposes Prometheus counters for email dispatch and billing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeSent   = "sent"
	OutcomeFailed = "failed"
	OutcomeError  = "error"
)

// Recorder is used by the application services.
type Recorder interface {
	RecordDispatch(backend, template, outcome string)
	RecordBillingSession(kind string)
	RecordWebhook(eventType string)
}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	dispatch *prometheus.CounterVec
	billing  *prometheus.CounterVec
	webhooks *prometheus.CounterVec
}

// NewCollector registers the counters on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		dispatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lumos_email_dispatch_total",
			Help: "Verification emails handed to a backend, by outcome.",
		}, []string{"backend", "template", "outcome"}),
		billing: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lumos_billing_sessions_total",
			Help: "Payment provider sessions created, by kind.",
		}, []string{"kind"}),
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lumos_stripe_webhooks_total",
			Help: "Verified payment provider webhook events, by type.",
		}, []string{"type"}),
	}
	reg.MustRegister(c.dispatch, c.billing, c.webhooks)
	return c
}

func (c *Collector) RecordDispatch(backend, template, outcome string) {
	c.dispatch.WithLabelValues(backend, template, outcome).Inc()
}

func (c *Collector) RecordBillingSession(kind string) {
	c.billing.WithLabelValues(kind).Inc()
}

func (c *Collector) RecordWebhook(eventType string) {
	c.webhooks.WithLabelValues(eventType).Inc()
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordDispatch(string, string, string) {}
func (Nop) RecordBillingSession(string)           {}
func (Nop) RecordWebhook(string)                  {}

// Handler serves the registry in the Prometheus exposition format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
