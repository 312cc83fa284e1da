// Package metrics expõe as decisões do gate e os snapshots de tráfego para o Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Priyamannem/ddos-shield/internal/core/domain"
	"github.com/Priyamannem/ddos-shield/internal/core/ports"
)

const namespace = "ddos_shield"

// Prometheus implementa os observers do coordenador e do agregador usando
// um registry próprio.
type Prometheus struct {
	registry *prometheus.Registry

	decisions         *prometheus.CounterVec
	anomalies         *prometheus.CounterVec
	decisionLatency   prometheus.Histogram
	requestsPerSecond prometheus.Gauge
	requestsPerMinute prometheus.Gauge
	blockedInWindow   prometheus.Gauge
	suspiciousWindow  prometheus.Gauge
}

var (
	_ ports.DecisionObserver = (*Prometheus)(nil)
	_ ports.SnapshotObserver = (*Prometheus)(nil)
)

func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Admission decisions by outcome and reason.",
		}, []string{"outcome", "reason"}),
		anomalies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "anomaly_flags_total",
			Help:      "Anomaly flags raised by the detector.",
		}, []string{"flag"}),
		decisionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decision_duration_seconds",
			Help:      "Time spent deciding on a request.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}),
		requestsPerSecond: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "traffic",
			Name:      "requests_per_second",
			Help:      "Requests per second in the latest snapshot.",
		}),
		requestsPerMinute: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "traffic",
			Name:      "requests_per_minute",
			Help:      "Requests per minute in the latest snapshot.",
		}),
		blockedInWindow: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "traffic",
			Name:      "blocked_requests",
			Help:      "Blocked requests in the latest snapshot window.",
		}),
		suspiciousWindow: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "traffic",
			Name:      "suspicious_requests",
			Help:      "Suspicious requests in the latest snapshot window.",
		}),
	}

	p.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.decisions,
		p.anomalies,
		p.decisionLatency,
		p.requestsPerSecond,
		p.requestsPerMinute,
		p.blockedInWindow,
		p.suspiciousWindow,
	)
	return p
}

func (p *Prometheus) ObserveDecision(d domain.Decision, elapsed time.Duration) {
	p.decisions.WithLabelValues(outcome(d), d.Reason).Inc()
	for _, flag := range d.Anomalies {
		p.anomalies.WithLabelValues(flag).Inc()
	}
	if !d.Bypassed {
		p.decisionLatency.Observe(elapsed.Seconds())
	}
}

func (p *Prometheus) ObserveSnapshot(s domain.TrafficSnapshot) {
	p.requestsPerSecond.Set(float64(s.RequestsPerSecond))
	p.requestsPerMinute.Set(float64(s.RequestsPerMinute))
	p.blockedInWindow.Set(float64(s.BlockedCount))
	p.suspiciousWindow.Set(float64(s.SuspiciousCount))
}

// Handler serve o endpoint /metrics.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

func outcome(d domain.Decision) string {
	switch {
	case d.Bypassed:
		return "bypassed"
	case !d.Allowed:
		return "blocked"
	case d.Suspicious:
		return "suspicious"
	default:
		return "allowed"
	}
}
