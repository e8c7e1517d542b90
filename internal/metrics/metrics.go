// Package metrics exposes client activity as Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors of one client. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	Sessions  *prometheus.CounterVec
	Failures  *prometheus.CounterVec
	Redirects prometheus.Counter
	BytesRead prometheus.Counter
	Duration  prometheus.Histogram
}

// New creates the collectors and registers them on reg, which may be
// nil to keep them unregistered.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Sessions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "httb_sessions_total",
				Help: "Total number of request attempts by result",
			},
			[]string{"result"},
		),
		Failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "httb_phase_failures_total",
				Help: "Failed request attempts by the phase they failed in",
			},
			[]string{"phase"},
		),
		Redirects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "httb_redirects_total",
			Help: "Total number of redirects followed",
		}),
		BytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "httb_response_bytes_total",
			Help: "Bytes read from connections, framing included",
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "httb_session_duration_seconds",
			Help:    "Duration of request attempts in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.Sessions, m.Failures, m.Redirects, m.BytesRead, m.Duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) PhaseFailed(phase string) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(phase).Inc()
}

func (m *Metrics) Finished(success bool, bytes int64, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	m.Sessions.WithLabelValues(result).Inc()
	m.BytesRead.Add(float64(bytes))
	m.Duration.Observe(elapsed.Seconds())
}

func (m *Metrics) Redirected() {
	if m == nil {
		return
	}
	m.Redirects.Inc()
}
