package observe

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/danpasecinic/stitch"
)

const (
	statusOK    = "ok"
	statusError = "error"
)

// Metrics records provider registrations, resolutions and lifecycle hooks as
// Prometheus series labelled by module and token.
type Metrics struct {
	registered *prometheus.CounterVec
	resolves   *prometheus.CounterVec
	resolveDur *prometheus.HistogramVec
	hooks      *prometheus.CounterVec
	hookDur    *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		registered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stitch",
				Name:      "providers_registered_total",
				Help:      "Total number of providers registered per module",
			},
			[]string{"module"},
		),
		resolves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stitch",
				Name:      "resolutions_total",
				Help:      "Total number of provider resolutions",
			},
			[]string{"module", "token", "status"},
		),
		resolveDur: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "stitch",
				Name:      "resolution_duration_seconds",
				Help:      "Provider resolution duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"module"},
		),
		hooks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stitch",
				Name:      "lifecycle_hooks_total",
				Help:      "Total number of lifecycle hook runs",
			},
			[]string{"phase", "module", "token", "status"},
		),
		hookDur: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "stitch",
				Name:      "lifecycle_hook_duration_seconds",
				Help:      "Lifecycle hook duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"phase", "module"},
		),
	}

	for _, c := range []prometheus.Collector{m.registered, m.resolves, m.resolveDur, m.hooks, m.hookDur} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register stitch metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) Options() []stitch.Option {
	return []stitch.Option{
		stitch.WithRegisterObserver(func(module, _ string) {
			m.registered.WithLabelValues(module).Inc()
		}),
		stitch.WithResolveObserver(func(module, token string, d time.Duration, err error) {
			m.resolves.WithLabelValues(module, token, status(err)).Inc()
			m.resolveDur.WithLabelValues(module).Observe(d.Seconds())
		}),
		stitch.WithInitObserver(m.hook("init")),
		stitch.WithDestroyObserver(m.hook("destroy")),
	}
}

func (m *Metrics) hook(phase string) func(module, token string, d time.Duration, err error) {
	return func(module, token string, d time.Duration, err error) {
		m.hooks.WithLabelValues(phase, module, token, status(err)).Inc()
		m.hookDur.WithLabelValues(phase, module).Observe(d.Seconds())
	}
}

func status(err error) string {
	if err != nil {
		return statusError
	}
	return statusOK
}
