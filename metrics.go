package unify

import (
	"github.com/prometheus/client_golang/prometheus"
)

// containerMetrics holds the Prometheus collectors of a container.
// Collectors always exist; they are only registered when a Registerer is given.
type containerMetrics struct {
	instantiations *prometheus.CounterVec // Instantiations by component and result
	singletons     prometheus.Gauge       // Live singleton count
	periodicRuns   *prometheus.CounterVec // Periodic executions by command and result
	broadcasts     *prometheus.CounterVec // Broadcast commands applied by command and result
	commands       *prometheus.CounterVec // Container commands processed
}

func newContainerMetrics(r prometheus.Registerer) (*containerMetrics, error) {
	m := &containerMetrics{
		instantiations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "unify",
			Subsystem: "container",
			Name:      "instantiations_total",
			Help:      "Component instantiations by component and result",
		}, []string{"component", "result"}),

		singletons: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "unify",
			Subsystem: "container",
			Name:      "singletons",
			Help:      "Number of live singleton instances",
		}),

		periodicRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "unify",
			Subsystem: "container",
			Name:      "periodic_runs_total",
			Help:      "Periodic method executions by command and result",
		}, []string{"command", "result"}),

		broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "unify",
			Subsystem: "container",
			Name:      "broadcasts_applied_total",
			Help:      "Cluster broadcast commands applied by command and result",
		}, []string{"command", "result"}),

		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "unify",
			Subsystem: "container",
			Name:      "commands_total",
			Help:      "Container commands processed by the command loop",
		}, []string{"command"}),
	}

	if r == nil {
		return m, nil
	}

	for _, c := range []prometheus.Collector{m.instantiations, m.singletons, m.periodicRuns, m.broadcasts, m.commands} {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// Gatherer returns the gatherer that serves the container metrics: the
// registerer given to WithRegisterer when it can gather, else the default
// Prometheus gatherer.
func (c *Container) Gatherer() prometheus.Gatherer {
	if g, ok := c.opts.registerer.(prometheus.Gatherer); ok {
		return g
	}
	return prometheus.DefaultGatherer
}
