package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Metrics exposes application-level instruments.
type Metrics struct {
	identifierConflicts *prometheus.CounterVec
	stockMovements      *prometheus.CounterVec
	financialRecomputes prometheus.Counter
	jobActivations      *prometheus.CounterVec
}

// New registers the workshop instruments on the provided registry.
func New(reg *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		identifierConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "makerbench_identifier_conflicts_total",
			Help: "Duplicate human-readable identifiers rejected by the database.",
		}, []string{"kind"}),
		stockMovements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "makerbench_stock_movements_total",
			Help: "Material stock movements by type.",
		}, []string{"type"}),
		financialRecomputes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "makerbench_financial_recomputes_total",
			Help: "Job financial summary recomputations.",
		}),
		jobActivations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "makerbench_job_activations_total",
			Help: "Active-job transitions by activity type.",
		}, []string{"activity"}),
	}

	collectors := []prometheus.Collector{
		m.identifierConflicts,
		m.stockMovements,
		m.financialRecomputes,
		m.jobActivations,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) RecordIdentifierConflict(kind string) {
	if m == nil {
		return
	}
	m.identifierConflicts.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordStockMovement(movementType string) {
	if m == nil {
		return
	}
	m.stockMovements.WithLabelValues(movementType).Inc()
}

func (m *Metrics) RecordFinancialRecompute() {
	if m == nil {
		return
	}
	m.financialRecomputes.Inc()
}

func (m *Metrics) RecordJobActivity(activity string) {
	if m == nil {
		return
	}
	m.jobActivations.WithLabelValues(activity).Inc()
}

// NewRegistry provides the process-wide prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// Module wires the prometheus registry and workshop instruments.
var Module = fx.Module("observability.metrics",
	fx.Provide(
		NewRegistry,
		New,
	),
)
