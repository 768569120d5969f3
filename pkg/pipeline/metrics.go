package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/chazu/gouge/pkg/diag"
)

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	RegionsTotal   *prometheus.CounterVec
	RegionDuration prometheus.Histogram
	RingsTotal     prometheus.Counter
	FilletsTotal   prometheus.Counter
	OverloadsTotal prometheus.Counter
	FindingsTotal  *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil
// registerer leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RegionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gouge_regions_total",
				Help: "Total number of regions processed",
			},
			[]string{"status"},
		),
		RegionDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gouge_region_duration_seconds",
				Help:    "Time taken to turn one region into tool moves",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
		),
		RingsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "gouge_rings_total",
			Help: "Total number of offset rings generated",
		}),
		FilletsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "gouge_fillets_total",
			Help: "Total number of corner fillets inserted",
		}),
		OverloadsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "gouge_overload_zones_total",
			Help: "Total number of overload zones flagged",
		}),
		FindingsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gouge_findings_total",
				Help: "Total number of diagnostics by code and severity",
			},
			[]string{"code", "severity"},
		),
	}
}

// RecordRegion records the outcome of one region.
func (m *Metrics) RecordRegion(r *RegionResult, d time.Duration) {
	if m == nil {
		return
	}
	m.RegionsTotal.WithLabelValues(r.Status()).Inc()
	m.RegionDuration.Observe(d.Seconds())
	m.RingsTotal.Add(float64(len(r.Rings)))
	m.FilletsTotal.Add(float64(len(r.Fillets)))
	m.OverloadsTotal.Add(float64(len(r.Overloads)))
	for _, f := range r.Diagnostics {
		m.FindingsTotal.WithLabelValues(string(f.Code), f.Severity.String()).Inc()
	}
}

// statusFor maps a region error to a metrics label.
func statusFor(err error) string {
	switch {
	case err == nil:
		return "ok"
	case diag.Is(err, diag.ToolTooLargeForPocket):
		return "tool_too_large"
	case diag.Is(err, diag.IslandContainmentViolation):
		return "island_violation"
	case diag.Is(err, diag.DegenerateLoop):
		return "degenerate"
	default:
		return "error"
	}
}
