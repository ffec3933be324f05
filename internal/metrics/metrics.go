package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultFound  = "found"
	ResultClean  = "clean"
	ResultFailed = "failed"
)

// Lookups counts advisory queries made during a scan. Each instance owns
// its own registry so that scans never share counters.
type Lookups struct {
	Registry *prometheus.Registry

	Total    *prometheus.CounterVec
	Duration prometheus.Histogram
	Findings prometheus.Counter
}

func NewLookups() *Lookups {
	m := &Lookups{
		Registry: prometheus.NewRegistry(),
	}

	m.Total = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imagescan",
			Name:      "lookups_total",
			Help:      "Advisory lookups by result (found, clean, failed)",
		},
		[]string{"result"},
	)

	m.Duration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "imagescan",
			Name:      "lookup_duration_seconds",
			Help:      "Duration of advisory lookups in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	m.Findings = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "imagescan",
			Name:      "findings_total",
			Help:      "Vulnerability findings reported by the advisory service",
		},
	)

	m.Registry.MustRegister(m.Total, m.Duration, m.Findings)

	return m
}

// Observe records one finished lookup.
func (m *Lookups) Observe(findings int, err error, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.Duration.Observe(elapsed.Seconds())

	switch {
	case err != nil:
		m.Total.WithLabelValues(ResultFailed).Inc()
	case findings > 0:
		m.Total.WithLabelValues(ResultFound).Inc()
		m.Findings.Add(float64(findings))
	default:
		m.Total.WithLabelValues(ResultClean).Inc()
	}
}

// WriteTextfile dumps the counters in the node_exporter textfile format.
func (m *Lookups) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
