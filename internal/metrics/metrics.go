// Package metrics defines the prometheus counters for history integrity,
// reconstruction, compaction and migration outcomes. Counters register on
// the default registry; the CLI can dump them to a node-exporter textfile.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// integrityWarnings counts non-fatal patch length mismatches.
	// Labels: kind (source-length, target-length)
	integrityWarnings = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inkwell",
		Name:      "integrity_warnings_total",
		Help:      "Patch length mismatches observed while applying deltas",
	}, []string{"kind"})

	// reconstructions counts version reconstructions.
	// Labels: result (ok, error)
	reconstructions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inkwell",
		Name:      "reconstructions_total",
		Help:      "Version reconstructions by result",
	}, []string{"result"})

	// compactionConversions counts delta entries considered for conversion.
	// Labels: result (converted, failed)
	compactionConversions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inkwell",
		Name:      "compaction_conversions_total",
		Help:      "Delta entries converted to bases during compaction",
	}, []string{"result"})

	// migrationOutcomes counts per-file migration results.
	// Labels: kind (format, ids, compact), status, reason
	migrationOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inkwell",
		Name:      "migration_outcomes_total",
		Help:      "Per-file maintenance outcomes",
	}, []string{"kind", "status", "reason"})
)

// Result label values.
const (
	ResultOK        = "ok"
	ResultError     = "error"
	ResultConverted = "converted"
	ResultFailed    = "failed"
)

// IntegrityWarning records a length mismatch of the given kind.
func IntegrityWarning(kind string) {
	integrityWarnings.WithLabelValues(kind).Inc()
}

// Reconstruction records a reconstruction outcome.
func Reconstruction(err error) {
	if err != nil {
		reconstructions.WithLabelValues(ResultError).Inc()
		return
	}
	reconstructions.WithLabelValues(ResultOK).Inc()
}

// Compaction records converted and failed counts from one compaction pass.
func Compaction(converted, failed int) {
	if converted > 0 {
		compactionConversions.WithLabelValues(ResultConverted).Add(float64(converted))
	}
	if failed > 0 {
		compactionConversions.WithLabelValues(ResultFailed).Add(float64(failed))
	}
}

// Migration records one per-file maintenance outcome.
func Migration(kind, status, reason string) {
	migrationOutcomes.WithLabelValues(kind, status, reason).Inc()
}

// WriteTextfile writes every metric in the default gatherer to path in the
// text exposition format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
