package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(reconstructions.WithLabelValues(ResultError))
	Reconstruction(errors.New("boom"))
	Reconstruction(nil)
	assert.Equal(t, before+1, testutil.ToFloat64(reconstructions.WithLabelValues(ResultError)))

	beforeConv := testutil.ToFloat64(compactionConversions.WithLabelValues(ResultConverted))
	Compaction(3, 0)
	assert.Equal(t, beforeConv+3, testutil.ToFloat64(compactionConversions.WithLabelValues(ResultConverted)))

	beforeWarn := testutil.ToFloat64(integrityWarnings.WithLabelValues("target-length"))
	IntegrityWarning("target-length")
	assert.Equal(t, beforeWarn+1, testutil.ToFloat64(integrityWarnings.WithLabelValues("target-length")))

	Migration("ids", "skipped", "already-id")
	assert.GreaterOrEqual(t, testutil.ToFloat64(migrationOutcomes.WithLabelValues("ids", "skipped", "already-id")), 1.0)
}

func TestWriteTextfile(t *testing.T) {
	Migration("format", "migrated", "")
	path := filepath.Join(t.TempDir(), "inkwell.prom")
	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "inkwell_migration_outcomes_total")
}
