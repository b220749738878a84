package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/itohio/streamgauge/pkg/record"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Observe(t *testing.T) {
	m := New()
	m.Observe(record.Observation{
		At:       time.Date(2024, 5, 1, 12, 15, 0, 0, time.UTC),
		Distance: 512,
		Fields:   []record.Field{record.Pressure("bp1", 1013.25), record.Value("bt1", 22.5)},
		Battery:  3.7,
		Status:   0x81,
	})
	m.Skipped()
	m.Presence("BMX1", true)
	m.Presence("BMX2", false)

	assert.Equal(t, 512.0, testutil.ToFloat64(m.distance))
	assert.Equal(t, 129.0, testutil.ToFloat64(m.status))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.logged))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skipped))
	assert.Equal(t, 22.5, testutil.ToFloat64(m.fields.WithLabelValues("bt1")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.presence.WithLabelValues("BMX2")))

	expected := `
# HELP streamgauge_sensor_present 1 when the sensor slot is online.
# TYPE streamgauge_sensor_present gauge
streamgauge_sensor_present{slot="BMX1"} 1
streamgauge_sensor_present{slot="BMX2"} 0
`
	require.NoError(t, testutil.CollectAndCompare(m.presence, strings.NewReader(expected)))
}

func TestMetrics_FieldsReset(t *testing.T) {
	m := New()
	m.Observe(record.Observation{Fields: []record.Field{record.Value("mt1", 20)}})
	m.Observe(record.Observation{Fields: []record.Field{record.Value("dt1", 19)}})
	assert.Equal(t, 1, testutil.CollectAndCount(m.fields), "absent slots drop out")
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := New()
	m.Observe(record.Observation{Distance: 42, Battery: 3.9})

	path := filepath.Join(t.TempDir(), "streamgauge.prom")
	require.NoError(t, m.WriteTextfile(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "streamgauge_distance_mm 42")
}
