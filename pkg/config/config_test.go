package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, 15*time.Minute, cfg.Station.Interval)
	assert.Equal(t, 10*time.Minute, cfg.Station.CalibrationTime)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, uint16(0x77), cfg.Bus.BMX1)
	assert.Equal(t, uint16(0x76), cfg.Bus.BMX2)
	assert.Equal(t, uint16(0x18), cfg.Bus.MCP1)
	assert.Equal(t, 60, cfg.Sampling.Count)
	assert.Equal(t, 250*time.Millisecond, cfg.Sampling.Interval)
	assert.Equal(t, float32(2), cfg.Battery.Divider)
	assert.Equal(t, 10, cfg.DistanceMultiplier())
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
station:
  interval: 5m
  calibration_time: 2m

serial:
  port: "/dev/ttyUSB1"

bus:
  bmx1: 0x76
  bmx2: 0x77

sampling:
  count: 11
  interval: 10ms

distance:
  ds_type: 1

battery:
  vref: 3.7
  full_scale: 2048

storage:
  root: /tmp/card
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.Equal(t, 5*time.Minute, cfg.Station.Interval)
	assert.Equal(t, 2*time.Minute, cfg.Station.CalibrationTime)
	assert.Equal(t, "/dev/ttyUSB1", cfg.Serial.Port)
	assert.Equal(t, uint16(0x76), cfg.Bus.BMX1)
	assert.Equal(t, uint16(0x77), cfg.Bus.BMX2)
	assert.Equal(t, 11, cfg.Sampling.Count)
	assert.Equal(t, 10*time.Millisecond, cfg.Sampling.Interval)
	assert.Equal(t, 5, cfg.DistanceMultiplier())
	assert.Equal(t, float32(3.7), cfg.Battery.VRef)
	assert.Equal(t, float32(2048), cfg.Battery.FullScale)
	assert.Equal(t, float32(2), cfg.Battery.Divider) // default
	assert.Equal(t, "/tmp/card", cfg.Storage.Root)
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	_, err = tmpfile.WriteString("invalid: yaml: content: [")
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SG_SERIAL_PORT", "/dev/ttyS0")
	t.Setenv("SG_DISTANCE_MULTIPLIER", "1")
	t.Setenv("SG_INTERVAL", "1m")
	t.Setenv("SG_STORAGE_ROOT", "/media/card")

	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyS0", cfg.Serial.Port)
	assert.Equal(t, 1, cfg.DistanceMultiplier())
	assert.Equal(t, time.Minute, cfg.Station.Interval)
	assert.Equal(t, "/media/card", cfg.Storage.Root)
}

func TestLoad_PartialYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
station:
  interval: 0s
sampling:
  count: 0
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)

	// Should use defaults for missing fields
	assert.Equal(t, 15*time.Minute, cfg.Station.Interval)
	assert.Equal(t, 60, cfg.Sampling.Count)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestSave(t *testing.T) {
	cfg := Default()
	cfg.Serial.Port = "/dev/ttyUSB0"
	cfg.Distance.Multiplier = 1

	tmpfile, err := os.CreateTemp("", "test_save_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	err = cfg.Save(tmpfile.Name())
	require.NoError(t, err)

	// Load it back and verify
	loaded, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", loaded.Serial.Port)
	assert.Equal(t, 1, loaded.DistanceMultiplier())
}

func TestApplyLegacy(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
		mult    int
	}{
		{"ten metre sensor", "ds_type=0\n", 0, 10},
		{"five metre sensor", "ds_type=1\r\n", 1, 5},
		{"other keys", "station=abc\nds_type=1\n", 1, 5},
		{"missing key", "station=abc\n", 0, 10},
		{"junk digits", "ds_type=1x\n", 1, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), LegacyFile)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			cfg := Default()
			require.NoError(t, cfg.ApplyLegacy(path))
			assert.Equal(t, tt.want, cfg.Distance.DSType)
			assert.Equal(t, tt.mult, cfg.DistanceMultiplier())
		})
	}
}

func TestApplyLegacy_MissingFile(t *testing.T) {
	cfg := Default()
	cfg.Distance.DSType = 1
	require.NoError(t, cfg.ApplyLegacy(filepath.Join(t.TempDir(), LegacyFile)))
	assert.Equal(t, 1, cfg.Distance.DSType)
}

func TestApplyLegacy_EnvWins(t *testing.T) {
	t.Setenv("SG_DS_TYPE", "0")
	path := filepath.Join(t.TempDir(), LegacyFile)
	require.NoError(t, os.WriteFile(path, []byte("ds_type=1\n"), 0644))

	cfg := Default()
	require.NoError(t, cfg.ApplyLegacy(path))
	assert.Equal(t, 0, cfg.Distance.DSType)
	assert.Equal(t, 10, cfg.DistanceMultiplier())
}

func TestLegacyInt(t *testing.T) {
	assert.Equal(t, 12, legacyInt(" 12 "))
	assert.Equal(t, -3, legacyInt("-3"))
	assert.Equal(t, 0, legacyInt(""))
	assert.Equal(t, 105, legacyInt("1.05"))
}
