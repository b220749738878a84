package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/itohio/streamgauge/pkg/sampler"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LegacyFile is the key=value file read from the storage root at boot.
const LegacyFile = "CONFIG.TXT"

// Config represents the logger and monitor configuration.
type Config struct {
	Station  StationConfig  `yaml:"station"`
	Serial   SerialConfig   `yaml:"serial"`
	Bus      BusConfig      `yaml:"bus"`
	Sampling SamplingConfig `yaml:"sampling"`
	Distance DistanceConfig `yaml:"distance"`
	Battery  BatteryConfig  `yaml:"battery"`
	Storage  StorageConfig  `yaml:"storage"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Mock     MockConfig     `yaml:"mock"`
}

// StationConfig contains the observation schedule. Records are aligned to
// Interval; CalibrationTime bounds how long the calibration jumper keeps the
// station monitor running.
type StationConfig struct {
	Interval            time.Duration `yaml:"interval" env:"SG_INTERVAL"`
	CalibrationTime     time.Duration `yaml:"calibration_time" env:"SG_CALIBRATION_TIME"`
	CalibrationInterval time.Duration `yaml:"calibration_interval" env:"SG_CALIBRATION_INTERVAL"`
}

// SerialConfig contains console serial port configuration.
type SerialConfig struct {
	Port     string `yaml:"port" env:"SG_SERIAL_PORT"`
	BaudRate int    `yaml:"baud_rate" env:"SG_SERIAL_BAUD"`
}

// BusConfig names the buses and addresses of the attached hardware.
type BusConfig struct {
	I2C       string `yaml:"i2c" env:"SG_I2C"`         // Empty selects the first bus
	OneWire   string `yaml:"onewire" env:"SG_ONEWIRE"` // Empty selects the first bus
	BMX1      uint16 `yaml:"bmx1"`
	BMX2      uint16 `yaml:"bmx2"`
	MCP1      uint16 `yaml:"mcp1"`
	RTC       uint16 `yaml:"rtc"`
	OLED      uint16 `yaml:"oled"`
	ADC       uint16 `yaml:"adc"`
	JumperPin string `yaml:"jumper_pin" env:"SG_JUMPER_PIN"` // Calibration jumper, active low
}

// SamplingConfig contains the distance median window.
type SamplingConfig struct {
	Count    int           `yaml:"count" env:"SG_SAMPLE_COUNT"`
	Interval time.Duration `yaml:"interval" env:"SG_SAMPLE_INTERVAL"`
}

// DistanceConfig selects the distance scale.
type DistanceConfig struct {
	Channel    int `yaml:"channel"`
	DSType     int `yaml:"ds_type" env:"SG_DS_TYPE"`                // SG_DS_TYPE wins over CONFIG.TXT
	Multiplier int `yaml:"multiplier" env:"SG_DISTANCE_MULTIPLIER"` // Overrides ds_type when positive
}

// BatteryConfig contains the battery sense divider.
type BatteryConfig struct {
	Channel   int     `yaml:"channel"`
	Divider   float32 `yaml:"divider"`
	VRef      float32 `yaml:"vref"`
	FullScale float32 `yaml:"full_scale"`
}

// StorageConfig contains the observation storage location.
type StorageConfig struct {
	Root string `yaml:"root" env:"SG_STORAGE_ROOT"`
}

// MetricsConfig contains the textfile collector path. Empty disables it.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" env:"SG_METRICS_TEXTFILE"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level  string `yaml:"level" env:"SG_LOG_LEVEL"`
	Format string `yaml:"format" env:"SG_LOG_FORMAT"` // console or json
}

// MonitorConfig contains desktop monitor settings.
type MonitorConfig struct {
	WindowSeconds float64       `yaml:"window_seconds"`
	Field         string        `yaml:"field"`     // Record key plotted next to the distance
	RiseRate      float64       `yaml:"rise_rate"` // Rate of change flagged as a rise (mm/h)
	MinRise       time.Duration `yaml:"min_rise"`  // Shortest rise reported
}

// MockConfig contains the synthetic console used by the monitor.
type MockConfig struct {
	Level      float64       `yaml:"level"`       // Mean distance (mm)
	Amplitude  float64       `yaml:"amplitude"`   // Slow wave amplitude (mm)
	Period     time.Duration `yaml:"period"`      // Slow wave period
	NoiseLevel float64       `yaml:"noise_level"` // Noise (mm)
	SampleRate time.Duration `yaml:"sample_rate"` // Time between records
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Station: StationConfig{
			Interval:            15 * time.Minute,
			CalibrationTime:     10 * time.Minute,
			CalibrationInterval: time.Second,
		},
		Serial: SerialConfig{
			Port:     "/dev/ttyACM0",
			BaudRate: 115200,
		},
		Bus: BusConfig{
			BMX1:      0x77,
			BMX2:      0x76,
			MCP1:      0x18,
			RTC:       0x68,
			OLED:      0x3C,
			ADC:       0x48,
			JumperPin: "GPIO17",
		},
		Sampling: SamplingConfig{
			Count:    sampler.DefaultCount,
			Interval: sampler.DefaultInterval,
		},
		Distance: DistanceConfig{
			Channel: 0,
			DSType:  0,
		},
		Battery: BatteryConfig{
			Channel:   1,
			Divider:   2,
			VRef:      3.3,
			FullScale: 1024,
		},
		Storage: StorageConfig{
			Root: "/mnt/sd",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Monitor: MonitorConfig{
			WindowSeconds: 3600,
			Field:         "bt1",
			RiseRate:      100,
			MinRise:       time.Minute,
		},
		Mock: MockConfig{
			Level:      1500,
			Amplitude:  200,
			Period:     10 * time.Minute,
			NoiseLevel: 20,
			SampleRate: time.Second,
		},
	}
}

// Load loads configuration from a YAML file and applies SG_* environment
// overrides. If the file doesn't exist or fields are missing, it uses
// default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	// Ensure minimum required fields are set (use defaults if missing)
	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyLegacy reads ds_type from a CONFIG.TXT key=value file. A missing file
// or key leaves the configuration untouched. SG_* environment variables are
// applied again afterwards, so the precedence is environment, CONFIG.TXT,
// YAML, defaults.
func (c *Config) ApplyLegacy(filename string) error {
	kv, err := godotenv.Read(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}

	if v, ok := kv["ds_type"]; ok {
		c.Distance.DSType = legacyInt(v)
	}
	if err := cleanenv.ReadEnv(c); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	return nil
}

// DistanceMultiplier returns the factor applied to the raw distance median.
func (c *Config) DistanceMultiplier() int {
	if c.Distance.Multiplier > 0 {
		return c.Distance.Multiplier
	}
	return sampler.RangeMultiplier(c.Distance.DSType)
}

// legacyInt parses an integer the way the card config always has: an
// optional leading minus, digits, anything else ignored.
func legacyInt(s string) int {
	s = strings.TrimSpace(s)
	sign := 1
	if strings.HasPrefix(s, "-") {
		sign = -1
		s = s[1:]
	}
	var digits strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	n, _ := strconv.Atoi(digits.String())
	return sign * n
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Station.Interval <= 0 {
		c.Station.Interval = def.Station.Interval
	}
	if c.Station.CalibrationTime <= 0 {
		c.Station.CalibrationTime = def.Station.CalibrationTime
	}
	if c.Station.CalibrationInterval <= 0 {
		c.Station.CalibrationInterval = def.Station.CalibrationInterval
	}

	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if c.Bus.BMX1 == 0 {
		c.Bus.BMX1 = def.Bus.BMX1
	}
	if c.Bus.BMX2 == 0 {
		c.Bus.BMX2 = def.Bus.BMX2
	}
	if c.Bus.MCP1 == 0 {
		c.Bus.MCP1 = def.Bus.MCP1
	}
	if c.Bus.RTC == 0 {
		c.Bus.RTC = def.Bus.RTC
	}
	if c.Bus.OLED == 0 {
		c.Bus.OLED = def.Bus.OLED
	}
	if c.Bus.ADC == 0 {
		c.Bus.ADC = def.Bus.ADC
	}

	if c.Sampling.Count <= 0 {
		c.Sampling.Count = def.Sampling.Count
	}
	if c.Sampling.Interval < 0 {
		c.Sampling.Interval = def.Sampling.Interval
	}

	if c.Battery.Divider == 0 {
		c.Battery.Divider = def.Battery.Divider
	}
	if c.Battery.VRef == 0 {
		c.Battery.VRef = def.Battery.VRef
	}
	if c.Battery.FullScale == 0 {
		c.Battery.FullScale = def.Battery.FullScale
	}

	if c.Storage.Root == "" {
		c.Storage.Root = def.Storage.Root
	}

	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}

	if c.Monitor.WindowSeconds == 0 {
		c.Monitor.WindowSeconds = def.Monitor.WindowSeconds
	}
	if c.Monitor.Field == "" {
		c.Monitor.Field = def.Monitor.Field
	}
	if c.Monitor.RiseRate == 0 {
		c.Monitor.RiseRate = def.Monitor.RiseRate
	}

	if c.Mock.SampleRate == 0 {
		c.Mock.SampleRate = def.Mock.SampleRate
	}
	if c.Mock.Period == 0 {
		c.Mock.Period = def.Mock.Period
	}
}
