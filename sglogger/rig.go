package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/itohio/streamgauge/pkg/config"
	"github.com/itohio/streamgauge/pkg/console"
	"github.com/itohio/streamgauge/pkg/hw"
	"github.com/itohio/streamgauge/pkg/logging"
	"github.com/itohio/streamgauge/pkg/metrics"
	"github.com/itohio/streamgauge/pkg/record"
	"github.com/itohio/streamgauge/pkg/station"
	"github.com/itohio/streamgauge/pkg/status"
	"github.com/itohio/streamgauge/pkg/storage"
	"go.uber.org/zap"
)

// rig is a fully wired station and the resources to release with it.
type rig struct {
	cfg     *config.Config
	log     *zap.SugaredLogger
	status  *status.Register
	board   *hw.Board
	station *station.Station
	closers []io.Closer
}

// loadConfig reads the YAML configuration and the legacy CONFIG.TXT from the
// storage root.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyLegacy(filepath.Join(cfg.Storage.Root, config.LegacyFile)); err != nil {
		return nil, err
	}
	if consolePort != "" {
		cfg.Serial.Port = consolePort
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.SugaredLogger, error) {
	logger, err := logging.New(cfg.Log, "sglogger")
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// openConsole opens the configured serial console, or stdin/stdout when no
// port is configured.
func openConsole(cfg *config.Config) (*console.Console, io.Closer, error) {
	if cfg.Serial.Port == "" {
		return console.New(os.Stdin, os.Stdout), nil, nil
	}
	return console.OpenSerial(cfg.Serial.Port, cfg.Serial.BaudRate)
}

// options maps the configuration onto the station tunables.
func options(cfg *config.Config) station.Options {
	return station.Options{
		Interval:            cfg.Station.Interval,
		CalibrationTime:     cfg.Station.CalibrationTime,
		CalibrationInterval: cfg.Station.CalibrationInterval,
		SampleCount:         cfg.Sampling.Count,
		SampleInterval:      cfg.Sampling.Interval,
		Multiplier:          cfg.DistanceMultiplier(),
		BatteryDivider:      cfg.Battery.Divider,
		BatteryVRef:         cfg.Battery.VRef,
		BatteryFullScale:    cfg.Battery.FullScale,
	}
}

// openRig opens the hardware, storage, console and metrics and wires them
// into a station.
func openRig() (*rig, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	r := &rig{cfg: cfg, log: log, status: status.New(status.PowerOn)}

	r.board, err = hw.Open(cfg, r.status, log)
	if err != nil {
		return nil, err
	}
	r.closers = append(r.closers, r.board)

	con, closer, err := openConsole(cfg)
	if err != nil {
		r.Close()
		return nil, err
	}
	if closer != nil {
		r.closers = append(r.closers, closer)
	}

	sink := storage.Open(cfg.Storage.Root, r.status, log)
	rec := &textfileRecorder{Metrics: metrics.New(), path: cfg.Metrics.Textfile, log: log}

	r.station = station.New(options(cfg), r.board.Hardware(sink, con, rec), r.status, log)
	return r, nil
}

// Close releases everything in reverse order of opening.
func (r *rig) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			r.log.Warnf("close: %v", err)
		}
	}
	r.log.Sync()
}

// textfileRecorder rewrites the node_exporter textfile after every
// observation. An empty path keeps the metrics in memory only.
type textfileRecorder struct {
	*metrics.Metrics
	path string
	log  *zap.SugaredLogger
}

func (t *textfileRecorder) Observe(o record.Observation) {
	t.Metrics.Observe(o)
	t.flush()
}

func (t *textfileRecorder) Skipped() {
	t.Metrics.Skipped()
	t.flush()
}

func (t *textfileRecorder) flush() {
	if t.path == "" {
		return
	}
	if err := t.WriteTextfile(t.path); err != nil {
		t.log.Warnf("metrics textfile: %v", err)
	}
}
