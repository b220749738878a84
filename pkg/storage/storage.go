// Package storage persists observation records into one append-only file per
// calendar day under <root>/OBS.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/itohio/streamgauge/pkg/status"
)

// ObsDir is the directory below the storage root holding daily files.
const ObsDir = "OBS"

// ErrUnavailable is returned while the storage root cannot be used.
var ErrUnavailable = errors.New("storage unavailable")

// Sink persists one record line.
type Sink interface {
	Append(at time.Time, line string) error
}

// Logger is the diagnostic sink. *zap.SugaredLogger satisfies it.
type Logger interface {
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

// Dir writes daily log files below a root directory, typically the mount
// point of the removable card. Its availability is mirrored in the SD status
// bit: any failure sets it and the next successful write clears it.
type Dir struct {
	root      string
	status    *status.Register
	log       Logger
	available bool
}

var _ Sink = (*Dir)(nil)

// Open prepares root/OBS. A failure is not fatal: the SD bit is set and
// Open is retried by the next Append.
func Open(root string, st *status.Register, log Logger) *Dir {
	d := &Dir{root: root, status: st, log: log}
	d.init()
	return d
}

// Available reports whether the observation directory exists.
func (d *Dir) Available() bool {
	return d.available
}

// Path returns the daily file for at.
func (d *Dir) Path(at time.Time) string {
	return filepath.Join(d.root, ObsDir, at.Format("20060102")+".log")
}

// Append writes line and a newline to the daily file of at.
func (d *Dir) Append(at time.Time, line string) error {
	if !d.available && !d.init() {
		return ErrUnavailable
	}

	path := d.Path(at)
	d.log.Infof("%s", path)

	if err := appendLine(path, line); err != nil {
		d.status.Set(status.SD)
		d.log.Warnf("OBS Open Log Err: %v", err)
		return fmt.Errorf("failed to append observation: %w", err)
	}
	d.status.Clear(status.SD)
	d.log.Infof("OBS Logged to SD")
	return nil
}

func (d *Dir) init() bool {
	dir := filepath.Join(d.root, ObsDir)

	if fi, err := os.Stat(d.root); err != nil || !fi.IsDir() {
		d.log.Warnf("SD:NF %s", d.root)
		d.status.Set(status.SD)
		d.available = false
		return false
	}

	if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
		d.log.Infof("SD:Online")
		d.log.Infof("SD:OBS DIR Exists")
		d.available = true
		return true
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		d.log.Warnf("SD:MKDIR OBS ERR: %v", err)
		d.log.Warnf("SD:Offline")
		d.status.Set(status.SD)
		d.available = false
		return false
	}
	d.log.Infof("SD:MKDIR OBS OK")
	d.log.Infof("SD:Online")
	d.available = true
	return true
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
