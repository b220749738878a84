// Package link connects to a logger console and streams the observation
// records it prints.
package link

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/itohio/streamgauge/pkg/console"
	"github.com/itohio/streamgauge/pkg/record"
	"go.bug.st/serial"
	"go.uber.org/zap"
)

const (
	// DefaultBaudRate is the logger console baud rate.
	DefaultBaudRate = console.DefaultBaudRate
	// DefaultBufferSize is the default size for the records channel buffer.
	DefaultBufferSize = 100
)

// Logger is the diagnostic sink. *zap.SugaredLogger satisfies it.
type Logger interface {
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial represents a connection to a logger console.
type Serial struct {
	port     string
	baudRate int
	bufSize  int
	log      Logger

	conn      serial.Port
	records   chan record.Observation
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
}

// New creates a console link with the specified port, baud rate and buffer
// size. A nil log discards diagnostics.
func New(port string, baudRate int, bufSize int, log Logger) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Serial{
		port:     port,
		baudRate: baudRate,
		bufSize:  bufSize,
		log:      log,
		records:  make(chan record.Observation, bufSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{Name: name, Description: name})
	}
	return result, nil
}

// Connect opens the serial port and starts reading records.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return fmt.Errorf("already connected")
	}

	port, err := serial.Open(d.port, &serial.Mode{BaudRate: d.baudRate})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	d.conn = port
	d.connected = true

	go d.read(port)

	return nil
}

// Close closes the connection and the records channel.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	d.cancel()

	if d.conn != nil {
		if err := d.conn.Close(); err != nil {
			d.log.Warnf("Error closing serial port: %v", err)
		}
		d.conn = nil
	}

	d.connected = false
	close(d.records)

	return nil
}

// Records returns the channel of parsed observation records.
func (d *Serial) Records() <-chan record.Observation {
	return d.records
}

// SetTime answers the logger's clock prompt.
func (d *Serial) SetTime(t time.Time) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected {
		return fmt.Errorf("not connected")
	}
	if _, err := io.WriteString(d.conn, console.FormatTimeSet(t)+"\n"); err != nil {
		return fmt.Errorf("failed to send time: %w", err)
	}
	return nil
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// read scans lines from r and forwards parsed records. Non-record lines are
// logged at info level.
func (d *Serial) read(r io.Reader) {
	defer func() {
		if p := recover(); p != nil {
			d.log.Warnf("Panic in read: %v", p)
		}
	}()

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		select {
		case <-d.ctx.Done():
			return
		default:
		}

		line := scanner.Text()
		obs, err := ParseRecord(line)
		switch {
		case err == ErrNotRecord:
			if line != "" {
				d.log.Infof("console: %s", line)
			}
			continue
		case err != nil:
			d.log.Warnf("Failed to parse line '%s': %v", line, err)
			continue
		}

		select {
		case d.records <- obs:
		case <-d.ctx.Done():
			return
		default:
			d.log.Warnf("Records channel full, dropping record")
		}
	}
	if err := scanner.Err(); err != nil {
		d.log.Warnf("Error reading from serial port: %v", err)
	}
}
