// Package console is the logger's operator console: record lines and
// diagnostics go out, time-set commands come in.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/itohio/streamgauge/pkg/rtc"
	"go.bug.st/serial"
)

// DefaultBaudRate of the console port.
const DefaultBaudRate = 115200

// Console writes lines to out and reads operator lines from in.
type Console struct {
	out io.Writer
	in  io.Reader

	mu    sync.Mutex
	once  sync.Once
	lines chan string
}

// New returns a console over the given streams. in may be nil for an output
// only console.
func New(in io.Reader, out io.Writer) *Console {
	return &Console{in: in, out: out}
}

// OpenSerial opens a serial port as a console.
func OpenSerial(name string, baudRate int) (*Console, io.Closer, error) {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	port, err := serial.Open(name, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}
	return New(port, port), port, nil
}

// Println writes one line.
func (c *Console) Println(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	io.WriteString(c.out, line+"\n")
}

// Printf writes one formatted line.
func (c *Console) Printf(format string, args ...interface{}) {
	c.Println(fmt.Sprintf(format, args...))
}

// Write implements io.Writer so that loggers can share the console.
func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.Write(p)
}

// ReadLine returns the next non-empty operator line.
func (c *Console) ReadLine(ctx context.Context) (string, error) {
	if c.in == nil {
		return "", errors.New("console has no input")
	}
	c.once.Do(c.startReader)

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case line, ok := <-c.lines:
			if !ok {
				return "", io.EOF
			}
			if line = strings.TrimSpace(line); line != "" {
				return line, nil
			}
		}
	}
}

// AwaitTimeSet prompts for the time until a valid time-set line arrives and
// the clock accepts it. Invalid lines are reported with the failing field
// and discarded.
func (c *Console) AwaitTimeSet(ctx context.Context, clock rtc.Clock) (time.Time, error) {
	for {
		c.Println("Set Clock Enter " + TimeSetLayout)

		line, err := c.ReadLine(ctx)
		if err != nil {
			return time.Time{}, err
		}

		t, err := ParseTimeSet(line)
		if err != nil {
			var fe *FieldError
			if errors.As(err, &fe) {
				c.Printf("%s ERR", strings.ToUpper(fe.Field))
			}
			continue
		}

		if err := clock.Set(t); err != nil {
			return time.Time{}, fmt.Errorf("failed to set clock: %w", err)
		}
		c.Printf("RTC SET %s", t.Format("2006-01-02T15:04:05"))
		return t, nil
	}
}

func (c *Console) startReader() {
	c.lines = make(chan string)
	go func() {
		defer close(c.lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			c.lines <- scanner.Text()
		}
	}()
}
