// Command sgmonitor is a desktop monitor for a stream gauge logger: it reads
// the records printed on the logger console and plots the water distance.
package main

import (
	"flag"
	"fmt"
	"log"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/streamgauge/pkg/config"
	"github.com/itohio/streamgauge/pkg/link"
	"github.com/itohio/streamgauge/pkg/logging"
	"github.com/itohio/streamgauge/pkg/record"
	"github.com/itohio/streamgauge/pkg/scope"
	"github.com/itohio/streamgauge/pkg/trend"
	"go.uber.org/zap"
)

func main() {
	var (
		portFlag   = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag   = flag.Bool("mock", false, "Use mocked console instead of serial port")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}

	logger, err := logging.New(cfg.Log, "sgmonitor")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	application := app.NewWithID("com.itohio.streamgauge")

	window := application.NewWindow("Stream Gauge Monitor")
	window.Resize(fyne.NewSize(1200, 800))
	window.CenterOnScreen()

	state := &appState{
		cfg:        cfg,
		configPath: *configFlag,
		log:        logger.Sugar(),
		trend:      trend.New(&cfg.Monitor),
		window:     window,
		useMock:    *mockFlag,
	}

	toolbar := createToolbar(state)

	state.scopeWidget = scope.New(&cfg.Monitor)
	state.latest = newLatestPanel(cfg.Monitor.Field)

	content := container.NewBorder(
		toolbar,
		nil,
		nil,
		state.latest.object(),
		state.scopeWidget,
	)

	window.SetContent(content)
	window.ShowAndRun()
}

// monitorChain tracks the running pipeline for graceful shutdown.
type monitorChain struct {
	device    link.Device
	trendDone chan struct{} // Closed when the trend goroutine exits
}

// appState holds the application state.
type appState struct {
	cfg         *config.Config
	configPath  string
	log         *zap.SugaredLogger
	device      link.Device
	trend       *trend.Trend
	scopeWidget *scope.ScopeWidget
	latest      *latestPanel
	window      fyne.Window
	connectBtn  *widget.Button
	clockBtn    *widget.Button
	useMock     bool
	chain       *monitorChain

	// Throttling for scope updates
	lastUpdateTime time.Time
	updateMu       sync.Mutex
}

// createToolbar creates the toolbar with Connect, Settings and Set Clock
// buttons.
func createToolbar(state *appState) fyne.CanvasObject {
	connectBtn := widget.NewButtonWithIcon("", theme.LoginIcon(), func() {
		handleConnect(state)
	})
	state.connectBtn = connectBtn

	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	clockBtn := widget.NewButtonWithIcon("Set Clock", theme.HistoryIcon(), func() {
		handleSetClock(state)
	})
	clockBtn.Disable()
	state.clockBtn = clockBtn

	return container.NewBorder(
		nil,
		nil,
		container.NewHBox(connectBtn, settingsBtn),
		container.NewHBox(clockBtn),
		nil,
	)
}

// closeMonitorChain closes the device and waits for the trend goroutine.
func closeMonitorChain(chain *monitorChain) {
	if chain == nil {
		return
	}
	if chain.device != nil {
		chain.device.Close()
	}
	if chain.trendDone != nil {
		<-chain.trendDone
	}
}

// handleConnect handles the connect/disconnect button click.
func handleConnect(state *appState) {
	if state.device != nil && state.device.IsConnected() {
		closeMonitorChain(state.chain)
		state.chain = nil
		state.device = nil
		state.clockBtn.Disable()
		state.log.Infof("Disconnected")
		return
	}

	var device link.Device
	if state.useMock {
		device = link.NewMock(&state.cfg.Mock)
		state.log.Infof("Using mocked console")
	} else {
		device = link.New(state.cfg.Serial.Port, state.cfg.Serial.BaudRate, link.DefaultBufferSize, state.log)
	}

	if err := device.Connect(); err != nil {
		dialog.ShowError(fmt.Errorf("failed to connect to %s: %w", state.cfg.Serial.Port, err), state.window)
		return
	}
	state.device = device
	state.log.Infof("Connected to %s", state.cfg.Serial.Port)
	state.clockBtn.Enable()

	state.trend.ResetShutdown()

	// Throttle scope updates to ~60 FPS
	const updateInterval = 16 * time.Millisecond
	state.trend.OnUpdate(func(points []trend.Point, rates []float64, rises []trend.Rise) {
		state.updateMu.Lock()
		now := time.Now()
		if now.Sub(state.lastUpdateTime) < updateInterval {
			state.updateMu.Unlock()
			return
		}
		state.lastUpdateTime = now
		state.updateMu.Unlock()

		fyne.Do(func() {
			state.scopeWidget.UpdateData(points, rates, rises)
		})
	})

	records := teeRecords(device.Records(), func(obs record.Observation) {
		fyne.Do(func() {
			state.latest.update(obs)
		})
	})

	trendDone := make(chan struct{})
	go func() {
		defer close(trendDone)
		state.trend.Process(records)
	}()

	state.chain = &monitorChain{device: device, trendDone: trendDone}
}

// handleSetClock answers the logger's clock prompt with the host time.
func handleSetClock(state *appState) {
	if state.device == nil || !state.device.IsConnected() {
		return
	}
	now := time.Now()
	if err := state.device.SetTime(now); err != nil {
		dialog.ShowError(fmt.Errorf("failed to set clock: %w", err), state.window)
		return
	}
	state.log.Infof("Clock set to %s", now.Format(record.TimeLayout))
}

// teeRecords forwards every record to the returned channel after passing it
// to observe.
func teeRecords(in <-chan record.Observation, observe func(record.Observation)) <-chan record.Observation {
	out := make(chan record.Observation, link.DefaultBufferSize)
	go func() {
		defer close(out)
		for obs := range in {
			observe(obs)
			out <- obs
		}
	}()
	return out
}
