package main

import (
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/streamgauge/pkg/link"
	"github.com/itohio/streamgauge/pkg/trend"
)

// showSettingsDialog displays a settings dialog with tabs for all configuration options.
func showSettingsDialog(state *appState) {
	tabs := container.NewAppTabs(
		createSerialTab(state),
		createMonitorTab(state),
		createMockTab(state),
	)

	content := container.NewBorder(nil, nil, nil, nil, tabs)
	content.Resize(fyne.NewSize(600, 400))

	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(600, 400))
	d.Show()
}

func saveConfig(state *appState) bool {
	if err := state.cfg.Save(state.configPath); err != nil {
		dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
		return false
	}
	return true
}

// createSerialTab creates the Serial configuration tab.
func createSerialTab(state *appState) *container.TabItem {
	ports, err := link.Ports()
	portOptions := []string{}
	portMap := make(map[string]string) // Display name to port name

	if err == nil {
		for _, port := range ports {
			displayName := port.Name
			if port.Description != "" && port.Description != port.Name {
				displayName = fmt.Sprintf("%s (%s)", port.Name, port.Description)
			}
			portOptions = append(portOptions, displayName)
			portMap[displayName] = port.Name
		}
	} else {
		state.log.Warnf("Failed to list serial ports: %v", err)
	}

	currentPort := state.cfg.Serial.Port
	currentDisplay := currentPort
	found := false
	for _, opt := range portOptions {
		if portMap[opt] == currentPort {
			currentDisplay = opt
			found = true
			break
		}
	}
	if !found && currentPort != "" {
		portOptions = append(portOptions, currentPort)
		portMap[currentPort] = currentPort
	}

	portSelect := widget.NewSelect(portOptions, nil)
	if currentDisplay != "" {
		portSelect.SetSelected(currentDisplay)
	}

	baudEntry := widget.NewEntry()
	baudEntry.SetText(strconv.Itoa(state.cfg.Serial.BaudRate))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port", Widget: portSelect},
			{Text: "Baud Rate", Widget: baudEntry},
		},
		OnSubmit: func() {
			selectedPort := state.cfg.Serial.Port
			if portSelect.Selected != "" {
				selectedPort = portMap[portSelect.Selected]
				if selectedPort == "" {
					selectedPort = portSelect.Selected
				}
			}
			baud := state.cfg.Serial.BaudRate
			if b, err := strconv.Atoi(baudEntry.Text); err == nil && b > 0 {
				baud = b
			}

			changed := state.cfg.Serial.Port != selectedPort || state.cfg.Serial.BaudRate != baud
			wasConnected := state.device != nil && state.device.IsConnected()

			state.cfg.Serial.Port = selectedPort
			state.cfg.Serial.BaudRate = baud
			if !saveConfig(state) {
				return
			}

			if changed && wasConnected && !state.useMock {
				// Disconnect, then reconnect on the new port
				handleConnect(state)
				handleConnect(state)
			}
		},
	}

	return container.NewTabItem("Serial", form)
}

// createMonitorTab creates the Monitor configuration tab.
func createMonitorTab(state *appState) *container.TabItem {
	windowEntry := widget.NewEntry()
	windowEntry.SetText(fmt.Sprintf("%.0f", state.cfg.Monitor.WindowSeconds))

	fieldEntry := widget.NewEntry()
	fieldEntry.SetText(state.cfg.Monitor.Field)

	riseRateEntry := widget.NewEntry()
	riseRateEntry.SetText(fmt.Sprintf("%.1f", state.cfg.Monitor.RiseRate))

	minRiseEntry := widget.NewEntry()
	minRiseEntry.SetText(state.cfg.Monitor.MinRise.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Window (seconds)", Widget: windowEntry},
			{Text: "Field", Widget: fieldEntry},
			{Text: "Rise Rate (mm/h)", Widget: riseRateEntry},
			{Text: "Min Rise Duration", Widget: minRiseEntry},
		},
		OnSubmit: func() {
			if ws, err := strconv.ParseFloat(windowEntry.Text, 64); err == nil && ws > 0 {
				state.cfg.Monitor.WindowSeconds = ws
			}
			if fieldEntry.Text != "" {
				state.cfg.Monitor.Field = fieldEntry.Text
			}
			if rr, err := strconv.ParseFloat(riseRateEntry.Text, 64); err == nil && rr > 0 {
				state.cfg.Monitor.RiseRate = rr
			}
			if mr, err := time.ParseDuration(minRiseEntry.Text); err == nil {
				state.cfg.Monitor.MinRise = mr
			}
			saveConfig(state)

			// The tracker reads its thresholds once; rebuild it for the
			// next connection.
			if state.device == nil || !state.device.IsConnected() {
				state.trend = trend.New(&state.cfg.Monitor)
			}
			state.latest.field = state.cfg.Monitor.Field
		},
	}

	return container.NewTabItem("Monitor", form)
}

// createMockTab creates the Mock console configuration tab.
func createMockTab(state *appState) *container.TabItem {
	levelEntry := widget.NewEntry()
	levelEntry.SetText(fmt.Sprintf("%.0f", state.cfg.Mock.Level))

	amplitudeEntry := widget.NewEntry()
	amplitudeEntry.SetText(fmt.Sprintf("%.0f", state.cfg.Mock.Amplitude))

	periodEntry := widget.NewEntry()
	periodEntry.SetText(state.cfg.Mock.Period.String())

	noiseLevelEntry := widget.NewEntry()
	noiseLevelEntry.SetText(fmt.Sprintf("%.1f", state.cfg.Mock.NoiseLevel))

	sampleRateEntry := widget.NewEntry()
	sampleRateEntry.SetText(state.cfg.Mock.SampleRate.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Level (mm)", Widget: levelEntry},
			{Text: "Amplitude (mm)", Widget: amplitudeEntry},
			{Text: "Period", Widget: periodEntry},
			{Text: "Noise Level (mm)", Widget: noiseLevelEntry},
			{Text: "Sample Rate", Widget: sampleRateEntry},
		},
		OnSubmit: func() {
			if l, err := strconv.ParseFloat(levelEntry.Text, 64); err == nil {
				state.cfg.Mock.Level = l
			}
			if a, err := strconv.ParseFloat(amplitudeEntry.Text, 64); err == nil {
				state.cfg.Mock.Amplitude = a
			}
			if p, err := time.ParseDuration(periodEntry.Text); err == nil {
				state.cfg.Mock.Period = p
			}
			if nl, err := strconv.ParseFloat(noiseLevelEntry.Text, 64); err == nil {
				state.cfg.Mock.NoiseLevel = nl
			}
			if sr, err := time.ParseDuration(sampleRateEntry.Text); err == nil {
				state.cfg.Mock.SampleRate = sr
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Mock", form)
}
