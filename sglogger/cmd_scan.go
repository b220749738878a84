package main

import (
	"fmt"

	"github.com/itohio/streamgauge/pkg/hw"
	"github.com/itohio/streamgauge/pkg/sensor"
	"github.com/itohio/streamgauge/pkg/status"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the I2C bus",
	Long:  `List every responding I2C address and identify the configured sensor slots.`,
	RunE:  runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	if err := hw.Init(log); err != nil {
		return err
	}
	bus, err := hw.OpenI2C(cfg.Bus.I2C)
	if err != nil {
		return err
	}
	defer bus.Close()

	st := status.New(0)
	id := sensor.NewIdentifier(bus, st, log, sensor.DefaultOpeners())

	out := cmd.OutOrStdout()
	for _, addr := range id.Scan(0x08, 0x77) {
		fmt.Fprintf(out, "0x%02X\n", addr)
	}

	mon := sensor.NewMonitor(id, log, hw.Slots(cfg.Bus)...)
	mon.ProbeAll()
	for _, slot := range mon.Slots() {
		fmt.Fprintln(out, slot)
	}
	fmt.Fprintf(out, "hth %s\n", st.Bits())
	return nil
}
