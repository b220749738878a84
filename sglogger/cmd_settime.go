package main

import (
	"fmt"
	"time"

	"github.com/itohio/streamgauge/pkg/console"
	"github.com/itohio/streamgauge/pkg/hw"
	"github.com/itohio/streamgauge/pkg/record"
	"github.com/itohio/streamgauge/pkg/rtc"
	"github.com/spf13/cobra"
)

var settimeCmd = &cobra.Command{
	Use:   "settime [" + console.TimeSetLayout + "]",
	Short: "Set the real time clock",
	Long: `Set the DS3231 to the given time, or to the host time when none is
given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSettime,
}

func init() {
	rootCmd.AddCommand(settimeCmd)
}

func runSettime(cmd *cobra.Command, args []string) error {
	t := time.Now()
	if len(args) == 1 {
		var err error
		if t, err = console.ParseTimeSet(args[0]); err != nil {
			return err
		}
	}

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

	clock, err := rtc.NewDS3231(bus, cfg.Bus.RTC)
	if err != nil {
		return err
	}
	if err := clock.Set(t); err != nil {
		return fmt.Errorf("failed to set clock: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "RTC SET %s\n", t.Format(record.TimeLayout))
	return nil
}
