package main

import (
	"fmt"

	"github.com/itohio/streamgauge/pkg/station"
	"github.com/spf13/cobra"
)

var observeCmd = &cobra.Command{
	Use:   "observe",
	Short: "Take one observation",
	Long:  `Boot the station and print a single record. With --log it is also appended to storage.`,
	RunE:  runObserve,
}

var (
	observeLog     bool
	observeMonitor bool
)

func init() {
	observeCmd.Flags().BoolVar(&observeLog, "log", false, "Append the record to storage")
	observeCmd.Flags().BoolVar(&observeMonitor, "monitor", false, "Show the station monitor first")
	rootCmd.AddCommand(observeCmd)
}

func runObserve(cmd *cobra.Command, args []string) error {
	r, err := openRig()
	if err != nil {
		return err
	}
	defer r.Close()

	if state := r.station.Boot(); state == station.StateAwaitTime {
		return fmt.Errorf("clock not valid, set it with settime")
	}
	if observeMonitor {
		r.station.StationMonitor()
	}
	if _, ok := r.station.Observe(observeLog); !ok {
		return fmt.Errorf("observation skipped")
	}
	return nil
}
