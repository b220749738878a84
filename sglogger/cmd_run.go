package main

import (
	"errors"

	"github.com/itohio/streamgauge/pkg/station"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the logger",
	Long: `Boot the station and log one record per interval until interrupted.
When the clock is not valid the console prompts for the time; the logger
exits once it is set and must be restarted.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	r, err := openRig()
	if err != nil {
		return err
	}
	defer r.Close()

	err = r.station.Run(cmd.Context())
	if errors.Is(err, station.ErrRestartRequired) {
		r.log.Infof("clock set, restart to start logging")
	}
	return err
}
