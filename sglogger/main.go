// Command sglogger runs the stream gauge logger on a Linux single board
// computer with the gauge hardware on its I²C and one-wire buses.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sglogger",
	Short: "Stream gauge logger",
	Long: `sglogger samples the distance sensor and the environment sensors,
appends one record per interval to the storage directory and prints it on
the console.`,
	SilenceUsage: true,
}

var (
	configPath  string
	consolePort string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Configuration file path")
	rootCmd.PersistentFlags().StringVarP(&consolePort, "console", "p", "", "Console serial port (default stdin/stdout)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
