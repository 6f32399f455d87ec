package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mailroom",
	Short: "Asynchronous email delivery pipeline",
	Long:  "Mailroom consumes queued delivery requests from Kafka and sends them over SMTP.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(versionCmd)
}
