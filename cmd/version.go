package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mailroom-io/mailroom/internal/build"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Println(build.String())
	},
}
