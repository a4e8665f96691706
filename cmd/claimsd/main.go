// Command claimsd runs the claims-resolution core: the claims API, the
// deadline sweeper and the notification dispatcher.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/itwhiprentals/claims-service/cmd/claimsd/commands"
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "claimsd",
	Short:   "Insurance-tier and claims-resolution service",
	Version: version,
}

func main() {
	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.SweepCmd)
	rootCmd.AddCommand(commands.MigrateCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
