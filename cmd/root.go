package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "opinion-mm",
	Short: "Opinion.trade market-making dashboard",
	Long: `Market-making toolkit for the Opinion.trade prediction venue.

The serve command starts the dashboard: an HTTP API that creates and
supervises trading tasks (market making, position selling, split and
sell), streams their logs over WebSocket and records trades.

The remaining commands are one-shot account utilities: listing and
cancelling open orders, inspecting positions and checking wallet
balances.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
