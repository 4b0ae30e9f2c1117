// Command careops runs the booking automation engine.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "careops",
	Short: "Booking scheduling and event-driven automation engine",
	Long: `careops schedules bookings against availability rules, records every
domain-significant change in an append-only event log, and reacts to
dispatched events with workspace-configured automation rules.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
