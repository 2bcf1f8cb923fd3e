/*
main.go - Application entry point

PURPOSE:
  The eventdesk command. Runs the dashboard API server and offers one-shot
  commands for the alert cycle, conflicts, backups and demo data.

COMMANDS:
  serve       HTTP API + alert scheduler + backup job
  alerts      Print active alerts (and upcoming reminders)
  conflicts   Print double-booked days
  backup      Show the backup schedule or back up now
  seed        Reset the store and load a demo scenario

CONFIGURATION:
  --config points at a YAML file (created with defaults on first run).
  --db, --tz, --locale, --listen and --log-level override the file.

EXAMPLES:
  # Run with an in-memory database
  eventdesk serve --db=":memory:"

  # Alerts as of today, in Madrid
  eventdesk alerts --tz Europe/Madrid

SEE ALSO:
  - app.go: dependency wiring shared by every command
  - serve.go: HTTP server with graceful shutdown
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "eventdesk",
		Short: "EventDesk - client book, alerts and accounting for event studios",
		Long: `EventDesk tracks event clients, their payment schedules and reminders.
It warns about double-booked days, events one week out and due or overdue
installments.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	opts.bind(rootCmd)

	rootCmd.AddCommand(serveCmd(opts))
	rootCmd.AddCommand(alertsCmd(opts))
	rootCmd.AddCommand(conflictsCmd(opts))
	rootCmd.AddCommand(backupCmd(opts))
	rootCmd.AddCommand(seedCmd(opts))
	return rootCmd
}
