package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/warp/eventdesk/alerting"
	"github.com/warp/eventdesk/api"
	"github.com/warp/eventdesk/backup"
)

// =============================================================================
// ALERTS
// =============================================================================

func alertsCmd(o *rootOptions) *cobra.Command {
	var (
		at        string
		reminders int
	)

	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Print active alerts without dispatching notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(o)
			if err != nil {
				return err
			}
			defer a.Close()

			now, err := reportTime(at, a.location)
			if err != nil {
				return err
			}

			records, err := a.clients.List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printAlerts(out, a.engine.GenerateAlerts(records, now), a.location)
			if reminders > 0 {
				fmt.Fprintln(out)
				color.New(color.Bold).Fprintf(out, "Reminders (next %d days)\n", reminders)
				printAlerts(out, a.engine.UpcomingReminders(records, now, reminders), a.location)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "date", "", "evaluate as of this day (YYYY-MM-DD) instead of now")
	cmd.Flags().IntVar(&reminders, "reminders", 0, "also list reminders due within this many days")
	return cmd
}

func reportTime(at string, loc *time.Location) (time.Time, error) {
	if at == "" {
		return time.Now().In(loc), nil
	}
	t, err := time.ParseInLocation(alerting.DayLayout, at, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: %w", at, err)
	}
	return t, nil
}

func priorityColor(p alerting.Priority) *color.Color {
	switch p {
	case alerting.PriorityCritical:
		return color.New(color.FgRed, color.Bold)
	case alerting.PriorityHigh:
		return color.New(color.FgYellow)
	case alerting.PriorityMedium:
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgWhite)
	}
}

// printAlerts writes one line per alert, most severe first.
func printAlerts(w io.Writer, alerts []alerting.AlertEntry, loc *time.Location) {
	if len(alerts) == 0 {
		fmt.Fprintln(w, "No alerts.")
		return
	}

	groups := alerting.PartitionByPriority(alerts)
	for _, p := range alerting.Priorities {
		c := priorityColor(p)
		for _, a := range groups[p] {
			line := fmt.Sprintf("%-8s %s  %-24s %s", c.Sprint(p.String()), a.Date.In(loc).Format(alerting.DayLayout), a.ClientDisplayName, a.Message)
			if !a.Amount.IsZero() {
				line += fmt.Sprintf(" (%s)", a.Amount.StringFixed(2))
			}
			fmt.Fprintln(w, line)
		}
	}
}

// =============================================================================
// CONFLICTS
// =============================================================================

func conflictsCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "conflicts",
		Short: "Print days with more than one event booked",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(o)
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := a.clients.List(cmd.Context())
			if err != nil {
				return err
			}
			printConflicts(cmd.OutOrStdout(), a.engine.DetectConflicts(records), a.formatter)
			return nil
		},
	}
}

// printConflicts writes each conflicting day followed by its clients.
func printConflicts(w io.Writer, groups []alerting.DateConflictGroup, summaries api.ConflictSummarizer) {
	if len(groups) == 0 {
		fmt.Fprintln(w, "No conflicts.")
		return
	}

	warn := color.New(color.FgYellow, color.Bold)
	for _, g := range groups {
		header := g.Date.String()
		if summaries != nil {
			header += "  " + summaries.ConflictSummary(g)
		}
		warn.Fprintln(w, header)
		for _, c := range g.Clients {
			fmt.Fprintf(w, "  - %s (%s)\n", c.DisplayName, c.Status)
		}
	}
}

// =============================================================================
// BACKUP
// =============================================================================

func backupCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Inspect or run the data backup",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the backup configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(o)
			if err != nil {
				return err
			}
			defer a.Close()

			cfg, err := backup.LoadConfig(cmd.Context(), a.store)
			if err != nil {
				return err
			}
			printBackupConfig(cmd.OutOrStdout(), cfg, a.location)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Take a backup now",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(o)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.backup.Run(cmd.Context())
			if err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Backed up %d clients and %d movements to %s (%s, %d bytes)\n",
				res.Clients, res.Movements, res.File, res.Provider, res.Bytes)
			return nil
		},
	})

	return cmd
}

func printBackupConfig(w io.Writer, cfg backup.Config, loc *time.Location) {
	state := color.New(color.FgRed).Sprint("inactive")
	if cfg.Active {
		state = color.New(color.FgGreen).Sprint("active")
	}
	fmt.Fprintf(w, "Status:    %s\n", state)
	fmt.Fprintf(w, "Provider:  %s\n", cfg.Provider)
	fmt.Fprintf(w, "Frequency: %s at %s\n", cfg.Frequency, cfg.Hour)
	last := "never"
	if cfg.LastBackup != nil {
		last = cfg.LastBackup.In(loc).Format("2006-01-02 15:04")
	}
	fmt.Fprintf(w, "Last run:  %s\n", last)
}

// =============================================================================
// SEED
// =============================================================================

func seedCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <scenario>",
		Short: "Reset the store and load a demo scenario",
		Long:  "Available scenarios: " + scenarioIDs(),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(o)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.handler.LoadScenarioByID(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded scenario %q into %s\n", args[0], a.cfg.DBPath)
			return nil
		},
	}
}

func scenarioIDs() string {
	var ids []string
	for _, sc := range api.Scenarios() {
		ids = append(ids, sc.ID)
	}
	return strings.Join(ids, ", ")
}
