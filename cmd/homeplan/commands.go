package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"homeplan/internal/app"
	"homeplan/internal/presence"
)

func init() {
	// refresh
	var weeks int
	refreshCmd := &cobra.Command{
		Use:   "refresh",
		Short: "Rebuild the presence snapshot from the calendar",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			t, err := a.Presence.Refresh(cmd.Context(), weeks)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(os.Stdout, "%s..%s: %d days, %d absence events\n",
				t.RangeStart, t.RangeEnd, len(t.Days), len(t.MatchedEvents))
			return nil
		},
	}
	refreshCmd.Flags().IntVarP(&weeks, "weeks", "w", 0, "Look-ahead weeks (default from config)")
	rootCmd.AddCommand(refreshCmd)

	// presence
	presenceCmd := &cobra.Command{
		Use:   "presence [DATE]",
		Short: "Print who is home, for one date or the whole snapshot",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			t, err := a.Presence.Current(cmd.Context())
			if err != nil {
				return err
			}
			dates := t.Dates()
			if len(args) == 1 {
				d, err := a.ParseDate(args[0])
				if err != nil {
					return err
				}
				if t.Day(d) == nil {
					return fmt.Errorf("no presence data for %s", args[0])
				}
				dates = []string{d.Format(presence.DateLayout)}
			}
			printPresence(os.Stdout, a, t, dates)
			return nil
		},
	}
	rootCmd.AddCommand(presenceCmd)

	// suggest
	var (
		week  string
		apply bool
		seed  uint64
	)
	suggestCmd := &cobra.Command{
		Use:   "suggest",
		Short: "Suggest dinners for a week",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			day := a.Today()
			if week != "" {
				if day, err = a.ParseDate(week); err != nil {
					return err
				}
			}
			if !cmd.Flags().Changed("seed") {
				seed = uint64(time.Now().UnixNano())
			}
			res, err := a.SuggestWeek(cmd.Context(), day, apply, seed)
			if res == nil {
				return err
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(res); encErr != nil {
					return encErr
				}
				return err
			}
			printSuggestion(os.Stdout, res)
			return err
		},
	}
	suggestCmd.Flags().StringVarP(&week, "week", "w", "", "Any date in the target week (YYYY-MM-DD, default today)")
	suggestCmd.Flags().BoolVar(&apply, "apply", false, "Write suggestions into the meal plan")
	suggestCmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed for reproducible suggestions")
	suggestCmd.Flags().Bool("json", false, "Print JSON instead of a table")
	rootCmd.AddCommand(suggestCmd)
}

func printPresence(w io.Writer, a *app.App, t *presence.Table, dates []string) {
	ids := a.Roster.IDs()
	for _, key := range dates {
		day := t.Days[key]
		away := day.Away(ids)
		names := make([]string, 0, len(away))
		for _, id := range away {
			names = append(names, a.Roster.DisplayName(id))
		}
		line := fmt.Sprintf("%s  %d/%d home", key, day.Headcount, len(ids))
		if len(names) > 0 {
			line += "  away: " + strings.Join(names, ", ")
		}
		_, _ = fmt.Fprintln(w, line)
	}
}

func printSuggestion(w io.Writer, res *app.WeekSuggestion) {
	if !res.PresenceKnown {
		_, _ = fmt.Fprintln(w, "(no presence snapshot; using weekday preferences only)")
	}
	for _, d := range res.Days {
		head := "?"
		if d.Headcount != nil {
			head = fmt.Sprint(*d.Headcount)
		}
		switch {
		case d.Assignment != nil:
			line := fmt.Sprintf("%s %-9s [%s] %s", d.Date, d.Weekday, head, d.Assignment.RecipeName)
			if d.Reason != "" {
				line += "  (" + d.Reason + ")"
			}
			if d.Applied {
				line += "  *saved*"
			}
			_, _ = fmt.Fprintln(w, line)
		case d.Existing != nil:
			_, _ = fmt.Fprintf(w, "%s %-9s [%s] %s  (already planned)\n", d.Date, d.Weekday, head, d.Existing.Meal)
		default:
			_, _ = fmt.Fprintf(w, "%s %-9s [%s] -\n", d.Date, d.Weekday, head)
		}
	}
}
