package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/bazi/internal/model"
	"github.com/derickschaefer/bazi/internal/render"
	"github.com/derickschaefer/bazi/internal/store"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show readings journaled with --save",
	Long: `List calculations kept in the local database, newest first.

Readings are journaled by 'bazi calculate --save' and 'bazi profile run --save'.`,
	Example: `  bazi history
  bazi history --limit 5
  bazi history --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		format, err := resolveFormat(deps.Config.Format)
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		start := time.Now()
		entries, err := deps.Store.ListHistory(historyLimit)
		if err != nil {
			return fmt.Errorf("reading history: %w", err)
		}

		if format != render.FormatTable {
			result := buildResult(model.KindHistory, "history", entries, len(entries), start)
			return emit(cmd, result, format, deps.Config.Verbose)
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No history yet.")
			fmt.Fprintln(cmd.OutOrStdout(), "  Use: bazi calculate ... --save")
			return nil
		}

		w, closeFn, err := outputWriter(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer closeFn()
		printSimpleTable(w, []string{"AT", "PROFILE", "BIRTH", "PILLARS", "ID"}, func(add func(...string)) {
			for _, e := range entries {
				add(
					e.At.Local().Format("2006-01-02 15:04"),
					e.Profile,
					historyBirth(e),
					historyPillars(e),
					historyID(e),
				)
			}
		})
		return nil
	},
}

func historyBirth(e store.HistoryEntry) string {
	r := e.Request
	return fmt.Sprintf("%s-%s-%s %s:%s %s", r.Year, r.Month, r.Day, r.Hour, r.Minute, r.Timezone)
}

func historyPillars(e store.HistoryEntry) string {
	if e.Reading == nil {
		return ""
	}
	r := e.Reading
	return r.YearPillar + " " + r.MonthPillar + " " + r.DayPillar + " " + r.HourPillar
}

func historyID(e store.HistoryEntry) string {
	if e.Reading == nil {
		return ""
	}
	return string(e.Reading.ID)
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum entries to show (0 = all)")
	rootCmd.AddCommand(historyCmd)
}
