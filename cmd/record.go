package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/bazi/internal/analyze"
	"github.com/derickschaefer/bazi/internal/chart"
	"github.com/derickschaefer/bazi/internal/model"
	"github.com/derickschaefer/bazi/internal/render"
)

var recordCmd = &cobra.Command{
	Use:     "record",
	Aliases: []string{"records"},
	Short:   "Browse calculations stored by the service",
	Long: `Commands for the records the service keeps for every calculation.

The service stores each reading it computes; these commands read and delete
those stored records. Nothing here touches the local database.`,
}

// ─── record get ───────────────────────────────────────────────────────────────

var recordGetCmd = &cobra.Command{
	Use:     "get <ID>",
	Short:   "Show one stored calculation",
	Example: `  bazi record get 42`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIntID(args[0], "record ID")
		if err != nil {
			return err
		}
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		format, err := resolveFormat(deps.Config.Format)
		if err != nil {
			return err
		}

		start := time.Now()
		rec, err := deps.Client.GetRecord(cmd.Context(), deps.Endpoint, id)
		if err != nil {
			return fmt.Errorf("record %d: %w", id, err)
		}
		result := buildResult(model.KindRecord, "record get", rec, 1, start)
		return emit(cmd, result, format, deps.Config.Verbose)
	},
}

// ─── record list ──────────────────────────────────────────────────────────────

var (
	recordListUser  string
	recordListSkip  int
	recordListLimit int
	recordListChart bool
)

var recordListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored calculations",
	Long: `List stored calculations, optionally for a single user id.

--chart prints the five-element totals across the listed records instead of
the table.`,
	Example: `  bazi record list
  bazi record list --user test_user_001
  bazi record list --skip 100 --limit 50 --format csv
  bazi record list --user test_user_001 --chart`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		format, err := resolveFormat(deps.Config.Format)
		if err != nil {
			return err
		}

		start := time.Now()
		var records []model.Record
		if recordListUser != "" {
			records, err = deps.Client.ListUserRecords(cmd.Context(), deps.Endpoint, recordListUser, recordListSkip, recordListLimit)
		} else {
			records, err = deps.Client.ListRecords(cmd.Context(), deps.Endpoint, recordListSkip, recordListLimit)
		}
		if err != nil {
			return fmt.Errorf("listing records: %w", err)
		}

		if recordListChart {
			if len(records) == 0 {
				return fmt.Errorf("no records to chart")
			}
			analyses := make([]*model.WuxingAnalysis, len(records))
			for i := range records {
				analyses[i] = records[i].WuxingAnalysis
			}
			w, closeFn, err := outputWriter(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer closeFn()
			title := fmt.Sprintf("五行  %d records", len(records))
			return chart.Bar(w, title, chart.Totals(analyses), chart.BarOptions{})
		}

		result := buildResult(model.KindRecords, "record list", records, len(records), start)
		if len(records) == 0 && format == render.FormatTable {
			fmt.Fprintln(cmd.OutOrStdout(), "No records found.")
			return nil
		}
		return emit(cmd, result, format, deps.Config.Verbose)
	},
}

// ─── record delete ────────────────────────────────────────────────────────────

var recordDeleteCmd = &cobra.Command{
	Use:     "delete <ID>",
	Aliases: []string{"rm"},
	Short:   "Delete a stored calculation",
	Example: `  bazi record delete 42`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIntID(args[0], "record ID")
		if err != nil {
			return err
		}
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		msg, err := deps.Client.DeleteRecord(cmd.Context(), deps.Endpoint, id)
		if err != nil {
			return fmt.Errorf("deleting record %d: %w", id, err)
		}
		if msg == "" {
			msg = "deleted"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Record %d: %s\n", id, msg)
		return nil
	},
}

// ─── record stats ─────────────────────────────────────────────────────────────

var (
	recordStatsUser  string
	recordStatsSkip  int
	recordStatsLimit int
)

// elementStats is the payload of record stats.
type elementStats struct {
	Records    int                      `json:"records"`
	Elements   []analyze.ElementSummary `json:"elements"`
	DayMasters []analyze.Tally          `json:"day_masters"`
}

var recordStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize five-element counts across stored calculations",
	Long: `Compute per-element statistics over the listed records: mean, spread,
quartiles, how often the element is absent and how often it is named
strongest or weakest. Day masters are tallied by element.`,
	Example: `  bazi record stats
  bazi record stats --user test_user_001 --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		format, err := resolveFormat(deps.Config.Format)
		if err != nil {
			return err
		}

		start := time.Now()
		var records []model.Record
		if recordStatsUser != "" {
			records, err = deps.Client.ListUserRecords(cmd.Context(), deps.Endpoint, recordStatsUser, recordStatsSkip, recordStatsLimit)
		} else {
			records, err = deps.Client.ListRecords(cmd.Context(), deps.Endpoint, recordStatsSkip, recordStatsLimit)
		}
		if err != nil {
			return fmt.Errorf("listing records: %w", err)
		}
		if len(records) == 0 {
			return fmt.Errorf("no records to summarize")
		}

		analyses := make([]*model.WuxingAnalysis, len(records))
		for i := range records {
			analyses[i] = records[i].WuxingAnalysis
		}
		stats := elementStats{
			Records:    len(records),
			Elements:   analyze.Elements(analyses),
			DayMasters: analyze.DayMasters(records),
		}
		if stats.Elements[0].Readings == 0 {
			return fmt.Errorf("none of the %d records carries a five-element analysis", len(records))
		}

		if format != render.FormatTable {
			result := buildResult(model.KindElementStats, "record stats", stats, len(records), start)
			return emit(cmd, result, format, deps.Config.Verbose)
		}

		w, closeFn, err := outputWriter(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer closeFn()
		fmt.Fprintf(w, "%d records\n\n", stats.Records)
		printSimpleTable(w, []string{"ELEMENT", "MEAN", "STD", "MIN", "MEDIAN", "MAX", "ABSENT", "STRONGEST", "WEAKEST"}, func(add func(...string)) {
			for _, s := range stats.Elements {
				add(s.Element,
					fmt.Sprintf("%.2f", s.Mean),
					fmt.Sprintf("%.2f", s.Std),
					fmt.Sprintf("%g", s.Min),
					fmt.Sprintf("%g", s.Median),
					fmt.Sprintf("%g", s.Max),
					fmt.Sprintf("%.0f%%", s.AbsentPct),
					fmt.Sprintf("%d", s.Strongest),
					fmt.Sprintf("%d", s.Weakest),
				)
			}
		})
		fmt.Fprintln(w)
		rows := make([]chart.Row, 0, len(stats.DayMasters))
		for _, tl := range stats.DayMasters {
			label := tl.Label
			if label == "" {
				label = "?"
			}
			rows = append(rows, chart.Row{Label: label, Value: tl.Count})
		}
		return chart.Bar(w, "日主", rows, chart.BarOptions{})
	},
}

func init() {
	recordStatsCmd.Flags().StringVar(&recordStatsUser, "user", "", "only records for this user id")
	recordStatsCmd.Flags().IntVar(&recordStatsSkip, "skip", 0, "number of records to skip")
	recordStatsCmd.Flags().IntVar(&recordStatsLimit, "limit", 0, "maximum records to include (service default when 0)")

	recordListCmd.Flags().StringVar(&recordListUser, "user", "", "only records for this user id")
	recordListCmd.Flags().IntVar(&recordListSkip, "skip", 0, "number of records to skip")
	recordListCmd.Flags().IntVar(&recordListLimit, "limit", 0, "maximum records to return (service default when 0)")
	recordListCmd.Flags().BoolVar(&recordListChart, "chart", false, "chart five-element totals across the records")

	recordCmd.AddCommand(recordGetCmd)
	recordCmd.AddCommand(recordListCmd)
	recordCmd.AddCommand(recordDeleteCmd)
	recordCmd.AddCommand(recordStatsCmd)
	rootCmd.AddCommand(recordCmd)
}
