package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/bazi/internal/store"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect and manage the local database",
	Long: `Commands for inspecting and clearing the local bbolt database.

The local database holds saved profiles and the history journaled with
--save. Data persists until you explicitly clear it.`,
}

// ─── store stats ──────────────────────────────────────────────────────────────

var storeStatsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Show row counts and sizes for each bucket",
	Example: `  bazi store stats`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		stats, err := deps.Store.Stats()
		if err != nil {
			return fmt.Errorf("reading store stats: %w", err)
		}
		version, err := deps.Store.SchemaVersion()
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Database: %s (schema %s)\n\n", deps.Store.Path(), version)
		printSimpleTable(cmd.OutOrStdout(), []string{"BUCKET", "ROWS", "SIZE"}, func(add func(...string)) {
			for _, s := range stats {
				add(s.Name, fmt.Sprintf("%d", s.Count), humanBytes(s.Bytes))
			}
		})
		return nil
	},
}

// ─── store clear ──────────────────────────────────────────────────────────────

var (
	storeClearAll    bool
	storeClearBucket string
)

var storeClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete entries from the local database",
	Long: `Delete entries from one or all buckets.

Note: bbolt does not shrink the database file automatically after clearing.
Free pages are reused internally on the next write. To reclaim disk space,
run 'bazi store compact' after clearing.`,
	Example: `  bazi store clear --all
  bazi store clear --bucket history`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !storeClearAll && storeClearBucket == "" {
			return fmt.Errorf("specify --all or --bucket <n>\n\nBuckets: %s", strings.Join(store.AllBuckets, ", "))
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		if storeClearAll {
			if err := deps.Store.ClearAll(); err != nil {
				return fmt.Errorf("clearing all buckets: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Cleared all buckets")
			fmt.Fprintln(cmd.OutOrStdout(), "  Run 'bazi store compact' to reclaim disk space.")
			return nil
		}

		if err := deps.Store.ClearBucket(storeClearBucket); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared bucket %q\n", storeClearBucket)
		fmt.Fprintln(cmd.OutOrStdout(), "  Run 'bazi store compact' to reclaim disk space.")
		return nil
	},
}

// ─── store compact ────────────────────────────────────────────────────────────

var storeCompactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Rewrite the database file to reclaim freed disk space",
	Long: `Compact rewrites the bbolt database to a new file, recovering space
freed by prior 'store clear' or 'profile delete' operations.

All live data is copied to a temporary file first, then the original is
replaced. The database remains usable after compaction completes.`,
	Example: `  bazi store compact`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		// Compact reopens the bolt.DB itself; the handle stays valid.
		defer deps.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "Compacting %s ...\n", deps.Store.Path())

		before, after, err := deps.Store.Compact()
		if err != nil {
			return fmt.Errorf("compaction failed: %w", err)
		}

		saved := before - after
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Compaction complete\n")
		fmt.Fprintf(cmd.OutOrStdout(), "  Before: %s\n", humanBytes(before))
		fmt.Fprintf(cmd.OutOrStdout(), "  After:  %s\n", humanBytes(after))
		if saved > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "  Saved:  %s\n", humanBytes(saved))
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "  No space reclaimed (database was already compact).")
		}
		return nil
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.AddCommand(storeStatsCmd)
	storeCmd.AddCommand(storeClearCmd)
	storeCmd.AddCommand(storeCompactCmd)

	storeClearCmd.Flags().BoolVar(&storeClearAll, "all", false, "clear all buckets")
	storeClearCmd.Flags().StringVar(&storeClearBucket, "bucket", "", "clear a specific bucket: profiles|history")
}
