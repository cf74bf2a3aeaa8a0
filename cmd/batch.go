package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/bazi/internal/model"
	"github.com/derickschaefer/bazi/internal/pipeline"
	"github.com/derickschaefer/bazi/internal/render"
)

var batchFailFast bool

var batchCmd = &cobra.Command{
	Use:   "batch [FILE]",
	Short: "Calculate many birth records from a JSONL file or stdin",
	Long: `Read one JSON object per line with the form fields and calculate each.

  {"year":1990,"month":5,"day":15,"hour":14,"minute":30,"timezone":"Asia/Shanghai"}

Fields may be numbers or strings; they are parsed the same way as the form.
Blank lines and lines starting with // are skipped. Missing timezones default
to Asia/Shanghai.

Up to --concurrency requests run at once and --rate caps requests per
second. Results keep input order. When stdout is not a terminal and no
--format is given, one JSON result per line is written.`,
	Example: `  bazi batch people.jsonl
  cat people.jsonl | bazi batch --concurrency 8
  bazi batch people.jsonl --format csv --out readings.csv`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}

		var in io.Reader
		switch {
		case len(args) == 1 && args[0] != "-":
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening input: %w", err)
			}
			defer f.Close()
			in = f
		case len(args) == 1 || pipeline.StdinIsPiped():
			in = cmd.InOrStdin()
		default:
			return fmt.Errorf("no input: pass a JSONL file or pipe records on stdin")
		}

		entries, err := pipeline.ReadEntries(in)
		if err != nil {
			return err
		}

		format := render.FormatJSONL
		if globalFlags.Format != "" || pipeline.IsTTY() || globalFlags.Out != "" {
			if format, err = resolveFormat(deps.Config.Format); err != nil {
				return err
			}
		}

		start := time.Now()
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		calc := func(ctx context.Context, req model.Request) (*model.Reading, error) {
			r, err := deps.Client.Calculate(ctx, deps.Endpoint, req)
			if err != nil && batchFailFast {
				cancel()
			}
			return r, err
		}
		deps.Logger.Info("batch started", "entries", len(entries), "concurrency", deps.Config.Concurrency)
		items, runErr := pipeline.Run(ctx, entries, deps.Config.Concurrency, calc)
		if runErr != nil && !batchFailFast {
			return runErr
		}

		failed := pipeline.Failures(items)
		result := buildResult(model.KindBatch, "batch", items, len(items), start)
		if failed > 0 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%d of %d records failed", failed, len(items)))
		}

		if format == render.FormatJSONL {
			w, closeFn, err := outputWriter(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := pipeline.WriteJSONL(w, items); err != nil {
				closeFn()
				return err
			}
			if err := closeFn(); err != nil {
				return err
			}
			render.PrintFooter(cmd.ErrOrStderr(), result, deps.Config.Verbose)
		} else if err := emit(cmd, result, format, deps.Config.Verbose); err != nil {
			return err
		}

		if failed > 0 && batchFailFast {
			return reportedError{err: fmt.Errorf("batch stopped after a failure")}
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().BoolVar(&batchFailFast, "fail-fast", false, "stop issuing requests after the first failure and exit non-zero")
	rootCmd.AddCommand(batchCmd)
}
