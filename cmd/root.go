// Package cmd implements the bazi CLI command tree.
// This file defines the root command and registers all global persistent flags.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/bazi/internal/app"
	"github.com/derickschaefer/bazi/internal/config"
	"github.com/derickschaefer/bazi/internal/render"
)

// globalFlags holds the parsed values of all persistent (global) flags.
// Commands read from this struct via the deps they receive.
var globalFlags struct {
	APIURL      string
	Format      string
	Out         string
	Timeout     string
	Concurrency int
	Rate        float64
	Quiet       bool
	Verbose     bool
	Debug       bool
}

// rootCmd is the base command. Running `bazi` with no subcommand
// prints help.
var rootCmd = &cobra.Command{
	Use:   "bazi",
	Short: "bazi — four pillars (八字) calculator client",
	Long: `bazi is a terminal front end for the Bazi calculation service.

It sends a birth date and time to the service, which computes the four
pillars (四柱), the day master (日主), the five-element (五行) tally and a
written interpretation, and shows the result.

Quick start:
  bazi health                          # check the service is reachable
  bazi calculate --sample              # calculate the sample record
  bazi form                            # interactive form
  bazi config set base_url http://10.0.0.5:8000`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// reportedError marks a failure whose message has already been printed.
type reportedError struct{ err error }

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

// Execute is the entry point called by main.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var rep reportedError
		if !errors.As(err, &rep) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		stop()
		os.Exit(1)
	}
}

// buildDeps resolves config and constructs the dependency container.
// Called at the start of each command's RunE.
func buildDeps() (*app.Deps, error) {
	cfg, err := config.Load(globalFlags.APIURL)
	if err != nil {
		return nil, err
	}

	// Apply CLI flag overrides
	cfg.Quiet = globalFlags.Quiet
	cfg.Verbose = globalFlags.Verbose
	cfg.Debug = globalFlags.Debug

	if globalFlags.Format != "" {
		cfg.Format = globalFlags.Format
	}
	if globalFlags.Timeout != "" {
		d, err := time.ParseDuration(globalFlags.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid --timeout %q: %w", globalFlags.Timeout, err)
		}
		cfg.Timeout = d
	}
	if globalFlags.Concurrency > 0 {
		cfg.Concurrency = globalFlags.Concurrency
	}
	if globalFlags.Rate > 0 {
		cfg.Rate = globalFlags.Rate
	}

	logger := newLogger(os.Stderr)
	slog.SetDefault(logger)
	return app.New(cfg, logger), nil
}

// newLogger builds the slog logger for the current verbosity flags.
func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case globalFlags.Debug:
		level = slog.LevelDebug
	case globalFlags.Verbose:
		level = slog.LevelInfo
	case globalFlags.Quiet:
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func init() {
	pf := rootCmd.PersistentFlags()

	pf.StringVar(&globalFlags.APIURL, "api-url", "",
		"calculation service base URL (overrides env BAZI_API_URL and config.json)")
	pf.StringVar(&globalFlags.Format, "format", "",
		"output format: table|json|jsonl|csv|tsv|md (default: table)")
	pf.StringVar(&globalFlags.Out, "out", "",
		"write output to file instead of stdout")
	pf.StringVar(&globalFlags.Timeout, "timeout", "",
		"HTTP request timeout (e.g. 30s, 2m)")
	pf.IntVar(&globalFlags.Concurrency, "concurrency", 0,
		"max parallel requests for batch operations (default: 4)")
	pf.Float64Var(&globalFlags.Rate, "rate", 0,
		"max API requests per second (default: 5.0)")
	pf.BoolVar(&globalFlags.Quiet, "quiet", false,
		"suppress all non-error output")
	pf.BoolVar(&globalFlags.Verbose, "verbose", false,
		"show timing stats after output and log progress")
	pf.BoolVar(&globalFlags.Debug, "debug", false,
		"log HTTP requests and responses")

	_ = rootCmd.RegisterFlagCompletionFunc("format",
		cobra.FixedCompletions(render.Formats, cobra.ShellCompDirectiveNoFileComp))
}
