package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/derickschaefer/bazi/internal/form"
	"github.com/derickschaefer/bazi/internal/model"
	"github.com/derickschaefer/bazi/internal/render"
)

// resolveFormat returns the effective format string, falling back to "table".
func resolveFormat(cfgFormat string) (string, error) {
	format := render.FormatTable
	switch {
	case globalFlags.Format != "":
		format = globalFlags.Format
	case cfgFormat != "":
		format = cfgFormat
	}
	if !render.ValidFormat(format) {
		return "", fmt.Errorf("unknown format %q (valid: table, json, jsonl, csv, tsv, md)", format)
	}
	return format, nil
}

// outputWriter returns the --out file when set, otherwise def.
// The returned close function is always safe to call.
func outputWriter(def io.Writer) (io.Writer, func() error, error) {
	if globalFlags.Out == "" {
		return def, func() error { return nil }, nil
	}
	f, err := os.Create(globalFlags.Out)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f.Close, nil
}

// emit renders result in format to --out or cmd's stdout and prints the
// footer to stderr.
func emit(cmd *cobra.Command, result *model.Result, format string, verbose bool) error {
	w, closeFn, err := outputWriter(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if err := render.Render(w, result, format); err != nil {
		closeFn()
		return err
	}
	if err := closeFn(); err != nil {
		return err
	}
	render.PrintFooter(cmd.ErrOrStderr(), result, verbose)
	return nil
}

// buildResult wraps data in a Result envelope.
func buildResult(kind, command string, data interface{}, items int, started time.Time) *model.Result {
	return &model.Result{
		Kind:        kind,
		GeneratedAt: time.Now(),
		Command:     command,
		Data:        data,
		Stats: model.ResultStats{
			Items:      items,
			DurationMs: time.Since(started).Milliseconds(),
		},
	}
}

// printSimpleTable renders a simple table with headers using tablewriter.
// The add callback is called with row values as variadic strings.
func printSimpleTable(w io.Writer, headers []string, fill func(add func(...string))) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(headers)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)

	fill(func(cols ...string) {
		tw.Append(cols)
	})
	tw.Render()
}

// parseIntID parses a string as a non-negative integer ID, with a descriptive label for errors.
func parseIntID(s, label string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid %s %q: expected a positive integer", label, s)
	}
	return id, nil
}

func humanBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// ─── Birth flags ──────────────────────────────────────────────────────────────

// birthFlags are the form fields as command flags. Values are kept as
// typed so the same parsing applies as in the interactive form.
type birthFlags struct {
	form.Fields
	sample bool
}

func (b *birthFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&b.Year, "year", "", "birth year (e.g. 1990)")
	fs.StringVar(&b.Month, "month", "", "birth month 1-12")
	fs.StringVar(&b.Day, "day", "", "birth day 1-31")
	fs.StringVar(&b.Hour, "hour", "", "birth hour 0-23")
	fs.StringVar(&b.Minute, "minute", "0", "birth minute 0-59")
	fs.StringVar(&b.Timezone, "timezone", form.DefaultTimezone, "IANA timezone of the birth place")
	fs.StringVar(&b.UserID, "user-id", "", "optional user identifier stored with the record")
	fs.BoolVar(&b.sample, "sample", false, "start from the sample record (1990-05-15 14:30 Asia/Shanghai)")
}

// apply overlays explicitly set flags on base. With --sample the sample
// record replaces base first.
func (b *birthFlags) apply(cmd *cobra.Command, base form.Fields) form.Fields {
	if b.sample {
		base = form.SampleFields()
	}
	fs := cmd.Flags()
	set := func(name string, dst *string, v string) {
		if fs.Changed(name) {
			*dst = v
		}
	}
	set("year", &base.Year, b.Year)
	set("month", &base.Month, b.Month)
	set("day", &base.Day, b.Day)
	set("hour", &base.Hour, b.Hour)
	set("minute", &base.Minute, b.Minute)
	set("timezone", &base.Timezone, b.Timezone)
	set("user-id", &base.UserID, b.UserID)
	return base
}

// defaults fills the flag defaults into empty fields that have them.
func (b *birthFlags) defaults(f form.Fields) form.Fields {
	if f.Minute == "" {
		f.Minute = b.Minute
	}
	if f.Timezone == "" {
		f.Timezone = b.Timezone
	}
	return f
}

func fieldsFromProfile(p model.Profile) form.Fields {
	return form.Fields{
		Year: p.Year, Month: p.Month, Day: p.Day,
		Hour: p.Hour, Minute: p.Minute,
		Timezone: p.Timezone, UserID: p.UserID,
	}
}

func profileFromFields(name string, f form.Fields) model.Profile {
	return model.Profile{
		Name: name,
		Year: f.Year, Month: f.Month, Day: f.Day,
		Hour: f.Hour, Minute: f.Minute,
		Timezone: f.Timezone, UserID: f.UserID,
	}
}
