// Package pipeline reads batches of form records from JSONL, calculates
// them concurrently and writes the outcomes back as JSONL.
package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"

	"github.com/derickschaefer/bazi/internal/baziapi"
	"github.com/derickschaefer/bazi/internal/form"
	"github.com/derickschaefer/bazi/internal/model"
)

// Entry is one input line.
type Entry struct {
	Line   int
	Fields form.Fields
}

// ReadEntries reads JSONL records from r. Each line is an object with the
// form's field names; values may be numbers, strings or null and are kept
// as the text a user would have typed, so they go through the same parsing
// as the interactive form. Blank lines and // comments are skipped.
func ReadEntries(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	type row struct {
		Year     json.RawMessage `json:"year"`
		Month    json.RawMessage `json:"month"`
		Day      json.RawMessage `json:"day"`
		Hour     json.RawMessage `json:"hour"`
		Minute   json.RawMessage `json:"minute"`
		Timezone json.RawMessage `json:"timezone"`
		UserID   json.RawMessage `json:"user_id"`
	}

	var out []Entry
	lineNum := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lineNum++
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		var rec row
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("line %d: invalid JSON: %w", lineNum, err)
		}

		var f form.Fields
		for _, c := range []struct {
			name string
			raw  json.RawMessage
			dst  *string
		}{
			{"year", rec.Year, &f.Year},
			{"month", rec.Month, &f.Month},
			{"day", rec.Day, &f.Day},
			{"hour", rec.Hour, &f.Hour},
			{"minute", rec.Minute, &f.Minute},
			{"timezone", rec.Timezone, &f.Timezone},
			{"user_id", rec.UserID, &f.UserID},
		} {
			s, err := rawText(c.raw)
			if err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", lineNum, c.name, err)
			}
			*c.dst = s
		}
		if f.Timezone == "" {
			f.Timezone = form.DefaultTimezone
		}
		out = append(out, Entry{Line: lineNum, Fields: f})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no records read from input (is stdin empty?)")
	}
	return out, nil
}

// rawText turns a JSON scalar into the text a form input would hold.
func rawText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{', '[':
		return "", fmt.Errorf("unexpected value %s", raw)
	default:
		// numbers and booleans keep their literal text
		return string(raw), nil
	}
}

// ─── Run ──────────────────────────────────────────────────────────────────────

// KindSkipped marks an entry that was never sent because the run was
// cancelled first.
const KindSkipped = "skipped"

// CalcFunc calculates one request.
type CalcFunc func(ctx context.Context, req model.Request) (*model.Reading, error)

// Run calculates every entry with at most concurrency calls in flight and
// returns one item per entry in input order. Per-entry failures are
// recorded on the item, not returned; the error is non-nil only when ctx
// is cancelled. Entries not yet started at cancellation carry KindSkipped.
func Run(ctx context.Context, entries []Entry, concurrency int, calc CalcFunc) ([]model.BatchItem, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	items := make([]model.BatchItem, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, e := range entries {
		req := e.Fields.Request()
		items[i] = model.BatchItem{Line: e.Line, Request: req}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				items[i].Error = err.Error()
				items[i].Kind = KindSkipped
				return nil
			}
			reading, err := calc(gctx, req)
			if err != nil {
				items[i].Error = err.Error()
				items[i].Kind = baziapi.KindDecode.String()
				if ce, ok := baziapi.AsCallError(err); ok {
					items[i].Kind = ce.Kind.String()
				}
				return nil
			}
			items[i].Reading = reading
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return items, err
	}
	return items, ctx.Err()
}

// Failures counts items that carry an error.
func Failures(items []model.BatchItem) int {
	n := 0
	for _, it := range items {
		if it.Error != "" {
			n++
		}
	}
	return n
}

// ─── Output ───────────────────────────────────────────────────────────────────

// WriteJSONL writes one item per line.
func WriteJSONL(w io.Writer, items []model.BatchItem) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, it := range items {
		if err := enc.Encode(it); err != nil {
			return err
		}
	}
	return nil
}

// IsTTY returns true if stdout is a terminal (not a pipe).
func IsTTY() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// StdinIsPiped reports whether stdin is a pipe or file rather than a terminal.
func StdinIsPiped() bool {
	fd := os.Stdin.Fd()
	return !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd)
}
