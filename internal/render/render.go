// Package render converts Result values into human-readable or machine-parseable
// output. Each format is a separate function; the top-level Render dispatcher
// selects based on the format string.
package render

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/derickschaefer/bazi/internal/model"
)

// Format constants matching --format flag values.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
	FormatTSV   = "tsv"
	FormatMD    = "md"
)

// Formats lists every accepted --format value.
var Formats = []string{FormatTable, FormatJSON, FormatJSONL, FormatCSV, FormatTSV, FormatMD}

// ValidFormat reports whether f is an accepted --format value.
func ValidFormat(f string) bool {
	for _, x := range Formats {
		if f == x {
			return true
		}
	}
	return false
}

// Render writes result to w in the specified format.
func Render(w io.Writer, result *model.Result, format string) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, result)
	case FormatJSONL:
		return renderJSONL(w, result)
	case FormatCSV:
		return renderDelimited(w, result, ',')
	case FormatTSV:
		return renderDelimited(w, result, '\t')
	case FormatMD:
		return renderMarkdown(w, result)
	default:
		return renderTable(w, result)
	}
}

// RenderTo writes to stdout by default; if path is non-empty, writes to file.
func RenderTo(path string, result *model.Result, format string) error {
	if path == "" {
		return Render(os.Stdout, result, format)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()
	return Render(f, result, format)
}

// ─── JSON ─────────────────────────────────────────────────────────────────────

func renderJSON(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(result)
}

// ─── JSONL ────────────────────────────────────────────────────────────────────

// renderJSONL writes one object per line: list kinds emit one line per
// element, everything else emits the payload on a single line.
func renderJSONL(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	switch data := result.Data.(type) {
	case []model.Record:
		for _, r := range data {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	case []model.Profile:
		for _, p := range data {
			if err := enc.Encode(p); err != nil {
				return err
			}
		}
		return nil
	case []model.BatchItem:
		for _, it := range data {
			if err := enc.Encode(it); err != nil {
				return err
			}
		}
		return nil
	default:
		return enc.Encode(result.Data)
	}
}

// ─── Table ────────────────────────────────────────────────────────────────────

func newTable(w io.Writer, header []string) *tablewriter.Table {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(header)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)
	return tw
}

func renderTable(w io.Writer, result *model.Result) error {
	switch data := result.Data.(type) {
	case *model.Reading:
		return renderReadingTable(w, data)
	case *model.Record:
		return renderRecordTable(w, data)
	case []model.Record:
		return renderRecordsTable(w, data)
	case *model.Health:
		return renderHealthTable(w, data)
	case *model.TimezoneCatalog:
		return renderTimezoneTable(w, data)
	case []model.Profile:
		return renderProfilesTable(w, data)
	case []model.BatchItem:
		return renderBatchTable(w, data)
	default:
		// Fallback: JSON
		return renderJSON(w, result)
	}
}

func renderReadingTable(w io.Writer, r *model.Reading) error {
	tw := newTable(w, []string{"", "年柱", "月柱", "日柱", "时柱"})
	tw.Append([]string{"四柱", r.YearPillar, r.MonthPillar, r.DayPillar, r.HourPillar})
	details := []string{"天干 地支"}
	for _, k := range model.PillarKeys {
		p := r.Sizhu[k]
		details = append(details, p.Tian+" "+p.Di)
	}
	tw.Append(details)
	tw.Render()

	fmt.Fprintf(w, "\n日主: %s  五行属%s\n", r.Rigan, r.RiganWuxing)
	if r.ID != "" {
		fmt.Fprintf(w, "记录ID: %s\n", r.ID)
	}

	counts := newTable(w, model.Elements)
	row := make([]string, len(model.Elements))
	for i, el := range model.Elements {
		row[i] = strconv.Itoa(r.ElementCount(el))
	}
	counts.Append(row)
	fmt.Fprintln(w)
	counts.Render()

	if in := r.Interpretation; in != nil {
		fmt.Fprintln(w)
		sections := [][2]string{
			{"基本分析", in.Basic + " " + in.WuxingDistribution + " " + in.WuxingBalance},
			{"性格特点", in.Personality},
			{"喜用神", in.Xiyongshen},
			{"建议", in.Advice},
		}
		for _, s := range sections {
			fmt.Fprintf(w, "【%s】\n%s\n\n", s[0], s[1])
		}
	}
	return nil
}

func renderRecordTable(w io.Writer, r *model.Record) error {
	tw := newTable(w, []string{"FIELD", "VALUE"})
	tw.SetColWidth(80)
	tw.SetAutoWrapText(true)
	rows := [][]string{
		{"ID", strconv.Itoa(r.ID)},
		{"User", deref(r.UserID)},
		{"Birth", birthString(r)},
		{"Timezone", r.Timezone},
		{"Pillars", strings.Join([]string{r.YearPillar, r.MonthPillar, r.DayPillar, r.HourPillar}, " ")},
		{"Day master", r.Rigan + " (" + r.RiganWuxing + ")"},
		{"Elements", elementSummary(r.WuxingAnalysis)},
		{"Created", r.CreatedAt},
	}
	if r.Interpretation != nil && *r.Interpretation != "" {
		text := *r.Interpretation
		if n := []rune(text); len(n) > 200 {
			text = string(n[:200]) + "…"
		}
		rows = append(rows, []string{"Interpretation", text})
	}
	tw.AppendBulk(rows)
	tw.Render()
	return nil
}

func renderRecordsTable(w io.Writer, records []model.Record) error {
	tw := newTable(w, []string{"ID", "USER", "BIRTH", "TIMEZONE", "PILLARS", "DAY MASTER", "CREATED"})
	for _, r := range records {
		tw.Append([]string{
			strconv.Itoa(r.ID),
			deref(r.UserID),
			birthString(&r),
			r.Timezone,
			strings.Join([]string{r.YearPillar, r.MonthPillar, r.DayPillar, r.HourPillar}, " "),
			r.Rigan + r.RiganWuxing,
			r.CreatedAt,
		})
	}
	tw.Render()
	return nil
}

func renderHealthTable(w io.Writer, h *model.Health) error {
	tw := newTable(w, []string{"STATUS", "MESSAGE", "VERSION", "TIMESTAMP"})
	tw.Append([]string{h.Status, h.Message, h.Version, h.Timestamp})
	tw.Render()
	return nil
}

func renderTimezoneTable(w io.Writer, c *model.TimezoneCatalog) error {
	tw := newTable(w, []string{"REGION", "TIMEZONE", "LABEL"})
	for _, region := range sortedKeys(c.Common) {
		zones := c.Common[region]
		for _, z := range sortedKeys(zones) {
			tw.Append([]string{region, z, zones[z]})
		}
	}
	tw.Render()
	if len(c.All) > 0 {
		fmt.Fprintf(w, "%d timezones available (use --format json for the full list)\n", len(c.All))
	}
	return nil
}

func renderProfilesTable(w io.Writer, profiles []model.Profile) error {
	tw := newTable(w, []string{"NAME", "BIRTH", "TIMEZONE", "USER", "SAVED", "LAST RUN", "LAST ID"})
	for _, p := range profiles {
		lastRun := ""
		if p.LastRunAt != nil {
			lastRun = p.LastRunAt.Format(time.RFC3339)
		}
		tw.Append([]string{
			p.Name,
			fmt.Sprintf("%s-%s-%s %s:%s", p.Year, p.Month, p.Day, p.Hour, p.Minute),
			p.Timezone,
			p.UserID,
			p.SavedAt.Format(time.RFC3339),
			lastRun,
			string(p.LastRecordID),
		})
	}
	tw.Render()
	return nil
}

func renderBatchTable(w io.Writer, items []model.BatchItem) error {
	tw := newTable(w, []string{"LINE", "BIRTH", "PILLARS", "ID", "ERROR"})
	for _, it := range items {
		pillars := ""
		id := ""
		if it.Reading != nil {
			pillars = strings.Join([]string{it.Reading.YearPillar, it.Reading.MonthPillar, it.Reading.DayPillar, it.Reading.HourPillar}, " ")
			id = string(it.Reading.ID)
		}
		q := it.Request
		tw.Append([]string{
			strconv.Itoa(it.Line),
			fmt.Sprintf("%s-%s-%s %s:%s", q.Year, q.Month, q.Day, q.Hour, q.Minute),
			pillars,
			id,
			it.Error,
		})
	}
	tw.Render()
	return nil
}

// ─── CSV / TSV ────────────────────────────────────────────────────────────────

func renderDelimited(w io.Writer, result *model.Result, sep rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = sep

	switch data := result.Data.(type) {
	case []model.Record:
		_ = cw.Write([]string{"id", "user_id", "birth", "timezone", "year_pillar", "month_pillar", "day_pillar", "hour_pillar", "rigan", "rigan_wuxing", "created_at"})
		for _, r := range data {
			_ = cw.Write([]string{
				strconv.Itoa(r.ID), deref(r.UserID), birthString(&r), r.Timezone,
				r.YearPillar, r.MonthPillar, r.DayPillar, r.HourPillar,
				r.Rigan, r.RiganWuxing, r.CreatedAt,
			})
		}
	case *model.Reading:
		_ = cw.Write(append([]string{"year_pillar", "month_pillar", "day_pillar", "hour_pillar", "rigan", "rigan_wuxing"}, model.Elements...))
		row := []string{data.YearPillar, data.MonthPillar, data.DayPillar, data.HourPillar, data.Rigan, data.RiganWuxing}
		for _, el := range model.Elements {
			row = append(row, strconv.Itoa(data.ElementCount(el)))
		}
		_ = cw.Write(row)
	case []model.BatchItem:
		_ = cw.Write([]string{"line", "year_pillar", "month_pillar", "day_pillar", "hour_pillar", "id", "error_kind", "error"})
		for _, it := range data {
			row := []string{strconv.Itoa(it.Line), "", "", "", "", "", it.Kind, it.Error}
			if r := it.Reading; r != nil {
				row[1], row[2], row[3], row[4], row[5] = r.YearPillar, r.MonthPillar, r.DayPillar, r.HourPillar, string(r.ID)
			}
			_ = cw.Write(row)
		}
	case *model.TimezoneCatalog:
		_ = cw.Write([]string{"timezone"})
		for _, z := range data.All {
			_ = cw.Write([]string{z})
		}
	default:
		// Fallback: serialize as JSON on a single line
		b, _ := json.Marshal(result.Data)
		_ = cw.Write([]string{string(b)})
	}

	cw.Flush()
	return cw.Error()
}

// ─── Markdown ─────────────────────────────────────────────────────────────────

func renderMarkdown(w io.Writer, result *model.Result) error {
	switch data := result.Data.(type) {
	case *model.Reading:
		fmt.Fprintf(w, "| 年柱 | 月柱 | 日柱 | 时柱 |\n|----|----|----|----|\n")
		fmt.Fprintf(w, "| %s | %s | %s | %s |\n\n", data.YearPillar, data.MonthPillar, data.DayPillar, data.HourPillar)
		fmt.Fprintf(w, "**日主**: %s (五行属%s)\n\n", data.Rigan, data.RiganWuxing)
		fmt.Fprintf(w, "| %s |\n|%s\n", strings.Join(model.Elements, " | "), strings.Repeat("----|", len(model.Elements)))
		counts := make([]string, len(model.Elements))
		for i, el := range model.Elements {
			counts[i] = strconv.Itoa(data.ElementCount(el))
		}
		fmt.Fprintf(w, "| %s |\n", strings.Join(counts, " | "))
		if in := data.Interpretation; in != nil {
			fmt.Fprintf(w, "\n### 性格特点\n\n%s\n\n### 喜用神\n\n%s\n\n### 建议\n\n%s\n",
				mdEscape(in.Personality), mdEscape(in.Xiyongshen), mdEscape(in.Advice))
		}
		return nil
	case []model.Record:
		fmt.Fprintf(w, "| ID | USER | BIRTH | PILLARS | CREATED |\n|----|----|----|----|----|\n")
		for _, r := range data {
			fmt.Fprintf(w, "| %d | %s | %s | %s | %s |\n",
				r.ID, mdEscape(deref(r.UserID)), birthString(&r),
				strings.Join([]string{r.YearPillar, r.MonthPillar, r.DayPillar, r.HourPillar}, " "),
				r.CreatedAt)
		}
		return nil
	default:
		return renderJSON(w, result)
	}
}

// ─── Warnings / Stats Footer ─────────────────────────────────────────────────

// PrintFooter writes warnings and stats to w when verbose mode is on.
func PrintFooter(w io.Writer, result *model.Result, verbose bool) {
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "⚠  %s\n", warn)
	}
	if verbose {
		fmt.Fprintf(w, "\n[%s • %d items • %dms]\n",
			result.GeneratedAt.Format(time.RFC3339),
			result.Stats.Items,
			result.Stats.DurationMs,
		)
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func birthString(r *model.Record) string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d", r.BirthYear, r.BirthMonth, r.BirthDay, r.BirthHour, r.BirthMinute)
}

func elementSummary(wa *model.WuxingAnalysis) string {
	if wa == nil {
		return ""
	}
	parts := make([]string, len(model.Elements))
	for i, el := range model.Elements {
		parts[i] = fmt.Sprintf("%s%d", el, wa.Count[el])
	}
	return strings.Join(parts, " ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
