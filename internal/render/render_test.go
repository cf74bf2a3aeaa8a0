package render_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/derickschaefer/bazi/internal/form"
	"github.com/derickschaefer/bazi/internal/model"
	"github.com/derickschaefer/bazi/internal/render"
)

func init() {
	color.NoColor = true
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func reading() *model.Reading {
	return &model.Reading{
		ID:          "7",
		YearPillar:  "庚午",
		MonthPillar: "辛巳",
		DayPillar:   "甲子",
		HourPillar:  "辛未",
		Sizhu: map[string]model.Pillar{
			"year":  {Tian: "庚", Di: "午"},
			"month": {Tian: "辛", Di: "巳"},
			"day":   {Tian: "甲", Di: "子"},
			"hour":  {Tian: "辛", Di: "未"},
		},
		Rigan:          "甲",
		RiganWuxing:    "木",
		WuxingAnalysis: &model.WuxingAnalysis{Count: map[string]int{"木": 1, "火": 2}},
		Interpretation: &model.Interpretation{Basic: "b", WuxingDistribution: "d", WuxingBalance: "w", Personality: "p|q", Xiyongshen: "x", Advice: "a"},
	}
}

func records() []model.Record {
	uid := "u1"
	return []model.Record{
		{ID: 1, UserID: &uid, BirthYear: 1990, BirthMonth: 5, BirthDay: 15, BirthHour: 14, BirthMinute: 30,
			Timezone: "Asia/Shanghai", YearPillar: "庚午", MonthPillar: "辛巳", DayPillar: "甲子", HourPillar: "辛未",
			Rigan: "甲", RiganWuxing: "木", CreatedAt: "2024-01-01T00:00:00"},
		{ID: 2, Timezone: "UTC", CreatedAt: "2024-01-02T00:00:00"},
	}
}

func result(kind string, data interface{}) *model.Result {
	return &model.Result{Kind: kind, GeneratedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Command: "test", Data: data}
}

// ─── Formats ──────────────────────────────────────────────────────────────────

func TestValidFormat(t *testing.T) {
	for _, f := range render.Formats {
		if !render.ValidFormat(f) {
			t.Errorf("%q should be valid", f)
		}
	}
	if render.ValidFormat("xml") {
		t.Error("xml should be invalid")
	}
}

func TestRenderJSON_Envelope(t *testing.T) {
	var buf strings.Builder
	if err := render.Render(&buf, result(model.KindReading, reading()), render.FormatJSON); err != nil {
		t.Fatal(err)
	}
	var got struct {
		Kind string          `json:"kind"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal([]byte(buf.String()), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if got.Kind != model.KindReading {
		t.Errorf("kind = %q", got.Kind)
	}
	if !strings.Contains(string(got.Data), `"day_pillar": "甲子"`) {
		t.Errorf("data missing day pillar: %s", got.Data)
	}
}

func TestRenderJSONL_OneLinePerRecord(t *testing.T) {
	var buf strings.Builder
	if err := render.Render(&buf, result(model.KindRecords, records()), render.FormatJSONL); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var r model.Record
	if err := json.Unmarshal([]byte(lines[1]), &r); err != nil || r.ID != 2 {
		t.Errorf("line 2 = %s (%v)", lines[1], err)
	}
}

func TestRenderTable_Reading(t *testing.T) {
	var buf strings.Builder
	if err := render.Render(&buf, result(model.KindReading, reading()), render.FormatTable); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"庚午", "甲 子", "五行属木", "记录ID: 7", "【建议】"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderTable_Records(t *testing.T) {
	var buf strings.Builder
	if err := render.Render(&buf, result(model.KindRecords, records()), render.FormatTable); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "1990-05-15 14:30") || !strings.Contains(out, "u1") {
		t.Errorf("records table:\n%s", out)
	}
}

func TestRenderTable_Timezones(t *testing.T) {
	var buf strings.Builder
	cat := &model.TimezoneCatalog{
		Common: map[string]map[string]string{"亚洲": {"Asia/Tokyo": "东京", "Asia/Shanghai": "北京"}},
		All:    []string{"Asia/Shanghai", "Asia/Tokyo", "UTC"},
	}
	if err := render.Render(&buf, result(model.KindTimezones, cat), render.FormatTable); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Index(out, "Asia/Shanghai") > strings.Index(out, "Asia/Tokyo") {
		t.Error("zones should be sorted")
	}
	if !strings.Contains(out, "3 timezones available") {
		t.Errorf("missing count line:\n%s", out)
	}
}

func TestRenderCSV_Reading(t *testing.T) {
	var buf strings.Builder
	if err := render.Render(&buf, result(model.KindReading, reading()), render.FormatCSV); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + row, got %d lines", len(lines))
	}
	if lines[1] != "庚午,辛巳,甲子,辛未,甲,木,1,2,0,0,0" {
		t.Errorf("row = %q", lines[1])
	}
}

func TestRenderMarkdown_Escapes(t *testing.T) {
	var buf strings.Builder
	if err := render.Render(&buf, result(model.KindReading, reading()), render.FormatMD); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `p\|q`) {
		t.Errorf("pipe not escaped:\n%s", buf.String())
	}
}

func TestRenderFallbackJSON(t *testing.T) {
	var buf strings.Builder
	if err := render.Render(&buf, result("other", map[string]int{"n": 1}), render.FormatTable); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"n": 1`) {
		t.Errorf("fallback output:\n%s", buf.String())
	}
}

func TestRenderTo_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := render.RenderTo(path, result(model.KindHealth, &model.Health{Status: "healthy"}), render.FormatJSON); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"healthy"`) {
		t.Errorf("file content: %s", b)
	}
}

func TestPrintFooter(t *testing.T) {
	var buf strings.Builder
	r := result(model.KindReading, nil)
	r.Warnings = []string{"careful"}
	r.Stats = model.ResultStats{DurationMs: 12, Items: 1}
	render.PrintFooter(&buf, r, true)
	out := buf.String()
	if !strings.Contains(out, "⚠  careful") || !strings.Contains(out, "12ms") {
		t.Errorf("footer:\n%s", out)
	}
}

// ─── Page ─────────────────────────────────────────────────────────────────────

func TestPage_HiddenPrintsNothing(t *testing.T) {
	var buf strings.Builder
	p := form.NewPage(form.Fields{})
	p.ErrorText = "stale"
	p.SetText(form.DayPillar, "甲子")
	render.Page(&buf, p)
	if buf.Len() != 0 {
		t.Errorf("hidden page printed:\n%s", buf.String())
	}
}

func TestPage_Error(t *testing.T) {
	var buf strings.Builder
	p := form.NewPage(form.Fields{})
	p.ShowError(form.FormatError("计算失败"))
	render.Page(&buf, p)
	if !strings.HasPrefix(buf.String(), "错误：计算失败\n") {
		t.Errorf("error output:\n%s", buf.String())
	}
}

func TestPage_Result(t *testing.T) {
	var buf strings.Builder
	p := form.NewPage(form.Fields{})
	p.SetText(form.YearPillar, "庚午")
	p.SetText(form.RiganWuxing, "五行属木")
	p.SetText(form.Advice, "多运动")
	p.ShowResult()
	render.Page(&buf, p)
	out := buf.String()
	for _, want := range []string{"【四柱】", "年柱 庚午", "五行属木", "【建议】\n多运动"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q:\n%s", want, out)
		}
	}
}

func TestHealth(t *testing.T) {
	var buf strings.Builder
	render.Health(&buf, "http://x", nil)
	render.Health(&buf, "http://x", errors.New("refused"))
	out := buf.String()
	if !strings.Contains(out, "API连接正常") || !strings.Contains(out, "refused") {
		t.Errorf("health output:\n%s", out)
	}
}
