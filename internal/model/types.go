// Package model defines the canonical data types used throughout bazi.
// These types mirror the calculation API's JSON payloads and the result
// envelope that every command renders.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/derickschaefer/bazi/internal/util"
)

// ─── Numeric form values ──────────────────────────────────────────────────────

// Int is an integer form value that may be not-a-number.
// An invalid Int is encoded as JSON null, which is how a NaN leaves a
// browser's JSON encoder; the API is left to reject it.
type Int struct {
	Value int
	Valid bool
}

// IntOf returns a valid Int.
func IntOf(v int) Int {
	return Int{Value: v, Valid: true}
}

// ParseInt coerces raw form text the way a numeric input is read:
// leading digits win, anything else is NaN.
func ParseInt(s string) Int {
	v, ok := util.ParseInt(s)
	return Int{Value: v, Valid: ok}
}

// String renders the value, or "NaN" when invalid.
func (i Int) String() string {
	if !i.Valid {
		return "NaN"
	}
	return strconv.Itoa(i.Value)
}

func (i Int) MarshalJSON() ([]byte, error) {
	if !i.Valid {
		return []byte("null"), nil
	}
	return strconv.AppendInt(nil, int64(i.Value), 10), nil
}

// UnmarshalJSON accepts a number, a numeric string or null.
func (i *Int) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*i = Int{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*i = ParseInt(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("invalid integer %s", b)
	}
	*i = IntOf(int(f))
	return nil
}

// ─── Request ──────────────────────────────────────────────────────────────────

// Request is the body of POST /api/v1/bazi/calculate.
type Request struct {
	Year     Int     `json:"year"`
	Month    Int     `json:"month"`
	Day      Int     `json:"day"`
	Hour     Int     `json:"hour"`
	Minute   Int     `json:"minute"`
	Timezone string  `json:"timezone"`
	UserID   *string `json:"user_id"`
}

// ─── Reading ──────────────────────────────────────────────────────────────────

// Elements is the fixed five-element taxonomy in display order:
// wood, fire, earth, metal, water.
var Elements = []string{"木", "火", "土", "金", "水"}

// PillarKeys are the sizhu keys in display order.
var PillarKeys = []string{"year", "month", "day", "hour"}

// Pillar is one of the four pillars split into stem (tian) and branch (di).
type Pillar struct {
	Ganzhi string `json:"ganzhi,omitempty"`
	Tian   string `json:"tian"`
	Di     string `json:"di"`
}

// WuxingAnalysis is the five-element tally.
type WuxingAnalysis struct {
	Count     map[string]int `json:"count"`
	Strongest string         `json:"strongest,omitempty"`
	Weakest   string         `json:"weakest,omitempty"`
	Total     int            `json:"total,omitempty"`
}

// Interpretation holds the free-text reading sections.
type Interpretation struct {
	Basic              string `json:"basic"`
	WuxingDistribution string `json:"wuxing_distribution"`
	WuxingBalance      string `json:"wuxing_balance"`
	Personality        string `json:"personality"`
	Xiyongshen         string `json:"xiyongshen"`
	Advice             string `json:"advice"`
	FullText           string `json:"full_text,omitempty"`
}

// Reading is a successful calculation response.
// WuxingAnalysis and Interpretation are pointers so that an absent section
// is distinguishable from an empty one.
type Reading struct {
	ID             RecordID          `json:"id,omitempty"`
	BirthTime      string            `json:"birth_time,omitempty"`
	Timezone       string            `json:"timezone,omitempty"`
	YearPillar     string            `json:"year_pillar"`
	MonthPillar    string            `json:"month_pillar"`
	DayPillar      string            `json:"day_pillar"`
	HourPillar     string            `json:"hour_pillar"`
	Sizhu          map[string]Pillar `json:"sizhu"`
	Rigan          string            `json:"rigan"`
	RiganWuxing    string            `json:"rigan_wuxing"`
	WuxingAnalysis *WuxingAnalysis   `json:"wuxing_analysis"`
	Interpretation *Interpretation   `json:"interpretation"`
}

// ElementCount returns the tally for an element, 0 when absent.
func (r *Reading) ElementCount(element string) int {
	if r.WuxingAnalysis == nil {
		return 0
	}
	return r.WuxingAnalysis.Count[element]
}

// RecordID is the optional record identifier. The API sends a number but
// a string is accepted as well; null and absent both decode to "".
type RecordID string

func (id *RecordID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*id = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = RecordID(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("invalid record id %s", b)
		}
		*id = RecordID(n.String())
	}
	return nil
}

func (id RecordID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// ─── Records / misc endpoints ────────────────────────────────────────────────

// Record is a stored calculation as returned by the record endpoints.
type Record struct {
	ID             int             `json:"id"`
	UserID         *string         `json:"user_id"`
	BirthYear      int             `json:"birth_year"`
	BirthMonth     int             `json:"birth_month"`
	BirthDay       int             `json:"birth_day"`
	BirthHour      int             `json:"birth_hour"`
	BirthMinute    int             `json:"birth_minute"`
	Timezone       string          `json:"timezone"`
	YearPillar     string          `json:"year_pillar"`
	MonthPillar    string          `json:"month_pillar"`
	DayPillar      string          `json:"day_pillar"`
	HourPillar     string          `json:"hour_pillar"`
	Rigan          string          `json:"rigan"`
	RiganWuxing    string          `json:"rigan_wuxing"`
	WuxingAnalysis *WuxingAnalysis `json:"wuxing_analysis"`
	Interpretation *string         `json:"interpretation"`
	CreatedAt      string          `json:"created_at"`
}

// Health is the GET /health payload.
type Health struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// TimezoneCatalog is the GET /api/v1/timezones payload.
// Common maps a region label to zone name → display label.
type TimezoneCatalog struct {
	Common map[string]map[string]string `json:"common_timezones"`
	All    []string                     `json:"all_timezones"`
}

// ─── Result Envelope ─────────────────────────────────────────────────────────

// ResultStats carries timing metadata for a command result.
type ResultStats struct {
	DurationMs int64 `json:"duration_ms"`
	Items      int   `json:"items"`
}

// Result is the uniform envelope returned by every command.
// The Data field holds the typed payload; Kind identifies what is in it.
type Result struct {
	Kind        string      `json:"kind"`
	GeneratedAt time.Time   `json:"generated_at"`
	Command     string      `json:"command"`
	Data        interface{} `json:"data"`
	Warnings    []string    `json:"warnings,omitempty"`
	Stats       ResultStats `json:"stats"`
}

// Kind constants for Result.Kind.
const (
	KindReading   = "reading"
	KindRecord    = "record"
	KindRecords   = "records"
	KindTimezones = "timezones"
	KindHealth    = "health"
	KindProfiles  = "profiles"
)

// KindBatch carries []BatchItem; KindHistory carries locally journaled
// calculations.
const (
	KindBatch        = "batch"
	KindHistory      = "history"
	KindElementStats = "element_stats"
)

// ─── Local data ───────────────────────────────────────────────────────────────

// Profile is a named set of form inputs saved in the local store.
// Values are kept as typed so a replay builds exactly the same payload.
type Profile struct {
	Name         string     `json:"name"`
	Year         string     `json:"year"`
	Month        string     `json:"month"`
	Day          string     `json:"day"`
	Hour         string     `json:"hour"`
	Minute       string     `json:"minute"`
	Timezone     string     `json:"timezone"`
	UserID       string     `json:"user_id,omitempty"`
	SavedAt      time.Time  `json:"saved_at"`
	LastRunAt    *time.Time `json:"last_run_at,omitempty"`
	LastRecordID RecordID   `json:"last_record_id,omitempty"`
}

// BatchItem is the outcome of one line of a batch input.
type BatchItem struct {
	Line    int      `json:"line"`
	Request Request  `json:"request"`
	Reading *Reading `json:"reading,omitempty"`
	Kind    string   `json:"error_kind,omitempty"`
	Error   string   `json:"error,omitempty"`
}
