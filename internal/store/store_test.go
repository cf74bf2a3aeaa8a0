package store_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/derickschaefer/bazi/internal/model"
	"github.com/derickschaefer/bazi/internal/store"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

// testDB opens a fresh isolated database in t.TempDir().
// It is closed and deleted automatically when the test ends.
func testDB(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func makeProfile(name string) model.Profile {
	return model.Profile{
		Name:     name,
		Year:     "1990",
		Month:    "5",
		Day:      "15",
		Hour:     "14",
		Minute:   "30",
		Timezone: "Asia/Shanghai",
		UserID:   "test_user_001",
	}
}

// ─── Open / Path ──────────────────────────────────────────────────────────────

func TestOpenCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "test.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open with nested path: %v", err)
	}
	defer s.Close()
	if s.Path() != path {
		t.Errorf("Path: expected %q, got %q", path, s.Path())
	}
}

func TestSchemaVersion(t *testing.T) {
	s := testDB(t)
	v, err := s.SchemaVersion()
	if err != nil {
		t.Fatal(err)
	}
	if v != "1" {
		t.Errorf("schema version = %q", v)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.PutProfile(makeProfile("me")); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = store.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, ok, _ := s.GetProfile("me"); !ok {
		t.Error("profile lost across reopen")
	}
}

// ─── Profiles ─────────────────────────────────────────────────────────────────

func TestProfileRoundTrip(t *testing.T) {
	s := testDB(t)
	if err := s.PutProfile(makeProfile("me")); err != nil {
		t.Fatalf("PutProfile: %v", err)
	}
	got, ok, err := s.GetProfile("me")
	if err != nil || !ok {
		t.Fatalf("GetProfile: ok=%v err=%v", ok, err)
	}
	if got.Year != "1990" || got.Timezone != "Asia/Shanghai" || got.UserID != "test_user_001" {
		t.Errorf("profile = %+v", got)
	}
	if got.SavedAt.IsZero() {
		t.Error("SavedAt should be stamped")
	}
}

func TestGetProfileMissing(t *testing.T) {
	s := testDB(t)
	_, ok, err := s.GetProfile("nobody")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("missing profile reported as found")
	}
}

func TestPutProfileRejectsBadName(t *testing.T) {
	s := testDB(t)
	for _, name := range []string{"", "   ", "a\nb"} {
		if err := s.PutProfile(makeProfile(name)); err == nil {
			t.Errorf("PutProfile(%q) should fail", name)
		}
	}
}

func TestListProfilesSorted(t *testing.T) {
	s := testDB(t)
	for _, n := range []string{"zeta", "alpha", "mid"} {
		if err := s.PutProfile(makeProfile(n)); err != nil {
			t.Fatal(err)
		}
	}
	ps, err := s.ListProfiles()
	if err != nil {
		t.Fatal(err)
	}
	if len(ps) != 3 || ps[0].Name != "alpha" || ps[2].Name != "zeta" {
		t.Errorf("order = %v", ps)
	}
}

func TestDeleteProfile(t *testing.T) {
	s := testDB(t)
	_ = s.PutProfile(makeProfile("me"))
	existed, err := s.DeleteProfile("me")
	if err != nil || !existed {
		t.Fatalf("DeleteProfile: existed=%v err=%v", existed, err)
	}
	existed, err = s.DeleteProfile("me")
	if err != nil || existed {
		t.Errorf("second delete: existed=%v err=%v", existed, err)
	}
}

func TestMarkProfileRun(t *testing.T) {
	s := testDB(t)
	_ = s.PutProfile(makeProfile("me"))
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := s.MarkProfileRun("me", "42", at); err != nil {
		t.Fatal(err)
	}
	p, _, _ := s.GetProfile("me")
	if p.LastRunAt == nil || !p.LastRunAt.Equal(at) || p.LastRecordID != "42" {
		t.Errorf("profile = %+v", p)
	}
	if err := s.MarkProfileRun("nobody", "1", at); err == nil {
		t.Error("expected error for missing profile")
	}
}

// ─── History ──────────────────────────────────────────────────────────────────

func TestHistoryNewestFirst(t *testing.T) {
	s := testDB(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	// whole second then fractional: must still sort by time
	for i, at := range []time.Time{base, base.Add(500 * time.Millisecond), base.Add(2 * time.Second)} {
		e := store.HistoryEntry{
			At:      at,
			Request: model.Request{Year: model.IntOf(2000 + i)},
			Reading: &model.Reading{DayPillar: "甲子"},
		}
		if err := s.AppendHistory(e); err != nil {
			t.Fatal(err)
		}
	}
	hs, err := s.ListHistory(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(hs) != 3 {
		t.Fatalf("len = %d", len(hs))
	}
	for i, want := range []int{2002, 2001, 2000} {
		if hs[i].Request.Year != model.IntOf(want) {
			t.Errorf("entry %d year = %v, want %d", i, hs[i].Request.Year, want)
		}
	}

	hs, _ = s.ListHistory(1)
	if len(hs) != 1 {
		t.Errorf("limit 1 returned %d", len(hs))
	}
}

func TestHistorySameTimestampKeepsBoth(t *testing.T) {
	s := testDB(t)
	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for _, name := range []string{"first", "second"} {
		if err := s.AppendHistory(store.HistoryEntry{At: at, Profile: name, Reading: &model.Reading{}}); err != nil {
			t.Fatal(err)
		}
	}
	hs, err := s.ListHistory(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(hs) != 2 {
		t.Fatalf("len = %d, want 2", len(hs))
	}
	if hs[0].Profile != "second" || hs[1].Profile != "first" {
		t.Errorf("order = %q, %q", hs[0].Profile, hs[1].Profile)
	}
}

// ─── Stats & Maintenance ──────────────────────────────────────────────────────

func TestStatsAndClear(t *testing.T) {
	s := testDB(t)
	_ = s.PutProfile(makeProfile("a"))
	_ = s.PutProfile(makeProfile("b"))
	_ = s.AppendHistory(store.HistoryEntry{Reading: &model.Reading{}})

	stats, err := s.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 2 || stats[0].Name != "profiles" || stats[0].Count != 2 || stats[1].Count != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats[0].Bytes == 0 {
		t.Error("bytes should be non-zero")
	}

	if err := s.ClearBucket("profiles"); err != nil {
		t.Fatal(err)
	}
	ps, _ := s.ListProfiles()
	if len(ps) != 0 {
		t.Errorf("profiles after clear = %d", len(ps))
	}
	if err := s.ClearBucket("_meta"); err == nil {
		t.Error("clearing internal bucket should be rejected")
	}

	if err := s.ClearAll(); err != nil {
		t.Fatal(err)
	}
	hs, _ := s.ListHistory(0)
	if len(hs) != 0 {
		t.Errorf("history after ClearAll = %d", len(hs))
	}
}

func TestCompact(t *testing.T) {
	s := testDB(t)
	for i := 0; i < 50; i++ {
		_ = s.AppendHistory(store.HistoryEntry{
			At:      time.Unix(int64(i), 0),
			Reading: &model.Reading{DayPillar: "甲子"},
		})
	}
	_ = s.PutProfile(makeProfile("keep"))
	_ = s.ClearBucket("history")

	before, after, err := s.Compact()
	if err != nil {
		t.Fatalf("Compact: %v", err)
	}
	if before == 0 || after == 0 {
		t.Errorf("sizes before=%d after=%d", before, after)
	}
	if after > before {
		t.Errorf("compaction grew file: %d > %d", after, before)
	}
	if _, ok, err := s.GetProfile("keep"); err != nil || !ok {
		t.Errorf("profile lost by compaction: ok=%v err=%v", ok, err)
	}
}
