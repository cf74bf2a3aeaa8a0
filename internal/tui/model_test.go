package tui

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/derickschaefer/bazi/internal/baziapi"
	"github.com/derickschaefer/bazi/internal/form"
	"github.com/derickschaefer/bazi/internal/model"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

type stubAPI struct {
	mu       sync.Mutex
	reading  *model.Reading
	err      error
	calls    int
	probes   int
	lastEP   baziapi.Endpoint
	lastReq  model.Request
	probeEPs []string
}

func (s *stubAPI) Calculate(_ context.Context, ep baziapi.Endpoint, req model.Request) (*model.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lastEP, s.lastReq = ep, req
	return s.reading, s.err
}

func (s *stubAPI) Health(_ context.Context, ep baziapi.Endpoint) (*model.Health, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.probes++
	s.probeEPs = append(s.probeEPs, ep.BaseURL)
	return &model.Health{Status: "healthy"}, nil
}

func reading() *model.Reading {
	return &model.Reading{
		YearPillar: "庚午", MonthPillar: "辛巳", DayPillar: "甲子", HourPillar: "辛未",
		Sizhu: map[string]model.Pillar{
			"year": {Tian: "庚", Di: "午"}, "month": {Tian: "辛", Di: "巳"},
			"day": {Tian: "甲", Di: "子"}, "hour": {Tian: "辛", Di: "未"},
		},
		Rigan: "甲", RiganWuxing: "木",
		WuxingAnalysis: &model.WuxingAnalysis{Count: map[string]int{"火": 2}},
		Interpretation: &model.Interpretation{Advice: "多运动"},
	}
}

func newModel(api form.API) Model {
	return New(context.Background(), Options{
		API:      api,
		Endpoint: baziapi.Endpoint{BaseURL: "http://localhost:8000"},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func key(k tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: k} }

func typeText(m Model, s string) Model {
	for _, r := range s {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = next.(Model)
	}
	return m
}

func press(m Model, k tea.KeyType) (Model, tea.Cmd) {
	next, cmd := m.Update(key(k))
	return next.(Model), cmd
}

// run executes cmd, flattening batches, and returns the produced messages.
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, run(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func findResult(msgs []tea.Msg) (resultMsg, bool) {
	for _, m := range msgs {
		if r, ok := m.(resultMsg); ok {
			return r, true
		}
	}
	return resultMsg{}, false
}

// ─── Tests ────────────────────────────────────────────────────────────────────

func TestCtrlTFillsSample(t *testing.T) {
	api := &stubAPI{}
	m := newModel(api)
	m, cmd := press(m, tea.KeyCtrlT)
	if cmd != nil {
		t.Error("fill sample should not issue a command")
	}
	if got := m.board.Fields(); got != form.SampleFields() {
		t.Errorf("fields = %+v", got)
	}
	if api.calls != 0 {
		t.Error("fill sample must not submit")
	}
}

func TestEnterSubmitsAndRenders(t *testing.T) {
	api := &stubAPI{reading: reading()}
	m := newModel(api)
	m, _ = press(m, tea.KeyCtrlT)

	m, cmd := press(m, tea.KeyEnter)
	if !m.board.Loading || !m.board.SubmitDisabled {
		t.Fatal("enter should enter loading state")
	}
	res, ok := findResult(run(cmd))
	if !ok {
		t.Fatal("submit command produced no result message")
	}
	if api.lastReq.Year != model.IntOf(1990) || api.lastEP.BaseURL != "http://localhost:8000" {
		t.Errorf("request = %+v to %q", api.lastReq, api.lastEP.BaseURL)
	}

	next, _ := m.Update(res)
	m = next.(Model)
	if m.board.Loading {
		t.Error("loading not cleared")
	}
	if !m.board.ResultVisible {
		t.Error("result not visible")
	}
	if m.board.Text[form.DayPillar] != "甲子" || m.board.Text[form.WuxingEarth] != "0" {
		t.Errorf("texts = %v", m.board.Text)
	}
	if !strings.Contains(m.View(), "甲子") {
		t.Error("view does not show the result")
	}
}

func TestEnterIgnoredWhileLoading(t *testing.T) {
	api := &stubAPI{reading: reading()}
	m := newModel(api)
	m, first := press(m, tea.KeyEnter)
	if first == nil {
		t.Fatal("first enter should submit")
	}
	m, second := press(m, tea.KeyEnter)
	if second != nil {
		t.Error("second enter while loading should be ignored")
	}
	run(first)
	if api.calls != 1 {
		t.Errorf("calls = %d, want 1", api.calls)
	}
}

func TestErrorShownInView(t *testing.T) {
	api := &stubAPI{err: &baziapi.CallError{Kind: baziapi.KindServer, Status: 422, Detail: "Invalid month"}}
	m := newModel(api)
	m, cmd := press(m, tea.KeyEnter)
	res, _ := findResult(run(cmd))
	next, _ := m.Update(res)
	m = next.(Model)

	if !m.board.ErrorVisible || m.board.ResultVisible || m.board.Loading {
		t.Errorf("error=%v result=%v loading=%v", m.board.ErrorVisible, m.board.ResultVisible, m.board.Loading)
	}
	if m.last.Kind != baziapi.KindServer {
		t.Errorf("last kind = %v", m.last.Kind)
	}
	if !strings.Contains(m.View(), "错误：Invalid month") {
		t.Errorf("view missing error:\n%s", m.View())
	}
}

func TestLeavingAPIFieldConfiguresEndpoint(t *testing.T) {
	api := &stubAPI{reading: reading()}
	m := newModel(api)

	// shift+tab from the first field wraps to the API field
	m, _ = press(m, tea.KeyShiftTab)
	if m.focus != fieldAPI {
		t.Fatalf("focus = %d, want API field", m.focus)
	}
	for range "http://localhost:8000" {
		m, _ = press(m, tea.KeyBackspace)
	}
	m = typeText(m, " http://10.0.0.5:9000/ ")
	if m.Controller().Endpoint().BaseURL != "http://localhost:8000" {
		t.Error("endpoint changed before leaving the field")
	}

	m, _ = press(m, tea.KeyTab)
	if got := m.Controller().Endpoint().BaseURL; got != "http://10.0.0.5:9000" {
		t.Errorf("endpoint = %q", got)
	}
	if m.board.Endpoint != "http://10.0.0.5:9000" {
		t.Errorf("endpoint display = %q", m.board.Endpoint)
	}

	_, cmd := press(m, tea.KeyEnter)
	run(cmd)
	if api.lastEP.BaseURL != "http://10.0.0.5:9000" {
		t.Errorf("request went to %q", api.lastEP.BaseURL)
	}
}

func TestEnterOnAPIFieldDoesNotSubmit(t *testing.T) {
	api := &stubAPI{}
	m := newModel(api)
	m, _ = press(m, tea.KeyShiftTab)
	m = typeText(m, "9")
	m, cmd := press(m, tea.KeyEnter)
	if cmd != nil || m.board.Loading {
		t.Error("enter on the API field should only apply the endpoint")
	}
	if m.Controller().Endpoint().BaseURL != "http://localhost:80009" {
		t.Errorf("endpoint = %q", m.Controller().Endpoint().BaseURL)
	}
}

func TestInitProbesWithoutViewChange(t *testing.T) {
	api := &stubAPI{}
	m := newModel(api)
	msgs := run(m.Init())
	found := false
	for _, msg := range msgs {
		if _, ok := msg.(probeMsg); ok {
			found = true
			next, _ := m.Update(msg)
			m = next.(Model)
		}
	}
	if !found {
		t.Fatal("Init did not run the probe")
	}
	if api.probes != 1 || api.probeEPs[0] != "http://localhost:8000" {
		t.Errorf("probes = %d %v", api.probes, api.probeEPs)
	}
	if m.board.ErrorVisible || m.board.ResultVisible {
		t.Error("probe must not change the view")
	}
}

func TestEscQuits(t *testing.T) {
	m := newModel(&stubAPI{})
	_, cmd := press(m, tea.KeyEsc)
	if cmd == nil {
		t.Fatal("esc should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("esc should quit")
	}
}
