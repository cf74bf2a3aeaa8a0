package baziapi_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/derickschaefer/bazi/internal/baziapi"
	"github.com/derickschaefer/bazi/internal/model"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

func mockServer(t *testing.T, handlers map[string]http.HandlerFunc) baziapi.Endpoint {
	t.Helper()
	mux := http.NewServeMux()
	for path, h := range handlers {
		mux.HandleFunc(path, h)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return baziapi.Endpoint{BaseURL: srv.URL}
}

func newClient() *baziapi.Client {
	return baziapi.NewClient(5*time.Second, 0, false)
}

func sampleRequest() model.Request {
	uid := "test_user_001"
	return model.Request{
		Year:     model.IntOf(1990),
		Month:    model.IntOf(5),
		Day:      model.IntOf(15),
		Hour:     model.IntOf(14),
		Minute:   model.IntOf(30),
		Timezone: "Asia/Shanghai",
		UserID:   &uid,
	}
}

const readingJSON = `{
  "id": 1,
  "year_pillar": "庚午", "month_pillar": "辛巳", "day_pillar": "甲子", "hour_pillar": "辛未",
  "sizhu": {
    "year":  {"ganzhi": "庚午", "tian": "庚", "di": "午"},
    "month": {"ganzhi": "辛巳", "tian": "辛", "di": "巳"},
    "day":   {"ganzhi": "甲子", "tian": "甲", "di": "子"},
    "hour":  {"ganzhi": "辛未", "tian": "辛", "di": "未"}
  },
  "rigan": "甲", "rigan_wuxing": "木",
  "wuxing_analysis": {"count": {"木": 1, "火": 2, "土": 1, "金": 2, "水": 2}, "strongest": "火", "weakest": "木", "total": 8},
  "interpretation": {"basic": "b", "wuxing_distribution": "d", "wuxing_balance": "w",
    "personality": "p", "xiyongshen": "x", "advice": "a"}
}`

// ─── Calculate ────────────────────────────────────────────────────────────────

func TestCalculateSendsJSONAndDecodes(t *testing.T) {
	ep := mockServer(t, map[string]http.HandlerFunc{
		baziapi.PathCalculate: func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("method: got %s, want POST", r.Method)
			}
			if ct := r.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type: got %q", ct)
			}
			body, _ := io.ReadAll(r.Body)
			var got map[string]interface{}
			if err := json.Unmarshal(body, &got); err != nil {
				t.Errorf("request body is not JSON: %v", err)
			}
			if got["year"] != float64(1990) || got["timezone"] != "Asia/Shanghai" || got["user_id"] != "test_user_001" {
				t.Errorf("unexpected payload: %s", body)
			}
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, readingJSON)
		},
	})

	reading, err := newClient().Calculate(context.Background(), ep, sampleRequest())
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if reading.DayPillar != "甲子" {
		t.Errorf("day_pillar: got %q", reading.DayPillar)
	}
	if reading.Sizhu["hour"].Di != "未" {
		t.Errorf("sizhu.hour.di: got %q", reading.Sizhu["hour"].Di)
	}
	if reading.ID != "1" {
		t.Errorf("id: got %q", reading.ID)
	}
	if reading.ElementCount("金") != 2 {
		t.Errorf("金 count: got %d", reading.ElementCount("金"))
	}
}

func TestCalculateServerErrorDetail(t *testing.T) {
	ep := mockServer(t, map[string]http.HandlerFunc{
		baziapi.PathCalculate: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			io.WriteString(w, `{"detail":"year out of range"}`)
		},
	})

	_, err := newClient().Calculate(context.Background(), ep, sampleRequest())
	ce, ok := baziapi.AsCallError(err)
	if !ok {
		t.Fatalf("expected *CallError, got %T (%v)", err, err)
	}
	if ce.Kind != baziapi.KindServer {
		t.Errorf("kind: got %v, want server", ce.Kind)
	}
	if ce.Status != http.StatusUnprocessableEntity {
		t.Errorf("status: got %d", ce.Status)
	}
	if ce.Error() != "year out of range" {
		t.Errorf("message: got %q", ce.Error())
	}
}

func TestCalculateServerErrorFallbacks(t *testing.T) {
	cases := map[string]string{
		"not json":                     baziapi.FallbackDetail,
		`{"message":"no detail"}`:      baziapi.FallbackDetail,
		`{"detail":""}`:                baziapi.FallbackDetail,
		`{"detail":42}`:                baziapi.FallbackDetail,
		`{"detail":[{"loc":["body","year"],"msg":"ensure this value is less than or equal to 2100"}]}`: "year: ensure this value is less than or equal to 2100",
	}
	for body, want := range cases {
		body := body
		ep := mockServer(t, map[string]http.HandlerFunc{
			baziapi.PathCalculate: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				io.WriteString(w, body)
			},
		})
		_, err := newClient().Calculate(context.Background(), ep, sampleRequest())
		if err == nil || err.Error() != want {
			t.Errorf("body %s: got %v, want %q", body, err, want)
		}
	}
}

func TestCalculateDecodeError(t *testing.T) {
	ep := mockServer(t, map[string]http.HandlerFunc{
		baziapi.PathCalculate: func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "<html>oops</html>")
		},
	})
	_, err := newClient().Calculate(context.Background(), ep, sampleRequest())
	ce, ok := baziapi.AsCallError(err)
	if !ok || ce.Kind != baziapi.KindDecode {
		t.Fatalf("expected decode CallError, got %v", err)
	}
}

func TestCalculateTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	ep := baziapi.Endpoint{BaseURL: srv.URL}
	srv.Close()

	_, err := newClient().Calculate(context.Background(), ep, sampleRequest())
	ce, ok := baziapi.AsCallError(err)
	if !ok || ce.Kind != baziapi.KindTransport {
		t.Fatalf("expected transport CallError, got %v", err)
	}
	if ce.Unwrap() == nil || ce.Error() == "" {
		t.Error("transport error should carry the underlying reason")
	}
}

func TestCalculateMalformedBaseURL(t *testing.T) {
	_, err := newClient().Calculate(context.Background(), baziapi.Endpoint{BaseURL: "::not a url"}, sampleRequest())
	ce, ok := baziapi.AsCallError(err)
	if !ok || ce.Kind != baziapi.KindTransport {
		t.Fatalf("malformed base URL should surface as transport error, got %v", err)
	}
}

// ─── Health ───────────────────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	ep := mockServer(t, map[string]http.HandlerFunc{
		baziapi.PathHealth: func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				t.Errorf("method: got %s", r.Method)
			}
			io.WriteString(w, `{"status":"healthy","message":"服务运行正常","version":"1.0.0"}`)
		},
	})
	h, err := newClient().Health(context.Background(), ep)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if h.Status != "healthy" || h.Version != "1.0.0" {
		t.Errorf("unexpected health payload: %+v", h)
	}
}

func TestHealthAny2xxIsHealthy(t *testing.T) {
	ep := mockServer(t, map[string]http.HandlerFunc{
		baziapi.PathHealth: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		},
	})
	if _, err := newClient().Health(context.Background(), ep); err != nil {
		t.Errorf("204 should be healthy, got %v", err)
	}
}

func TestHealthUnhealthy(t *testing.T) {
	ep := mockServer(t, map[string]http.HandlerFunc{
		baziapi.PathHealth: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		},
	})
	_, err := newClient().Health(context.Background(), ep)
	ce, ok := baziapi.AsCallError(err)
	if !ok || ce.Kind != baziapi.KindServer || ce.Status != http.StatusServiceUnavailable {
		t.Errorf("expected server error 503, got %v", err)
	}
}

// ─── Records / timezones ──────────────────────────────────────────────────────

func TestRecordEndpoints(t *testing.T) {
	ep := mockServer(t, map[string]http.HandlerFunc{
		"/api/v1/bazi/record/7": func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				io.WriteString(w, `{"id":7,"user_id":"u1","birth_year":1990,"day_pillar":"甲子","created_at":"2024-01-01T10:00:00"}`)
			case http.MethodDelete:
				io.WriteString(w, `{"message":"记录7已成功删除"}`)
			}
		},
		"/api/v1/bazi/user/u1": func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("limit") != "5" || r.URL.Query().Get("skip") != "10" {
				t.Errorf("paging params: got %q", r.URL.RawQuery)
			}
			io.WriteString(w, `[{"id":1},{"id":2}]`)
		},
		"/api/v1/bazi/records": func(w http.ResponseWriter, r *http.Request) {
			if r.URL.RawQuery != "" {
				t.Errorf("zero paging should send no params, got %q", r.URL.RawQuery)
			}
			io.WriteString(w, `[]`)
		},
	})
	c := newClient()
	ctx := context.Background()

	rec, err := c.GetRecord(ctx, ep, 7)
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if rec.ID != 7 || rec.DayPillar != "甲子" || rec.UserID == nil || *rec.UserID != "u1" {
		t.Errorf("unexpected record: %+v", rec)
	}

	msg, err := c.DeleteRecord(ctx, ep, 7)
	if err != nil || !strings.Contains(msg, "7") {
		t.Errorf("DeleteRecord: msg=%q err=%v", msg, err)
	}

	recs, err := c.ListUserRecords(ctx, ep, "u1", 10, 5)
	if err != nil || len(recs) != 2 {
		t.Errorf("ListUserRecords: %d records, err=%v", len(recs), err)
	}

	all, err := c.ListRecords(ctx, ep, 0, 0)
	if err != nil || len(all) != 0 {
		t.Errorf("ListRecords: %d records, err=%v", len(all), err)
	}
}

func TestGetRecordNotFound(t *testing.T) {
	ep := mockServer(t, map[string]http.HandlerFunc{
		"/api/v1/bazi/record/": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"detail":"未找到ID为99的记录"}`)
		},
	})
	_, err := newClient().GetRecord(context.Background(), ep, 99)
	if err == nil || !strings.Contains(err.Error(), "99") {
		t.Errorf("expected not-found detail, got %v", err)
	}
}

func TestTimezones(t *testing.T) {
	ep := mockServer(t, map[string]http.HandlerFunc{
		baziapi.PathTimezones: func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"common_timezones":{"中国":{"Asia/Shanghai":"北京时间 (UTC+8)"}},"all_timezones":["UTC","Asia/Shanghai"]}`)
		},
	})
	cat, err := newClient().Timezones(context.Background(), ep)
	if err != nil {
		t.Fatalf("Timezones: %v", err)
	}
	if cat.Common["中国"]["Asia/Shanghai"] == "" || len(cat.All) != 2 {
		t.Errorf("unexpected catalog: %+v", cat)
	}
}
