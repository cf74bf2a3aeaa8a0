// Package form implements the form controller: it captures the birth
// moment from a View, sends it to the calculation service and writes the
// reading back into the View's output slots.
//
// A submission runs in three phases so an event-loop front end can keep
// the network call off its UI goroutine:
//
//	p := c.Begin()              // UI goroutine: clear, enter loading, read form
//	r, err := c.Call(ctx, p)    // any goroutine: no View access
//	out := c.Finish(r, err)     // UI goroutine: render or show error, leave loading
//
// Submit chains the three for synchronous callers.
package form

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/derickschaefer/bazi/internal/baziapi"
	"github.com/derickschaefer/bazi/internal/config"
	"github.com/derickschaefer/bazi/internal/model"
)

// API is the part of the calculation client the controller needs.
type API interface {
	Calculate(ctx context.Context, ep baziapi.Endpoint, req model.Request) (*model.Reading, error)
	Health(ctx context.Context, ep baziapi.Endpoint) (*model.Health, error)
}

// Hints are the troubleshooting lines appended to every error message.
var Hints = []string{
	"1. 后端服务已启动",
	"2. API地址正确",
	"3. 网络连接正常",
}

// FormatError builds the text shown in the error region.
func FormatError(reason string) string {
	return "错误：" + reason + "\n\n请确保：\n" + strings.Join(Hints, "\n")
}

// Pending is a submission that has entered the loading state.
type Pending struct {
	Endpoint baziapi.Endpoint
	Request  model.Request
}

// Outcome describes how a submission settled.
type Outcome struct {
	Reading *model.Reading    // nil on failure
	Err     error             // nil on success
	Kind    baziapi.ErrorKind // zero on success
	Message string            // text placed in the error region
}

// OK reports whether the submission rendered a result.
func (o Outcome) OK() bool { return o.Err == nil }

// Controller drives one View.
type Controller struct {
	api      API
	view     View
	endpoint baziapi.Endpoint
	log      *slog.Logger
}

// NewController binds api and view. ep is the initial endpoint; it is shown
// on the view immediately. A nil logger uses slog.Default().
func NewController(api API, view View, ep baziapi.Endpoint, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{api: api, view: view, log: logger}
	c.setEndpoint(ep.BaseURL)
	return c
}

// Endpoint returns the endpoint the next request will target.
func (c *Controller) Endpoint() baziapi.Endpoint { return c.endpoint }

// ConfigureEndpoint trims raw, stores it for all subsequent requests and
// updates the endpoint display. The URL is not validated.
func (c *Controller) ConfigureEndpoint(raw string) {
	c.setEndpoint(raw)
}

func (c *Controller) setEndpoint(raw string) {
	c.endpoint = baziapi.Endpoint{BaseURL: config.NormalizeBaseURL(raw)}
	c.view.SetEndpoint(c.endpoint.BaseURL)
}

// ─── Submit ───────────────────────────────────────────────────────────────────

// Submit runs a full submission and returns how it settled. The loading
// state is always left, whatever the outcome.
func (c *Controller) Submit(ctx context.Context) Outcome {
	p := c.Begin()
	defer c.view.SetLoading(false)
	reading, err := c.Call(ctx, p)
	return c.settle(reading, err)
}

// Begin clears the previous error and result, enters the loading state and
// snapshots the request from the current form values and endpoint.
func (c *Controller) Begin() Pending {
	c.view.HideError()
	c.view.HideResult()
	c.view.SetLoading(true)
	return Pending{
		Endpoint: c.endpoint,
		Request:  c.view.Fields().Request(),
	}
}

// Call issues the request. It does not touch the View.
func (c *Controller) Call(ctx context.Context, p Pending) (*model.Reading, error) {
	return c.api.Calculate(ctx, p.Endpoint, p.Request)
}

// Finish renders the reading or shows the error, then leaves the loading
// state.
func (c *Controller) Finish(reading *model.Reading, err error) Outcome {
	defer c.view.SetLoading(false)
	return c.settle(reading, err)
}

func (c *Controller) settle(reading *model.Reading, err error) Outcome {
	if err == nil {
		err = c.Render(reading)
	}
	if err == nil {
		return Outcome{Reading: reading}
	}

	out := Outcome{Err: err, Kind: baziapi.KindDecode, Message: FormatError(err.Error())}
	if ce, ok := baziapi.AsCallError(err); ok {
		out.Kind = ce.Kind
	}
	c.view.HideResult()
	c.view.ShowError(out.Message)
	c.log.Error("submit failed", "kind", out.Kind, "err", err)
	return out
}

// ─── Render ───────────────────────────────────────────────────────────────────

// Render writes r into the output slots, shows the result region and
// scrolls it into view. A reading missing a section it needs is an error
// and leaves the result region hidden.
func (c *Controller) Render(r *model.Reading) error {
	if err := checkReading(r); err != nil {
		return err
	}
	v := c.view

	v.SetText(YearPillar, r.YearPillar)
	v.SetText(MonthPillar, r.MonthPillar)
	v.SetText(DayPillar, r.DayPillar)
	v.SetText(HourPillar, r.HourPillar)

	for _, pt := range pillarTargets {
		p := r.Sizhu[pt.key]
		v.SetText(pt.detail, p.Tian+" "+p.Di)
	}

	v.SetText(Rigan, r.Rigan)
	v.SetText(RiganWuxing, "五行属"+r.RiganWuxing)

	for _, et := range elementTargets {
		v.SetText(et.target, strconv.Itoa(r.ElementCount(et.element)))
	}

	in := r.Interpretation
	v.SetText(BasicInterpretation, in.Basic+" "+in.WuxingDistribution+" "+in.WuxingBalance)
	v.SetText(Personality, in.Personality)
	v.SetText(Xiyongshen, in.Xiyongshen)
	v.SetText(Advice, in.Advice)

	v.ShowResult()
	v.ScrollToResult()

	if r.ID != "" {
		c.log.Info("记录ID", "id", string(r.ID))
	}
	return nil
}

func checkReading(r *model.Reading) error {
	if r == nil {
		return fmt.Errorf("empty response")
	}
	for _, pt := range pillarTargets {
		if _, ok := r.Sizhu[pt.key]; !ok {
			return fmt.Errorf("response missing sizhu.%s", pt.key)
		}
	}
	if r.WuxingAnalysis == nil || r.WuxingAnalysis.Count == nil {
		return fmt.Errorf("response missing wuxing_analysis.count")
	}
	if r.Interpretation == nil {
		return fmt.Errorf("response missing interpretation")
	}
	return nil
}

// ─── Probe / sample ───────────────────────────────────────────────────────────

// Probe checks GET /health on the current endpoint and logs the result.
// It never touches the View; the returned error is for diagnostics only.
func (c *Controller) Probe(ctx context.Context) error {
	return c.ProbeFunc()(ctx)
}

// ProbeFunc snapshots the current endpoint and returns a probe that may run
// on any goroutine.
func (c *Controller) ProbeFunc() func(context.Context) error {
	ep := c.endpoint
	return func(ctx context.Context) error { return c.probe(ctx, ep) }
}

func (c *Controller) probe(ctx context.Context, ep baziapi.Endpoint) error {
	_, err := c.api.Health(ctx, ep)
	if err == nil {
		c.log.Info("✅ API连接正常", "endpoint", ep.BaseURL)
		return nil
	}
	if ce, ok := baziapi.AsCallError(err); ok && ce.Kind == baziapi.KindServer {
		c.log.Warn("⚠️ API连接异常", "endpoint", ep.BaseURL, "status", ce.Status)
	} else {
		c.log.Warn("⚠️ 无法连接到API服务器，请确保后端服务已启动", "endpoint", ep.BaseURL, "err", err)
	}
	return err
}

// FillSample overwrites the form with the sample record. No request is made.
func (c *Controller) FillSample() {
	c.view.SetFields(SampleFields())
	c.log.Info("已填充测试数据")
}
