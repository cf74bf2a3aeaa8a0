package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"

	"github.com/derickschaefer/bazi/internal/form"
	"github.com/derickschaefer/bazi/internal/render"
)

// Input indices in focus order.
const (
	fieldYear = iota
	fieldMonth
	fieldDay
	fieldHour
	fieldMinute
	fieldTimezone
	fieldUserID
	fieldAPI
	fieldCount
)

var fieldLabels = [fieldCount]string{
	"年", "月", "日", "时", "分", "时区", "用户ID", "API地址",
}

// board is the terminal rendition of the page. It keeps region state and
// slot texts in the embedded Page and reads the form from live inputs.
type board struct {
	*form.Page
	inputs [fieldCount]textinput.Model
	result viewport.Model
}

func newBoard(initial form.Fields, apiURL string) *board {
	b := &board{
		Page:   form.NewPage(initial),
		result: viewport.New(72, 16),
	}
	for i := range b.inputs {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 64
		ti.Width = 24
		switch i {
		case fieldYear:
			ti.Placeholder = "1990"
			ti.CharLimit = 6
		case fieldMonth, fieldDay, fieldHour, fieldMinute:
			ti.CharLimit = 4
		case fieldTimezone:
			ti.Placeholder = form.DefaultTimezone
		case fieldUserID:
			ti.Placeholder = "可选"
		case fieldAPI:
			ti.Width = 40
			ti.CharLimit = 256
		}
		b.inputs[i] = ti
	}
	b.SetFields(initial)
	b.inputs[fieldAPI].SetValue(apiURL)
	return b
}

func (b *board) Fields() form.Fields {
	return form.Fields{
		Year:     b.inputs[fieldYear].Value(),
		Month:    b.inputs[fieldMonth].Value(),
		Day:      b.inputs[fieldDay].Value(),
		Hour:     b.inputs[fieldHour].Value(),
		Minute:   b.inputs[fieldMinute].Value(),
		Timezone: b.inputs[fieldTimezone].Value(),
		UserID:   b.inputs[fieldUserID].Value(),
	}
}

func (b *board) SetFields(f form.Fields) {
	b.Page.SetFields(f)
	b.inputs[fieldYear].SetValue(f.Year)
	b.inputs[fieldMonth].SetValue(f.Month)
	b.inputs[fieldDay].SetValue(f.Day)
	b.inputs[fieldHour].SetValue(f.Hour)
	b.inputs[fieldMinute].SetValue(f.Minute)
	b.inputs[fieldTimezone].SetValue(f.Timezone)
	b.inputs[fieldUserID].SetValue(f.UserID)
}

// ScrollToResult refreshes the result viewport and moves it to the top.
func (b *board) ScrollToResult() {
	b.Page.ScrollToResult()
	var sb strings.Builder
	render.PageResult(&sb, b.Page)
	b.result.SetContent(strings.TrimRight(sb.String(), "\n"))
	b.result.GotoTop()
}
