// Package tui is the interactive terminal front end for the form
// controller. The network call runs as a tea.Cmd; every view mutation
// happens in Update on the program goroutine.
package tui

import (
	"context"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/derickschaefer/bazi/internal/baziapi"
	"github.com/derickschaefer/bazi/internal/form"
	"github.com/derickschaefer/bazi/internal/model"
)

// Options configures a form screen.
type Options struct {
	API      form.API
	Endpoint baziapi.Endpoint
	Logger   *slog.Logger
	Initial  form.Fields
	Styles   *Styles
}

// resultMsg carries a finished calculation back to Update.
type resultMsg struct {
	reading *model.Reading
	err     error
}

// probeMsg reports the start-up health probe. It has no visible effect.
type probeMsg struct{ err error }

// Model is the bubbletea model for the form screen.
type Model struct {
	ctx     context.Context
	ctrl    *form.Controller
	board   *board
	focus   int
	applied string
	spinner spinner.Model
	styles  Styles
	last    form.Outcome
}

// New builds the form screen. ctx bounds every request it issues.
func New(ctx context.Context, opts Options) Model {
	b := newBoard(opts.Initial, opts.Endpoint.BaseURL)
	b.inputs[fieldYear].Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	st := DefaultStyles()
	if opts.Styles != nil {
		st = *opts.Styles
	}
	sp.Style = st.Loading

	ctrl := form.NewController(opts.API, b, opts.Endpoint, opts.Logger)
	return Model{
		ctx:     ctx,
		ctrl:    ctrl,
		board:   b,
		applied: opts.Endpoint.BaseURL,
		spinner: sp,
		styles:  st,
	}
}

// Controller exposes the bound controller.
func (m Model) Controller() *form.Controller { return m.ctrl }

// Init starts the cursor blink and the health probe.
func (m Model) Init() tea.Cmd {
	probe := m.ctrl.ProbeFunc()
	ctx := m.ctx
	return tea.Batch(
		textinput.Blink,
		func() tea.Msg { return probeMsg{err: probe(ctx)} },
	)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.board.result.Width = max(20, msg.Width-4)
		m.board.result.Height = max(5, msg.Height-len(fieldLabels)-8)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "ctrl+t":
			m.ctrl.FillSample()
			return m, nil
		case "tab", "down":
			return m, m.moveFocus(1)
		case "shift+tab", "up":
			return m, m.moveFocus(-1)
		case "pgup", "pgdown":
			m.board.result, cmd = m.board.result.Update(msg)
			return m, cmd
		case "enter":
			if m.focus == fieldAPI {
				m.applyEndpoint()
				return m, nil
			}
			return m, m.submit()
		}

	case resultMsg:
		m.last = m.ctrl.Finish(msg.reading, msg.err)
		return m, nil

	case probeMsg:
		return m, nil

	case spinner.TickMsg:
		if !m.board.Loading {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	m.board.inputs[m.focus], cmd = m.board.inputs[m.focus].Update(msg)
	return m, cmd
}

// submit starts a calculation unless one is already running, which is how
// the disabled submit control behaves here.
func (m *Model) submit() tea.Cmd {
	if m.board.Loading {
		return nil
	}
	p := m.ctrl.Begin()
	ctrl, ctx := m.ctrl, m.ctx
	return tea.Batch(
		m.spinner.Tick,
		func() tea.Msg {
			r, err := ctrl.Call(ctx, p)
			return resultMsg{reading: r, err: err}
		},
	)
}

// moveFocus cycles focus; leaving the API field applies its value.
func (m *Model) moveFocus(delta int) tea.Cmd {
	if m.focus == fieldAPI {
		m.applyEndpoint()
	}
	m.board.inputs[m.focus].Blur()
	m.focus = (m.focus + delta + fieldCount) % fieldCount
	return m.board.inputs[m.focus].Focus()
}

// applyEndpoint reconfigures the endpoint when the API field changed.
func (m *Model) applyEndpoint() {
	v := m.board.inputs[fieldAPI].Value()
	if v == m.applied {
		return
	}
	m.applied = v
	m.ctrl.ConfigureEndpoint(v)
}

// View renders the screen.
func (m Model) View() string {
	var sb strings.Builder
	st := m.styles

	sb.WriteString(st.Title.Render("八字排盘"))
	sb.WriteString("  ")
	sb.WriteString(st.Endpoint.Render("API: " + m.board.Endpoint))
	sb.WriteString("\n\n")

	for i := range m.board.inputs {
		label := st.Label
		if i == m.focus {
			label = st.Focused
		}
		sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			label.Render(fieldLabels[i]),
			st.Input.Render(m.board.inputs[i].View()),
		))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	if m.board.Loading {
		sb.WriteString(m.spinner.View() + st.Loading.Render(" 正在计算..."))
		sb.WriteString("\n")
	}
	if m.board.ErrorVisible {
		sb.WriteString(st.Error.Render(m.board.ErrorText))
		sb.WriteString("\n")
	}
	if m.board.ResultVisible {
		sb.WriteString(st.Result.Render(m.board.result.View()))
		sb.WriteString("\n")
	}

	sb.WriteString(st.Help.Render("enter 计算 · tab 切换 · ctrl+t 测试数据 · pgup/pgdn 滚动 · esc 退出"))
	sb.WriteString("\n")
	return sb.String()
}

// Run starts the program on the terminal and blocks until it exits.
// It returns the outcome of the last finished submission.
func Run(ctx context.Context, opts Options) (form.Outcome, error) {
	p := tea.NewProgram(New(ctx, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return form.Outcome{}, err
	}
	if fm, ok := final.(Model); ok {
		return fm.last, nil
	}
	return form.Outcome{}, nil
}
