package form

// Page is an in-memory View. The scripted front end submits against a Page
// and renders it afterwards; tests inspect it directly.
type Page struct {
	Form Fields
	Text map[Target]string

	Loading        bool
	SubmitDisabled bool
	ErrorVisible   bool
	ErrorText      string
	ResultVisible  bool
	Endpoint       string
	Scrolls        int
}

// NewPage returns an empty Page holding f.
func NewPage(f Fields) *Page {
	return &Page{Form: f, Text: make(map[Target]string)}
}

func (p *Page) Fields() Fields { return p.Form }
func (p *Page) SetFields(f Fields) { p.Form = f }
func (p *Page) SetEndpoint(u string) { p.Endpoint = u }

func (p *Page) SetText(t Target, s string) {
	if p.Text == nil {
		p.Text = make(map[Target]string)
	}
	p.Text[t] = s
}

func (p *Page) SetLoading(on bool) {
	p.Loading = on
	p.SubmitDisabled = on
}

// ShowError keeps the previous text when hidden, like a hidden element
// keeps its content; only visibility toggles.
func (p *Page) ShowError(msg string) {
	p.ErrorText = msg
	p.ErrorVisible = true
}

func (p *Page) HideError() { p.ErrorVisible = false }
func (p *Page) ShowResult() { p.ResultVisible = true }
func (p *Page) HideResult() { p.ResultVisible = false }
func (p *Page) ScrollToResult() { p.Scrolls++ }
