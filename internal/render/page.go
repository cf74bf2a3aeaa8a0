package render

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/derickschaefer/bazi/internal/form"
)

var (
	headingColor = color.New(color.FgCyan, color.Bold)
	errorColor   = color.New(color.FgRed)
	pillarColor  = color.New(color.FgYellow, color.Bold)
	okColor      = color.New(color.FgGreen)
)

// pageSection groups output slots under a heading.
type pageSection struct {
	title   string
	targets []form.Target
	labels  []string
}

var pageSections = []pageSection{
	{"四柱", []form.Target{form.YearPillar, form.MonthPillar, form.DayPillar, form.HourPillar}, []string{"年柱", "月柱", "日柱", "时柱"}},
	{"天干地支", []form.Target{form.YearDetail, form.MonthDetail, form.DayDetail, form.HourDetail}, []string{"年", "月", "日", "时"}},
	{"日主", []form.Target{form.Rigan, form.RiganWuxing}, []string{"日干", "五行"}},
	{"五行分布", []form.Target{form.WuxingWood, form.WuxingFire, form.WuxingEarth, form.WuxingMetal, form.WuxingWater}, []string{"木", "火", "土", "金", "水"}},
}

var pageParagraphs = []struct {
	title  string
	target form.Target
}{
	{"基本分析", form.BasicInterpretation},
	{"性格特点", form.Personality},
	{"喜用神", form.Xiyongshen},
	{"建议", form.Advice},
}

// Page prints the visible parts of a form page: the error region when
// shown, the result region when shown. Hidden regions print nothing.
// Colour follows fatih/color's terminal detection.
func Page(w io.Writer, p *form.Page) {
	if p.ErrorVisible {
		errorColor.Fprintln(w, p.ErrorText)
	}
	if p.ResultVisible {
		PageResult(w, p)
	}
}

// PageResult prints the result slots of p regardless of visibility.
func PageResult(w io.Writer, p *form.Page) {
	for _, s := range pageSections {
		headingColor.Fprintf(w, "【%s】\n", s.title)
		for i, t := range s.targets {
			fmt.Fprintf(w, "  %s ", s.labels[i])
			if s.title == "四柱" {
				pillarColor.Fprint(w, p.Text[t])
			} else {
				fmt.Fprint(w, p.Text[t])
			}
			fmt.Fprintln(w)
		}
	}
	for _, para := range pageParagraphs {
		headingColor.Fprintf(w, "【%s】\n", para.title)
		fmt.Fprintf(w, "%s\n", p.Text[para.target])
	}
}

// Health prints a one-line reachability summary for the probe.
func Health(w io.Writer, endpoint string, err error) {
	if err == nil {
		okColor.Fprintf(w, "✅ API连接正常  %s\n", endpoint)
		return
	}
	errorColor.Fprintf(w, "⚠️ API连接异常  %s: %v\n", endpoint, err)
}
