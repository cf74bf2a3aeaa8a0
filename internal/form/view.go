package form

// Target names one output slot the controller writes text into.
type Target string

const (
	YearPillar  Target = "yearPillar"
	MonthPillar Target = "monthPillar"
	DayPillar   Target = "dayPillar"
	HourPillar  Target = "hourPillar"

	YearDetail  Target = "yearDetail"
	MonthDetail Target = "monthDetail"
	DayDetail   Target = "dayDetail"
	HourDetail  Target = "hourDetail"

	Rigan       Target = "rigan"
	RiganWuxing Target = "riganWuxing"

	WuxingWood  Target = "wuxingWood"
	WuxingFire  Target = "wuxingFire"
	WuxingEarth Target = "wuxingEarth"
	WuxingMetal Target = "wuxingMetal"
	WuxingWater Target = "wuxingWater"

	BasicInterpretation Target = "basicInterpretation"
	Personality         Target = "personality"
	Xiyongshen          Target = "xiyongshen"
	Advice              Target = "advice"
)

// Targets lists every output slot in display order.
var Targets = []Target{
	YearPillar, MonthPillar, DayPillar, HourPillar,
	YearDetail, MonthDetail, DayDetail, HourDetail,
	Rigan, RiganWuxing,
	WuxingWood, WuxingFire, WuxingEarth, WuxingMetal, WuxingWater,
	BasicInterpretation, Personality, Xiyongshen, Advice,
}

// pillarTargets pairs each sizhu key with its detail slot.
var pillarTargets = []struct {
	key    string
	detail Target
}{
	{"year", YearDetail},
	{"month", MonthDetail},
	{"day", DayDetail},
	{"hour", HourDetail},
}

// elementTargets maps the five element names to their count slots.
var elementTargets = []struct {
	element string
	target  Target
}{
	{"木", WuxingWood},
	{"火", WuxingFire},
	{"土", WuxingEarth},
	{"金", WuxingMetal},
	{"水", WuxingWater},
}

// View is the set of page elements the controller is bound to. It is built
// once by a front end and handed to NewController; the controller never
// looks anything up by itself.
//
// All methods are called from the front end's UI goroutine.
type View interface {
	// Fields returns the current form input values.
	Fields() Fields
	// SetFields overwrites every form input.
	SetFields(Fields)

	// SetText assigns plain text (never markup) to an output slot.
	SetText(Target, string)

	// SetLoading shows or hides the loading indicator and disables or
	// re-enables the submit control.
	SetLoading(bool)

	ShowError(message string)
	HideError()
	ShowResult()
	HideResult()
	// ScrollToResult brings the result region into view.
	ScrollToResult()

	// SetEndpoint updates the visible display of the API address.
	SetEndpoint(string)
}
