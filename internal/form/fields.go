package form

import "github.com/derickschaefer/bazi/internal/model"

// DefaultTimezone preselects the timezone input.
const DefaultTimezone = "Asia/Shanghai"

// Fields are the raw form inputs as typed.
type Fields struct {
	Year     string `json:"year"`
	Month    string `json:"month"`
	Day      string `json:"day"`
	Hour     string `json:"hour"`
	Minute   string `json:"minute"`
	Timezone string `json:"timezone"`
	UserID   string `json:"user_id"`
}

// Request builds the payload. Numeric fields that do not start with a
// number become NaN and are sent as null; they are not rejected here.
// An empty user id is sent as null.
func (f Fields) Request() model.Request {
	req := model.Request{
		Year:     model.ParseInt(f.Year),
		Month:    model.ParseInt(f.Month),
		Day:      model.ParseInt(f.Day),
		Hour:     model.ParseInt(f.Hour),
		Minute:   model.ParseInt(f.Minute),
		Timezone: f.Timezone,
	}
	if f.UserID != "" {
		uid := f.UserID
		req.UserID = &uid
	}
	return req
}

// SampleFields is the record filled in by the sample shortcut.
func SampleFields() Fields {
	return Fields{
		Year:     "1990",
		Month:    "5",
		Day:      "15",
		Hour:     "14",
		Minute:   "30",
		Timezone: DefaultTimezone,
		UserID:   "test_user_001",
	}
}
