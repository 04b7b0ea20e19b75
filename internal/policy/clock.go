package policy

import "time"

// DateLayout is the ISO date format used for validity windows.
const DateLayout = "2006-01-02"

// Clock supplies the current date for validity-window evaluation.
type Clock interface {
	Today() string
}

// UTCClock reads the current date in UTC.
type UTCClock struct{}

// Today returns the current UTC date as YYYY-MM-DD.
func (UTCClock) Today() string {
	return time.Now().UTC().Format(DateLayout)
}

// FixedClock always reports the same date. Test helper.
type FixedClock string

// Today returns the fixed date.
func (c FixedClock) Today() string {
	return string(c)
}
