// Package urgency maps a trial date to one of the intake urgency buckets.
//
// The buckets are calendar-day based: a trial 15 days out or fewer (including
// dates already in the past) is urgent, 16–30 days is high, anything later is
// normal. Dates that fail to parse are treated as normal.
package urgency

import (
	"strings"
	"time"
)

// Level is an intake urgency label.
type Level string

const (
	// Urgent means the trial is at most UrgentWithinDays away.
	Urgent Level = "urgent"
	// High means the trial is at most HighWithinDays away.
	High Level = "high"
	// Normal is the default bucket.
	Normal Level = "normal"
)

const (
	// DateLayout is the accepted trial date format (YYYY-MM-DD).
	DateLayout = "2006-01-02"

	// UrgentWithinDays is the inclusive upper bound for Urgent.
	UrgentWithinDays = 15
	// HighWithinDays is the inclusive upper bound for High.
	HighWithinDays = 30
)

// Levels lists every known level, most pressing first.
var Levels = []Level{Urgent, High, Normal}

// FromDate returns the urgency level for trialDate relative to now.
// Only the calendar date of now (in its own location) is considered.
func FromDate(trialDate string, now time.Time) Level {
	days, err := DaysUntil(trialDate, now)
	if err != nil {
		return Normal
	}
	return FromDays(days)
}

// FromDays buckets a day count.
func FromDays(days int) Level {
	switch {
	case days <= UrgentWithinDays:
		return Urgent
	case days <= HighWithinDays:
		return High
	default:
		return Normal
	}
}

// DaysUntil parses trialDate and returns the number of whole calendar days
// between today (taken from now) and the trial. Negative for past dates.
func DaysUntil(trialDate string, now time.Time) (int, error) {
	trial, err := time.Parse(DateLayout, strings.TrimSpace(trialDate))
	if err != nil {
		return 0, err
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return int(trial.Sub(today).Hours() / 24), nil
}

// Normalize maps a free-form label (as produced by the model) onto a known
// Level. Unknown values collapse to Normal.
func Normalize(s string) Level {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case Urgent:
		return Urgent
	case High:
		return High
	default:
		return Normal
	}
}
