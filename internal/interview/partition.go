package interview

import (
	"time"

	"prepwise/internal/model"
)

// DefaultLookbackMonths is how far back the dashboard scans for interviews.
const DefaultLookbackMonths = 6

// Window is the closed range of event start times requested from a provider.
type Window struct {
	Start time.Time
	End   time.Time
}

// LookbackWindow returns [now - months, now]. The subtraction is calendar
// month arithmetic, so Aug 31 minus six months normalizes to Mar 3 (or
// Mar 2 in a leap year) rather than a fixed day count.
func LookbackWindow(now time.Time, months int) Window {
	if months <= 0 {
		months = DefaultLookbackMonths
	}
	return Window{
		Start: now.AddDate(0, -months, 0),
		End:   now,
	}
}

// Collect keeps the events that look like interviews and extracts them, in
// provider order.
func Collect(events []model.RawEvent) []model.Interview {
	out := make([]model.Interview, 0, len(events))
	for _, ev := range events {
		if !IsInterviewEvent(ev.Summary, ev.Description) {
			continue
		}
		out = append(out, ParseInterviewEvent(ev))
	}
	return out
}

// Partition splits records into those starting after now and those starting
// at or before it. Both keep the input order. A record with a missing or
// unparseable start time is in neither slice.
func Partition(records []model.Interview, now time.Time) (upcoming, past []model.Interview) {
	upcoming = make([]model.Interview, 0)
	past = make([]model.Interview, 0)
	for _, rec := range records {
		start, ok := ParseStartTime(rec.StartTime)
		if !ok {
			continue
		}
		if start.After(now) {
			upcoming = append(upcoming, rec)
		} else {
			past = append(past, rec)
		}
	}
	return upcoming, past
}

// ParseStartTime reads an RFC 3339 timestamp or an all-day YYYY-MM-DD date,
// the latter as midnight UTC.
func ParseStartTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
