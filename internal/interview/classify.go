// Package interview turns raw calendar events into interview records.
//
// IsInterviewEvent decides whether an event looks like an interview and
// ParseInterviewEvent extracts the displayed fields. Both are pure and safe
// for concurrent use. The matching is a deliberately loose heuristic tuned to
// English titles: "Weekly Interview Prep Sync" counts as an interview, and
// keywords match as substrings rather than whole words.
package interview

import "strings"

// keywords are matched against the lower-cased "title description" text.
var keywords = []string{
	"interview",
	"screening",
	"technical",
	"behavioral",
	"onsite",
	"phone screen",
	"video call",
	"meet with",
	"chat with",
	"discussion with",
	"hiring",
	"recruitment",
	"candidate",
}

// IsInterviewEvent reports whether the title or description contains one of
// the interview keywords, case-insensitively. Pass "" when there is no
// description.
func IsInterviewEvent(title, description string) bool {
	combined := strings.ToLower(title + " " + description)
	for _, kw := range keywords {
		if strings.Contains(combined, kw) {
			return true
		}
	}
	return false
}
