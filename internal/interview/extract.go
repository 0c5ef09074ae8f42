package interview

import (
	"regexp"
	"strings"
	"unicode"

	"prepwise/internal/model"
)

const (
	DefaultTitle    = "Untitled Interview"
	DefaultCompany  = "Company"
	DefaultPosition = "Position"
)

// spaceChars is the ECMAScript \s set; RE2's \s is ASCII only.
const spaceChars = `\t\n\v\f\r \x{00A0}\x{1680}\x{2000}-\x{200A}\x{2028}\x{2029}\x{202F}\x{205F}\x{3000}\x{FEFF}`

const ws = `[` + spaceChars + `]`

var (
	// "Interview with Acme", "Onsite at Acme - Round 2", "Chat @ Acme for SWE".
	companyInTitle = regexp.MustCompile(
		`(?:` + foldASCII("with") + `|` + foldASCII("at") + `|@)` + ws + `+` +
			`([A-Za-z][A-Za-z0-9` + spaceChars + `&]+?)` +
			`(?:` + ws + `+-|` + ws + `+\||` + ws + `+` + foldASCII("for") + `|$)`)

	// "Interview for Backend Engineer at Acme", "Position: SRE | Remote".
	positionInTitle = regexp.MustCompile(
		`(?:` + foldASCII("for") + `|` + foldASCII("position:") + `|` + foldASCII("role:") + `)` + ws + `+` +
			`([A-Za-z` + spaceChars + `]+?)` +
			`(?:` + ws + `+-|` + ws + `+\||` + ws + `+` + foldASCII("at") + `|$)`)

	// "Role: Data Engineer" on its own line.
	positionInDescription = regexp.MustCompile(
		`(?:` + foldASCII("position:") + `|` + foldASCII("role:") + `)` + ws + `+` +
			`([A-Za-z` + spaceChars + `]+?)(?:\n|$)`)
)

// foldASCII matches word case-insensitively over ASCII letters only. (?i)
// would also fold U+017F into "s" and U+212A into "k".
func foldASCII(word string) string {
	var b strings.Builder
	for _, r := range word {
		lower, upper := unicode.ToLower(r), unicode.ToUpper(r)
		if lower == upper {
			b.WriteString(regexp.QuoteMeta(string(r)))
			continue
		}
		b.WriteString("[" + string(upper) + string(lower) + "]")
	}
	return b.String()
}

// isSpace reports the same runes as spaceChars.
func isSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ',
		'\u00A0', '\u1680', '\u2028', '\u2029', '\u202F', '\u205F', '\u3000', '\uFEFF':
		return true
	}
	return r >= '\u2000' && r <= '\u200A'
}

func trimSpace(s string) string {
	return strings.TrimFunc(s, isSpace)
}

// ParseInterviewEvent builds an Interview from ev. Missing fields fall back
// to defaults; company and position are never empty.
func ParseInterviewEvent(ev model.RawEvent) model.Interview {
	title := ev.Summary
	if title == "" {
		title = DefaultTitle
	}

	return model.Interview{
		ID:          ev.ID,
		Title:       title,
		Company:     extractCompany(title),
		Position:    extractPosition(title, ev.Description),
		StartTime:   pickTime(ev.Start),
		EndTime:     pickTime(ev.End),
		Description: ev.Description,
		Location:    ev.Location,
		MeetingLink: ev.HangoutLink,
	}
}

// extractCompany only looks at the title; a bare "Acme Interview" has no
// connector word and keeps the default.
func extractCompany(title string) string {
	if m := companyInTitle.FindStringSubmatch(title); m != nil {
		return trimSpace(m[1])
	}
	return DefaultCompany
}

// extractPosition tries the title first. A title match ends the search even
// when it captured only whitespace ("for   | x"), which yields the default.
func extractPosition(title, description string) string {
	m := positionInTitle.FindStringSubmatch(title)
	if m == nil {
		m = positionInDescription.FindStringSubmatch(description)
	}
	if m == nil {
		return DefaultPosition
	}
	if p := trimSpace(m[1]); p != "" {
		return p
	}
	return DefaultPosition
}

// pickTime prefers the timed value and falls back to the all-day date.
func pickTime(t *model.EventDateTime) string {
	if t == nil {
		return ""
	}
	if t.DateTime != "" {
		return t.DateTime
	}
	return t.Date
}
