package ics_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"prepwise/internal/ics"
	"prepwise/internal/interview"
)

var feed = strings.Join([]string{
	"BEGIN:VCALENDAR",
	"VERSION:2.0",
	"PRODID:-//prepwise//test//EN",
	"BEGIN:VEVENT",
	"UID:single-1",
	"DTSTAMP:20240101T000000Z",
	"DTSTART:20240110T100000Z",
	"DTEND:20240110T110000Z",
	"SUMMARY:Interview with Acme",
	"DESCRIPTION:Role: Backend Engineer",
	"X-GOOGLE-CONFERENCE:https://meet.google.com/xyz",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:weekly-1",
	"DTSTAMP:20240101T000000Z",
	"DTSTART:20240101T090000Z",
	"DTEND:20240101T093000Z",
	"RRULE:FREQ=WEEKLY;COUNT=4",
	"EXDATE:20240108T090000Z",
	"SUMMARY:Candidate screening",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:weekly-1",
	"DTSTAMP:20240101T000000Z",
	"RECURRENCE-ID:20240115T090000Z",
	"DTSTART:20240115T140000Z",
	"DTEND:20240115T143000Z",
	"SUMMARY:Candidate screening (moved)",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:allday-1",
	"DTSTAMP:20240101T000000Z",
	"DTSTART;VALUE=DATE:20240112",
	"DTEND;VALUE=DATE:20240113",
	"SUMMARY:Onsite day",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:cancelled-1",
	"DTSTAMP:20240101T000000Z",
	"DTSTART:20240111T100000Z",
	"DTEND:20240111T110000Z",
	"STATUS:CANCELLED",
	"SUMMARY:Interview cancelled",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:outside-1",
	"DTSTAMP:20240101T000000Z",
	"DTSTART:20230101T100000Z",
	"DTEND:20230101T110000Z",
	"SUMMARY:Old interview",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"DTSTART:20240110T100000Z",
	"SUMMARY:No UID interview",
	"END:VEVENT",
	"END:VCALENDAR",
	"",
}, "\r\n")

func TestParseAndExpand(t *testing.T) {
	src := ics.Source{ID: "team", URL: "https://example.com/team.ics"}
	parsed, err := ics.ParseICS(src, []byte(feed))
	if err != nil {
		t.Fatalf("ParseICS: %v", err)
	}
	// The VEVENT without a UID is skipped.
	if len(parsed) != 6 {
		t.Fatalf("parsed %d events, want 6", len(parsed))
	}

	raw, err := ics.ExpandToRawEvents(parsed, ics.ExpandConfig{
		Location:   time.UTC,
		RangeStart: time.Date(2023, time.December, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("ExpandToRawEvents: %v", err)
	}

	wantIDs := []string{
		"weekly-1_20240101T090000Z",
		"single-1",
		"allday-1",
		"weekly-1_20240115T090000Z",
		"weekly-1_20240122T090000Z",
	}
	if len(raw) != len(wantIDs) {
		ids := make([]string, 0, len(raw))
		for _, r := range raw {
			ids = append(ids, r.ID)
		}
		t.Fatalf("ids = %v, want %v", ids, wantIDs)
	}
	for i, id := range wantIDs {
		if raw[i].ID != id {
			t.Errorf("raw[%d].ID = %q, want %q", i, raw[i].ID, id)
		}
	}

	if raw[1].HangoutLink != "https://meet.google.com/xyz" || raw[1].Start.DateTime != "2024-01-10T10:00:00Z" {
		t.Errorf("single = %+v / %+v", raw[1], raw[1].Start)
	}
	if raw[2].Start.Date != "2024-01-12" || raw[2].Start.DateTime != "" {
		t.Errorf("all-day start = %+v", raw[2].Start)
	}
	if raw[3].Summary != "Candidate screening (moved)" || raw[3].Start.DateTime != "2024-01-15T14:00:00Z" {
		t.Errorf("override = %+v / %+v", raw[3], raw[3].Start)
	}

	records := interview.Collect(raw)
	if len(records) != 5 {
		t.Fatalf("Collect kept %d, want 5", len(records))
	}
	if records[1].Company != "Acme" || records[1].Position != "Backend Engineer" {
		t.Errorf("single record = %+v", records[1])
	}
}

func TestExpand_RejectsInvertedRange(t *testing.T) {
	now := time.Now()
	if _, err := ics.ExpandToRawEvents(nil, ics.ExpandConfig{RangeStart: now, RangeEnd: now.Add(-time.Hour)}); err == nil {
		t.Error("expected error for inverted range")
	}
}

func TestParseICS_Empty(t *testing.T) {
	if _, err := ics.ParseICS(ics.Source{ID: "x"}, nil); err == nil {
		t.Error("expected error for empty body")
	}
}

func TestFetcher_ConditionalRequestsAndFallback(t *testing.T) {
	var calls atomic.Int32
	var failing atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if failing.Load() {
			http.Error(w, "boom", http.StatusBadGateway)
			return
		}
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(feed))
	}))
	defer srv.Close()

	f := ics.NewFetcher(t.TempDir(), srv.Client())
	src := ics.Source{ID: "team", URL: srv.URL + "/private/token.ics"}
	ctx := context.Background()

	first, err := f.FetchOne(ctx, src)
	if err != nil || first.FromCache || string(first.Body) != feed {
		t.Fatalf("first fetch = %+v, %v", first.FromCache, err)
	}

	second, err := f.FetchOne(ctx, src)
	if err != nil || !second.FromCache || string(second.Body) != feed {
		t.Fatalf("second fetch fromCache=%v err=%v", second.FromCache, err)
	}

	failing.Store(true)
	third, err := f.FetchOne(ctx, src)
	if err != nil || !third.FromCache {
		t.Fatalf("third fetch fromCache=%v err=%v", third.FromCache, err)
	}

	other := ics.Source{ID: "other", URL: srv.URL + "/other.ics"}
	results, errs := f.FetchAll(ctx, []ics.Source{src, other})
	if len(results) != 1 || len(errs) != 1 {
		t.Errorf("FetchAll results=%d errs=%d, want 1/1", len(results), len(errs))
	}
	if calls.Load() != 5 {
		t.Errorf("server calls = %d, want 5", calls.Load())
	}
}

func TestRedactURL(t *testing.T) {
	cases := map[string]string{
		"https://calendar.google.com/calendar/ical/secret/basic.ics": "https://calendar.google.com/...(redacted)",
		"not a url": "ics://...(redacted)",
	}
	for in, want := range cases {
		if got := ics.RedactURL(in); got != want {
			t.Errorf("RedactURL(%q) = %q, want %q", in, got, want)
		}
	}
}
