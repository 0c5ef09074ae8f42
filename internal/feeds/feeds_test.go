package feeds_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"prepwise/internal/config"
	"prepwise/internal/feeds"
	"prepwise/internal/ics"
)

type fakePublisher struct {
	mu       sync.Mutex
	channels []string
	messages [][]byte
}

func (p *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels = append(p.channels, channel)
	if b, ok := message.([]byte); ok {
		p.messages = append(p.messages, b)
	}
	return redis.NewIntCmd(ctx)
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.channels)
}

func vevent(uid, summary string, start time.Time) string {
	const layout = "20060102T150405Z"
	return strings.Join([]string{
		"BEGIN:VEVENT",
		"UID:" + uid,
		"DTSTAMP:" + start.UTC().Format(layout),
		"DTSTART:" + start.UTC().Format(layout),
		"DTEND:" + start.Add(time.Hour).UTC().Format(layout),
		"SUMMARY:" + summary,
		"END:VEVENT",
	}, "\r\n")
}

func feedServer(t *testing.T) *httptest.Server {
	t.Helper()
	now := time.Now().Truncate(time.Second)
	body := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//prepwise//test//EN",
		vevent("past-1", "Technical screen at Globex", now.Add(-48*time.Hour)),
		vevent("lunch-1", "Team lunch", now.Add(-24*time.Hour)),
		vevent("next-1", "Interview with Acme for Platform Engineer", now.Add(48*time.Hour)),
		"END:VCALENDAR",
		"",
	}, "\r\n")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRefresh_BuildsSnapshotAndPublishes(t *testing.T) {
	srv := feedServer(t)
	pub := &fakePublisher{}
	s := feeds.New(feeds.Options{
		Schedule:  "*/15 * * * *",
		Sources:   []ics.Source{{ID: "recruiting", URL: srv.URL + "/team.ics"}},
		Fetcher:   ics.NewFetcher(t.TempDir(), srv.Client()),
		Publisher: pub,
	})

	if _, ok := s.Snapshot(); ok {
		t.Fatal("snapshot available before first refresh")
	}

	snap, err := s.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if snap.Total != 2 || len(snap.Upcoming) != 1 || len(snap.Past) != 1 {
		t.Fatalf("snapshot total=%d upcoming=%d past=%d", snap.Total, len(snap.Upcoming), len(snap.Past))
	}
	if got := snap.Upcoming[0]; got.Company != "Acme" || got.Position != "Platform Engineer" {
		t.Errorf("upcoming = %+v", got)
	}
	if got := snap.Past[0]; got.Company != "Globex" {
		t.Errorf("past = %+v", got)
	}

	stored, ok := s.Snapshot()
	if !ok || stored.Total != 2 {
		t.Errorf("Snapshot() = %+v, %v", stored, ok)
	}

	if pub.count() != 1 || pub.channels[0] != feeds.EventInterviewsSynced {
		t.Fatalf("published %v", pub.channels)
	}
	var event map[string]any
	if err := json.Unmarshal(pub.messages[0], &event); err != nil {
		t.Fatalf("event json: %v", err)
	}
	if event["type"] != feeds.EventInterviewsSynced || event["total"] != float64(2) {
		t.Errorf("event = %v", event)
	}
}

func TestRefresh_AllFeedsFailedKeepsPrevious(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	pub := &fakePublisher{}
	s := feeds.New(feeds.Options{
		Schedule:  "@every 1h",
		Sources:   []ics.Source{{ID: "broken", URL: srv.URL}},
		Fetcher:   ics.NewFetcher(t.TempDir(), srv.Client()),
		Publisher: pub,
	})
	if _, err := s.Refresh(context.Background()); err == nil {
		t.Fatal("expected error when every feed fails")
	}
	if _, ok := s.Snapshot(); ok {
		t.Error("snapshot stored after failed refresh")
	}
	if pub.count() != 0 {
		t.Errorf("published %d events, want 0", pub.count())
	}
}

func TestRefresh_NoSources(t *testing.T) {
	s := feeds.New(feeds.Options{Schedule: "@every 1h", Fetcher: ics.NewFetcher(t.TempDir(), nil)})
	snap, err := s.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if snap.Total != 0 || snap.Upcoming == nil || snap.Past == nil {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestStart_RunsImmediately(t *testing.T) {
	srv := feedServer(t)
	pub := &fakePublisher{}
	s := feeds.New(feeds.Options{
		Schedule:  "@every 1h",
		Sources:   []ics.Source{{ID: "recruiting", URL: srv.URL}},
		Fetcher:   ics.NewFetcher(t.TempDir(), srv.Client()),
		Publisher: pub,
	})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if snap, ok := s.Snapshot(); ok {
			if snap.Total != 2 {
				t.Errorf("total = %d, want 2", snap.Total)
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("no snapshot after Start")
}

func TestStop_WaitsForInitialRefresh(t *testing.T) {
	body := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//prepwise//test//EN",
		vevent("next-1", "Interview with Acme", time.Now().Add(24*time.Hour)),
		"END:VCALENDAR",
		"",
	}, "\r\n")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	pub := &fakePublisher{}
	s := feeds.New(feeds.Options{
		Schedule:  "@every 1h",
		Sources:   []ics.Source{{ID: "slow", URL: srv.URL}},
		Fetcher:   ics.NewFetcher(t.TempDir(), srv.Client()),
		Publisher: pub,
	})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Stop()

	if _, ok := s.Snapshot(); !ok {
		t.Error("Stop returned before the initial refresh stored a snapshot")
	}
	if pub.count() != 1 {
		t.Errorf("published %d events after Stop, want 1", pub.count())
	}
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	s := feeds.New(feeds.Options{Schedule: "not a cron"})
	if err := s.Start(context.Background()); err == nil {
		s.Stop()
		t.Fatal("expected error for invalid cron schedule")
	}
}

func TestSourcesFromConfig(t *testing.T) {
	got := feeds.SourcesFromConfig([]config.FeedConfig{
		{URL: "https://a.example/a.ics", ID: "a"},
		{URL: "https://b.example/b.ics", Name: "Recruiting"},
		{URL: "https://c.example/c.ics"},
		{ID: "empty"},
	})
	want := []ics.Source{
		{ID: "a", URL: "https://a.example/a.ics"},
		{ID: "Recruiting", URL: "https://b.example/b.ics"},
		{ID: "https://c.example/c.ics", URL: "https://c.example/c.ics"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d sources, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("source[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}
