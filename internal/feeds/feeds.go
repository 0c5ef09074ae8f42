// Package feeds keeps an interview snapshot of the shared ICS calendars
// fresh on a cron schedule and announces each sync on Redis.
package feeds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"prepwise/internal/config"
	"prepwise/internal/ics"
	"prepwise/internal/interview"
	appLog "prepwise/internal/log"
	"prepwise/internal/model"
)

// EventInterviewsSynced is the Redis channel and event type published after
// every successful refresh.
const EventInterviewsSynced = "EVENT_INTERVIEWS_SYNCED"

// Publisher is the subset of *redis.Client used for sync events.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Snapshot is the result of the latest refresh.
type Snapshot struct {
	Upcoming []model.Interview
	Past     []model.Interview
	Total    int
	SyncedAt time.Time
	// FailedFeeds counts sources that produced no body this round.
	FailedFeeds int
}

// Options configures a Scheduler.
type Options struct {
	// Schedule is a standard 5-field cron expression.
	Schedule       string
	Sources        []ics.Source
	Fetcher        *ics.Fetcher
	Location       *time.Location
	LookbackMonths int
	// Publisher may be nil, in which case sync events are not published.
	Publisher Publisher
}

// Scheduler wraps robfig/cron and owns the current snapshot.
type Scheduler struct {
	cron     *cron.Cron
	schedule string
	sources  []ics.Source
	fetcher  *ics.Fetcher
	loc      *time.Location
	months   int
	pub      Publisher
	now      func() time.Time

	refreshMu sync.Mutex
	initial   sync.WaitGroup

	mu   sync.RWMutex
	snap *Snapshot
}

// New builds a Scheduler. Nothing runs until Start or Refresh.
func New(opts Options) *Scheduler {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = ics.NewFetcher("", nil)
	}
	return &Scheduler{
		cron:     cron.New(),
		schedule: opts.Schedule,
		sources:  opts.Sources,
		fetcher:  fetcher,
		loc:      loc,
		months:   opts.LookbackMonths,
		pub:      opts.Publisher,
		now:      time.Now,
	}
}

// SourcesFromConfig turns configured feeds into fetch sources. Entries
// without a URL are skipped; a missing ID falls back to Name, then URL.
func SourcesFromConfig(feeds []config.FeedConfig) []ics.Source {
	sources := make([]ics.Source, 0, len(feeds))
	for _, f := range feeds {
		if f.URL == "" {
			continue
		}
		id := f.ID
		if id == "" {
			if f.Name != "" {
				id = f.Name
			} else {
				id = f.URL
			}
		}
		sources = append(sources, ics.Source{ID: id, URL: f.URL})
	}
	return sources
}

// Start registers the refresh job, starts the cron and runs one refresh in
// the background so the snapshot does not wait for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.schedule, func() { s.refreshAndLog(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc %q: %w", s.schedule, err)
	}
	s.cron.Start()
	appLog.Info("feed scheduler started", "schedule", s.schedule, "feeds", len(s.sources))

	s.initial.Add(1)
	go func() {
		defer s.initial.Done()
		s.refreshAndLog(ctx)
	}()
	return nil
}

// Stop halts the cron and waits for a running refresh, scheduled or
// initial, to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.initial.Wait()
	appLog.Info("feed scheduler stopped")
}

// Snapshot returns the latest snapshot; ok is false before the first
// successful refresh.
func (s *Scheduler) Snapshot() (snap Snapshot, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return Snapshot{}, false
	}
	return *s.snap, true
}

func (s *Scheduler) refreshAndLog(ctx context.Context) {
	if _, err := s.Refresh(ctx); err != nil {
		appLog.Error("feed refresh failed", err)
	}
}

// Refresh fetches every feed, extracts interviews over the lookback window
// (extended the same number of months ahead), stores the snapshot and
// publishes EventInterviewsSynced. When every feed fails the previous
// snapshot is kept and an error is returned.
func (s *Scheduler) Refresh(ctx context.Context) (Snapshot, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	now := s.now()
	appLog.Info("feed refresh started", "feeds", len(s.sources))

	results, fetchErrs := s.fetcher.FetchAll(ctx, s.sources)
	if len(results) == 0 && len(fetchErrs) > 0 {
		return Snapshot{}, fmt.Errorf("all %d feeds failed: %w", len(fetchErrs), errors.Join(fetchErrs...))
	}

	parsed := make([]ics.ParsedEvent, 0)
	for _, res := range results {
		events, err := ics.ParseICS(res.Source, res.Body)
		if err != nil {
			appLog.Error("feed parse failed", err, "id", res.Source.ID)
			continue
		}
		parsed = append(parsed, events...)
	}

	window := interview.LookbackWindow(now, s.months)
	months := s.months
	if months <= 0 {
		months = interview.DefaultLookbackMonths
	}
	raw, err := ics.ExpandToRawEvents(parsed, ics.ExpandConfig{
		Location:   s.loc,
		RangeStart: window.Start,
		RangeEnd:   now.AddDate(0, months, 0),
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("expand: %w", err)
	}

	records := interview.Collect(raw)
	upcoming, past := interview.Partition(records, now)
	snap := Snapshot{
		Upcoming:    upcoming,
		Past:        past,
		Total:       len(records),
		SyncedAt:    now.UTC(),
		FailedFeeds: len(fetchErrs),
	}

	s.mu.Lock()
	s.snap = &snap
	s.mu.Unlock()

	appLog.Info("feed refresh complete",
		"events", len(raw),
		"interviews", snap.Total,
		"upcoming", len(upcoming),
		"past", len(past),
		"failed_feeds", snap.FailedFeeds,
	)

	s.publish(ctx, snap)
	return snap, nil
}

// publish is best effort; a Redis outage does not fail the refresh.
func (s *Scheduler) publish(ctx context.Context, snap Snapshot) {
	if s.pub == nil {
		return
	}
	event, _ := json.Marshal(map[string]any{
		"type":     EventInterviewsSynced,
		"upcoming": len(snap.Upcoming),
		"past":     len(snap.Past),
		"total":    snap.Total,
		"syncedAt": snap.SyncedAt.Format(time.RFC3339),
	})
	if err := s.pub.Publish(ctx, EventInterviewsSynced, event).Err(); err != nil {
		appLog.Warn("publish "+EventInterviewsSynced+" failed", "err", err)
	}
}
