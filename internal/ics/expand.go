package ics

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "prepwise/internal/log"
	"prepwise/internal/model"
)

const defaultMaxOccurrencesPerEvent = 500

// ExpandConfig controls recurrence expansion.
type ExpandConfig struct {
	// Location is the zone timed occurrences are rendered in. Nil means UTC.
	Location *time.Location

	// RangeStart / RangeEnd bound the occurrences that are kept; an
	// occurrence is kept when it overlaps the range.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps a single series.
	MaxOccurrencesPerEvent int
}

// ExpandToRawEvents turns parsed VEVENTs into single-instance events inside
// the range, ordered by start time like the Calendar API with
// singleEvents=true&orderBy=startTime. Cancelled events are dropped.
func ExpandToRawEvents(events []ParsedEvent, cfg ExpandConfig) ([]model.RawEvent, error) {
	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return nil, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	// Base events and overrides grouped by UID; the order of first
	// appearance keeps the output stable for equal start times.
	var uids []string
	base := make(map[string][]ParsedEvent)
	overrides := make(map[string][]ParsedEvent)
	for _, ev := range events {
		if _, seen := base[ev.UID]; !seen {
			if _, seenOv := overrides[ev.UID]; !seenOv {
				uids = append(uids, ev.UID)
			}
		}
		if ev.IsOverride() {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
		} else {
			base[ev.UID] = append(base[ev.UID], ev)
		}
	}

	type occurrence struct {
		start time.Time
		raw   model.RawEvent
	}
	var occs []occurrence

	for _, uid := range uids {
		for _, ev := range base[uid] {
			starts, truncated := instanceStarts(ev, cfg)
			if truncated {
				appLog.Warn("ics series truncated", "uid", uid, "cap", cfg.MaxOccurrencesPerEvent)
			}
			for _, st := range starts {
				inst := ev
				instStart, instEnd := st, st.Add(ev.End.Sub(ev.Start))
				if ov, ok := findOverride(overrides[uid], st); ok {
					inst = ov
					instStart, instEnd = ov.Start, ov.End
				}
				if inst.Status == "CANCELLED" || !overlaps(instStart, instEnd, cfg.RangeStart, cfg.RangeEnd) {
					continue
				}
				occs = append(occs, occurrence{
					start: instStart,
					raw:   toRawEvent(inst, instStart, instEnd, ev.RawRRule != "", st, cfg.Location),
				})
			}
		}
	}

	sort.SliceStable(occs, func(i, j int) bool { return occs[i].start.Before(occs[j].start) })

	out := make([]model.RawEvent, 0, len(occs))
	for _, o := range occs {
		out = append(out, o.raw)
	}
	return out, nil
}

// instanceStarts lists the series start times inside the range, widened by
// the event duration so instances that began before RangeStart but are
// still running are included.
func instanceStarts(ev ParsedEvent, cfg ExpandConfig) ([]time.Time, bool) {
	if ev.RawRRule == "" {
		return []time.Time{ev.Start}, false
	}

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("ics bad RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	loc := ev.Start.Location()
	from := cfg.RangeStart.Add(-ev.End.Sub(ev.Start)).In(loc)
	starts := set.Between(from, cfg.RangeEnd.In(loc), true)
	if len(starts) > cfg.MaxOccurrencesPerEvent {
		return starts[:cfg.MaxOccurrencesPerEvent], true
	}
	return starts, false
}

func findOverride(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(start) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}

// toRawEvent renders an instance in the Calendar API shape: all-day events
// carry a date, timed ones an RFC 3339 dateTime. Recurring instances get
// "<uid>_<series start>" ids like Google's expanded instances.
func toRawEvent(ev ParsedEvent, start, end time.Time, recurring bool, seriesStart time.Time, loc *time.Location) model.RawEvent {
	id := ev.UID
	if recurring {
		id = ev.UID + "_" + seriesStart.UTC().Format("20060102T150405Z")
	}

	raw := model.RawEvent{
		ID:          id,
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		HangoutLink: ev.MeetingLink,
	}
	if ev.AllDay {
		raw.Start = &model.EventDateTime{Date: start.Format(time.DateOnly)}
		raw.End = &model.EventDateTime{Date: end.Format(time.DateOnly)}
	} else {
		raw.Start = &model.EventDateTime{DateTime: start.In(loc).Format(time.RFC3339)}
		raw.End = &model.EventDateTime{DateTime: end.In(loc).Format(time.RFC3339)}
	}
	return raw
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	if aEnd.Before(aStart) {
		aEnd = aStart
	}
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}
