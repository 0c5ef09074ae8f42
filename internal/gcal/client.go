// Package gcal reads events from Google Calendar on behalf of a signed-in
// user.
package gcal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"prepwise/internal/interview"
	appLog "prepwise/internal/log"
	"prepwise/internal/model"
)

const defaultMaxResults = 250

// APIError is a non-2xx answer from the Calendar API. Status and Body are
// passed through to the client unchanged.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("calendar api: status %d: %s", e.Status, e.Body)
}

// Client lists calendar events. The zero value is not usable; use NewClient.
type Client struct {
	calendarID string
	maxResults int64
	// opts are appended to every service construction (tests point the
	// endpoint at an httptest server).
	opts []option.ClientOption
}

// NewClient returns a Client for calendarID ("primary" when empty).
func NewClient(calendarID string, maxResults int64, opts ...option.ClientOption) *Client {
	if calendarID == "" {
		calendarID = "primary"
	}
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	return &Client{calendarID: calendarID, maxResults: maxResults, opts: opts}
}

// ListEvents returns events starting inside w, expanded to single instances
// and ordered by start time.
func (c *Client) ListEvents(ctx context.Context, ts oauth2.TokenSource, w interview.Window) ([]model.RawEvent, error) {
	if ts == nil {
		return nil, errors.New("gcal: nil token source")
	}

	opts := append([]option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, ts))}, c.opts...)
	srv, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcal: create service: %w", err)
	}

	call := srv.Events.List(c.calendarID).
		Context(ctx).
		TimeMin(w.Start.Format(time.RFC3339)).
		TimeMax(w.End.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(c.maxResults)

	resp, err := call.Do()
	if err != nil {
		return nil, toAPIError(err)
	}

	appLog.Debug("gcal events listed",
		"calendar_id", c.calendarID,
		"count", len(resp.Items),
		"time_min", w.Start.Format(time.RFC3339),
		"time_max", w.End.Format(time.RFC3339),
	)

	events := make([]model.RawEvent, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item == nil {
			continue
		}
		events = append(events, FromCalendarEvent(item))
	}
	return events, nil
}

// FromCalendarEvent copies the fields the interview parser reads.
func FromCalendarEvent(ev *calendar.Event) model.RawEvent {
	return model.RawEvent{
		ID:          ev.Id,
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       fromEventDateTime(ev.Start),
		End:         fromEventDateTime(ev.End),
		Location:    ev.Location,
		HangoutLink: ev.HangoutLink,
	}
}

func fromEventDateTime(dt *calendar.EventDateTime) *model.EventDateTime {
	if dt == nil {
		return nil
	}
	return &model.EventDateTime{DateTime: dt.DateTime, Date: dt.Date}
}

// toAPIError maps googleapi failures to *APIError. Token refresh failures
// become 401 so the caller can ask the user to sign in again.
func toAPIError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		body := gerr.Body
		if body == "" {
			body = gerr.Message
		}
		return &APIError{Status: gerr.Code, Body: body}
	}
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return &APIError{Status: http.StatusUnauthorized, Body: string(rerr.Body)}
	}
	return fmt.Errorf("gcal: list events: %w", err)
}
