package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"prepwise/internal/gcal"
	"prepwise/internal/interview"
	appLog "prepwise/internal/log"
	"prepwise/internal/model"
	"prepwise/internal/session"
)

// interviewsResponse is the envelope for calendar and feed interviews.
type interviewsResponse struct {
	Success  bool              `json:"success"`
	Upcoming []model.Interview `json:"upcoming"`
	Past     []model.Interview `json:"past"`
	Total    int               `json:"total"`
	SyncedAt *time.Time        `json:"syncedAt,omitempty"`
}

type upstreamErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details"`
}

type internalErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// handleCalendarEvents returns the signed-in user's interviews from the
// last LookbackMonths of their primary calendar, split around now.
//
// GET /api/calendar/events
func (s *Server) handleCalendarEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	sess, err := s.currentSession(r)
	if err != nil {
		appLog.Error("session lookup failed", err)
		writeJSON(w, http.StatusInternalServerError, internalErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
		return
	}
	if sess == nil || sess.Token == nil || sess.Token.AccessToken == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	now := s.now()
	records, err := s.fetchInterviews(r, sess, now)
	if err != nil {
		var apiErr *gcal.APIError
		if errors.As(err, &apiErr) {
			appLog.Warn("calendar api error", "status", apiErr.Status, "user", sess.User.ID)
			writeJSON(w, apiErr.Status, upstreamErrorResponse{
				Error:   "Failed to fetch calendar events",
				Details: upstreamDetails(apiErr.Body),
			})
			return
		}
		appLog.Error("calendar events failed", err, "user", sess.User.ID)
		writeJSON(w, http.StatusInternalServerError, internalErrorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
		return
	}

	upcoming, past := interview.Partition(records, now)
	appLog.Info("calendar interviews",
		"user", sess.User.ID,
		"total", len(records),
		"upcoming", len(upcoming),
		"past", len(past),
	)

	writeJSON(w, http.StatusOK, interviewsResponse{
		Success:  true,
		Upcoming: upcoming,
		Past:     past,
		Total:    len(records),
	})
}

// fetchInterviews reads the lookback window from the provider and extracts
// interviews. A token refreshed during the call is saved back to the
// session.
func (s *Server) fetchInterviews(r *http.Request, sess *session.Session, now time.Time) ([]model.Interview, error) {
	ctx := r.Context()
	ts := s.auth.TokenSource(ctx, sess.Token)
	window := interview.LookbackWindow(now, s.cfg.LookbackMonths)

	events, err := s.calendar.ListEvents(ctx, ts, window)
	if err != nil {
		return nil, err
	}

	if tok, terr := ts.Token(); terr == nil && tok.AccessToken != sess.Token.AccessToken {
		if uerr := s.sessions.UpdateToken(ctx, sess.ID, tok); uerr != nil {
			appLog.Warn("session token write-back failed", "session", sess.ID, "err", uerr)
		} else {
			appLog.Debug("session token refreshed", "session", sess.ID)
		}
	}

	return interview.Collect(events), nil
}

// upstreamDetails embeds a JSON error body as-is and anything else as a
// string.
func upstreamDetails(body string) any {
	if json.Valid([]byte(body)) {
		return json.RawMessage(body)
	}
	return body
}

// handleFeedInterviews serves the latest shared-feed snapshot.
//
// GET /api/feeds/interviews
func (s *Server) handleFeedInterviews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	if s.requireSession(w, r) == nil {
		return
	}
	if s.feeds == nil {
		writeError(w, http.StatusNotFound, "No interview feeds configured")
		return
	}
	snap, ok := s.feeds.Snapshot()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "Interview feeds not synced yet")
		return
	}
	syncedAt := snap.SyncedAt
	writeJSON(w, http.StatusOK, interviewsResponse{
		Success:  true,
		Upcoming: snap.Upcoming,
		Past:     snap.Past,
		Total:    snap.Total,
		SyncedAt: &syncedAt,
	})
}
