package web

import (
	"errors"
	"math"
	"net/http"

	"github.com/google/uuid"

	"prepwise/internal/interview"
	appLog "prepwise/internal/log"
	"prepwise/internal/mockinterview"
	"prepwise/internal/model"
)

type settingsRequest struct {
	EmailNotifications bool `json:"emailNotifications"`
	PracticeReminders  bool `json:"practiceReminders"`
	CalendarSync       bool `json:"calendarSync"`
	DataSharing        bool `json:"dataSharing"`
}

// handleSettings reads or replaces the user's settings.
//
// GET /api/settings
// PUT /api/settings
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPut {
		methodNotAllowed(w, http.MethodGet, http.MethodPut)
		return
	}
	sess := s.requireSession(w, r)
	if sess == nil {
		return
	}
	ctx := r.Context()

	if r.Method == http.MethodGet {
		st, err := s.store.GetSettings(ctx, sess.User.ID)
		if err != nil {
			appLog.Error("settings load failed", err, "user", sess.User.ID)
			writeError(w, http.StatusInternalServerError, "Failed to load settings")
			return
		}
		writeJSON(w, http.StatusOK, st)
		return
	}

	var req settingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	saved, err := s.store.SaveSettings(ctx, sess.User.ID, model.Settings{
		EmailNotifications: req.EmailNotifications,
		PracticeReminders:  req.PracticeReminders,
		CalendarSync:       req.CalendarSync,
		DataSharing:        req.DataSharing,
	})
	if err != nil {
		appLog.Error("settings save failed", err, "user", sess.User.ID)
		writeError(w, http.StatusInternalServerError, "Failed to save settings")
		return
	}
	appLog.Info("settings saved", "user", sess.User.ID)
	writeJSON(w, http.StatusOK, saved)
}

type mockInterviewTypesResponse struct {
	Types        []mockinterview.Type `json:"types"`
	Difficulties []string             `json:"difficulties"`
}

// GET /api/mock-interview/types
func (s *Server) handleMockInterviewTypes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, mockInterviewTypesResponse{
		Types:        mockinterview.Types(),
		Difficulties: mockinterview.Difficulties(),
	})
}

// handleMockInterviews starts a practice session or lists the user's
// sessions.
//
// POST /api/mock-interviews {"type":"technical","difficulty":"medium"}
// GET  /api/mock-interviews
func (s *Server) handleMockInterviews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
		return
	}
	sess := s.requireSession(w, r)
	if sess == nil {
		return
	}
	ctx := r.Context()

	if r.Method == http.MethodGet {
		list, err := s.store.ListMockInterviews(ctx, sess.User.ID)
		if err != nil {
			appLog.Error("mock interviews list failed", err, "user", sess.User.ID)
			writeError(w, http.StatusInternalServerError, "Failed to load mock interviews")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"interviews": list})
		return
	}

	var req mockinterview.StartRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req, err := req.Normalize()
	if errors.Is(err, mockinterview.ErrTypeRequired) {
		writeError(w, http.StatusBadRequest, "Please select an interview type")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.store.CreateMockInterview(ctx, model.MockInterview{
		ID:         uuid.NewString(),
		UserID:     sess.User.ID,
		Type:       req.Type,
		Difficulty: req.Difficulty,
		Status:     "pending",
	})
	if err != nil {
		appLog.Error("mock interview create failed", err, "user", sess.User.ID)
		writeError(w, http.StatusInternalServerError, "Failed to start mock interview")
		return
	}
	appLog.Info("mock interview started", "user", sess.User.ID, "type", created.Type, "difficulty", created.Difficulty)
	writeJSON(w, http.StatusCreated, map[string]any{"interview": created})
}

type dashboardResponse struct {
	TotalInterviews    int     `json:"totalInterviews"`
	AverageScore       int     `json:"averageScore"`
	UpcomingInterviews int     `json:"upcomingInterviews"`
	PracticeTime       float64 `json:"practiceTime"`
}

// handleDashboard combines practice stats with the count of upcoming
// calendar interviews. A calendar failure only zeroes the upcoming count.
//
// GET /api/dashboard
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	sess := s.requireSession(w, r)
	if sess == nil {
		return
	}

	stats, err := s.store.Stats(r.Context(), sess.User.ID)
	if err != nil {
		appLog.Error("dashboard stats failed", err, "user", sess.User.ID)
		writeError(w, http.StatusInternalServerError, "Failed to load dashboard")
		return
	}

	upcoming := 0
	if sess.Token != nil && sess.Token.AccessToken != "" {
		now := s.now()
		records, err := s.fetchInterviews(r, sess, now)
		if err != nil {
			appLog.Warn("dashboard calendar fetch failed", "user", sess.User.ID, "err", err)
		} else {
			up, _ := interview.Partition(records, now)
			upcoming = len(up)
		}
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		TotalInterviews:    stats.TotalInterviews,
		AverageScore:       stats.AverageScore,
		UpcomingInterviews: upcoming,
		// hours, one decimal
		PracticeTime: math.Round(float64(stats.PracticeMinutes)/6) / 10,
	})
}
