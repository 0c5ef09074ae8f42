package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"prepwise/internal/config"
	"prepwise/internal/feeds"
	"prepwise/internal/interview"
	appLog "prepwise/internal/log"
	"prepwise/internal/model"
	"prepwise/internal/session"
	"prepwise/internal/store"
)

// CalendarProvider lists a user's calendar events. *gcal.Client implements
// it.
type CalendarProvider interface {
	ListEvents(ctx context.Context, ts oauth2.TokenSource, w interview.Window) ([]model.RawEvent, error)
}

// Authenticator is the OAuth side of sign-in. *auth.Authenticator
// implements it.
type Authenticator interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	FetchUser(ctx context.Context, tok *oauth2.Token) (model.User, error)
	TokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource
}

// SessionStore is implemented by *session.Store.
type SessionStore interface {
	Create(ctx context.Context, user model.User, tok *oauth2.Token) (*session.Session, error)
	Get(ctx context.Context, id string) (*session.Session, error)
	UpdateToken(ctx context.Context, id string, tok *oauth2.Token) error
	Delete(ctx context.Context, id string) error
}

// DataStore is implemented by *store.Store.
type DataStore interface {
	GetSettings(ctx context.Context, userID string) (model.Settings, error)
	SaveSettings(ctx context.Context, userID string, in model.Settings) (model.Settings, error)
	CreateMockInterview(ctx context.Context, m model.MockInterview) (model.MockInterview, error)
	ListMockInterviews(ctx context.Context, userID string) ([]model.MockInterview, error)
	Stats(ctx context.Context, userID string) (store.Stats, error)
}

// FeedSnapshots exposes the shared-feed snapshot. *feeds.Scheduler
// implements it.
type FeedSnapshots interface {
	Snapshot() (feeds.Snapshot, bool)
}

// Deps are the collaborators of a Server. Feeds may be nil.
type Deps struct {
	Config   *config.Config
	Auth     Authenticator
	Calendar CalendarProvider
	Sessions SessionStore
	Store    DataStore
	Feeds    FeedSnapshots
	Version  string
	// Now defaults to time.Now.
	Now func() time.Time
}

// Server provides the HTTP API.
type Server struct {
	cfg      *config.Config
	auth     Authenticator
	calendar CalendarProvider
	sessions SessionStore
	store    DataStore
	feeds    FeedSnapshots
	version  string
	now      func() time.Time
	mux      *http.ServeMux
}

// NewServer constructs a new Server.
func NewServer(d Deps) *Server {
	cfg := d.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	s := &Server{
		cfg:      cfg,
		auth:     d.Auth,
		calendar: d.Calendar,
		sessions: d.Sessions,
		store:    d.Store,
		feeds:    d.Feeds,
		version:  d.Version,
		now:      now,
		mux:      http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return logRequests(s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)

	s.mux.HandleFunc("/auth/google", s.handleLogin)
	s.mux.HandleFunc("/auth/google/callback", s.handleCallback)
	s.mux.HandleFunc("/auth/logout", s.handleLogout)

	s.mux.HandleFunc("/api/session", s.handleSession)
	s.mux.HandleFunc("/api/calendar/events", s.handleCalendarEvents)
	s.mux.HandleFunc("/api/dashboard", s.handleDashboard)
	s.mux.HandleFunc("/api/settings", s.handleSettings)
	s.mux.HandleFunc("/api/mock-interview/types", s.handleMockInterviewTypes)
	s.mux.HandleFunc("/api/mock-interviews", s.handleMockInterviews)
	s.mux.HandleFunc("/api/feeds/interviews", s.handleFeedInterviews)
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Service: "prepwise",
		Version: s.version,
	})
}

// statusRecorder captures the status code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		appLog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).String(),
		)
	})
}

// currentSession resolves the session cookie. A missing cookie or unknown
// session yields (nil, nil).
func (s *Server) currentSession(r *http.Request) (*session.Session, error) {
	c, err := r.Cookie(s.cfg.Session.CookieName)
	if err != nil || c.Value == "" {
		return nil, nil
	}
	sess, err := s.sessions.Get(r.Context(), c.Value)
	if errors.Is(err, session.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// requireSession writes 401 (or 500 when the store fails) and returns nil
// when the request is not signed in.
func (s *Server) requireSession(w http.ResponseWriter, r *http.Request) *session.Session {
	sess, err := s.currentSession(r)
	if err != nil {
		appLog.Error("session lookup failed", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return nil
	}
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return nil
	}
	return sess
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	for _, m := range allowed {
		w.Header().Add("Allow", m)
	}
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// decodeJSON reads a small JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	return dec.Decode(v)
}
