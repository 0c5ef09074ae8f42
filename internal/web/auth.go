package web

import (
	"crypto/subtle"
	"net/http"

	"prepwise/internal/auth"
	appLog "prepwise/internal/log"
	"prepwise/internal/model"
)

const (
	stateCookieName = "prepwise_oauth_state"
	stateMaxAge     = 10 * 60
)

// handleLogin redirects to the Google consent screen with a fresh state.
//
// GET /auth/google
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	state := auth.NewState()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   stateMaxAge,
		HttpOnly: true,
		Secure:   s.cfg.Session.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, s.auth.AuthCodeURL(state), http.StatusFound)
}

// handleCallback completes sign-in: it checks the state, exchanges the
// code, reads the profile and opens a session.
//
// GET /auth/google/callback?code=...&state=...
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	ctx := r.Context()
	q := r.URL.Query()

	c, err := r.Cookie(stateCookieName)
	if err != nil || c.Value == "" || !secureCompare(c.Value, q.Get("state")) {
		appLog.Warn("oauth state mismatch", "remote", r.RemoteAddr)
		writeError(w, http.StatusBadRequest, "Invalid OAuth state")
		return
	}
	clearCookie(w, stateCookieName, "/auth/google", s.cfg.Session.Secure)

	if e := q.Get("error"); e != "" {
		appLog.Warn("oauth consent denied", "error", e)
		writeError(w, http.StatusUnauthorized, "Authentication failed")
		return
	}

	tok, err := s.auth.Exchange(ctx, q.Get("code"))
	if err != nil {
		appLog.Error("oauth exchange failed", err)
		writeError(w, http.StatusInternalServerError, "Authentication failed")
		return
	}
	user, err := s.auth.FetchUser(ctx, tok)
	if err != nil {
		appLog.Error("oauth userinfo failed", err)
		writeError(w, http.StatusInternalServerError, "Authentication failed")
		return
	}
	sess, err := s.sessions.Create(ctx, user, tok)
	if err != nil {
		appLog.Error("session create failed", err, "user", user.ID)
		writeError(w, http.StatusInternalServerError, "Authentication failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.Session.CookieName,
		Value:    sess.ID,
		Path:     "/",
		MaxAge:   s.cfg.Session.TTLHours * 3600,
		HttpOnly: true,
		Secure:   s.cfg.Session.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	appLog.Info("user signed in", "user", user.ID)
	http.Redirect(w, r, s.cfg.PostLoginPath, http.StatusFound)
}

// handleLogout deletes the session and its cookie.
//
// POST /auth/logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if c, err := r.Cookie(s.cfg.Session.CookieName); err == nil && c.Value != "" {
		if err := s.sessions.Delete(r.Context(), c.Value); err != nil {
			appLog.Error("session delete failed", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
	}
	clearCookie(w, s.cfg.Session.CookieName, "/", s.cfg.Session.Secure)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type sessionResponse struct {
	User model.User `json:"user"`
}

// GET /api/session
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	sess := s.requireSession(w, r)
	if sess == nil {
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{User: sess.User})
}

func clearCookie(w http.ResponseWriter, name, path string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
