package web

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"time"

	"github.com/vbonduro/sitegallery/internal/auth"
)

const (
	sessionCookie   = "admin_token"
	maxLoginBodyLen = 64 * 1024
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionKey struct{}

// sessionFrom returns the session attached by requireAdmin.
func sessionFrom(ctx context.Context) (auth.Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(auth.Session)
	return sess, ok
}

// requireAdmin rejects requests without a valid session cookie: 403 when no
// cookie is presented, 401 when the token does not verify.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(sessionCookie)
		if err != nil || c.Value == "" {
			s.writeJSON(w, http.StatusForbidden, map[string]any{"message": "no token"})
			return
		}
		sess, err := s.auth.Verify(c.Value)
		if err != nil {
			s.logger.Debug("rejected session token", "path", r.URL.Path, "error", err)
			s.writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "invalid token"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

// currentSession verifies the session cookie outside the guarded routes.
func (s *Server) currentSession(r *http.Request) (auth.Session, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return auth.Session{}, false
	}
	sess, err := s.auth.Verify(c.Value)
	if err != nil {
		return auth.Session{}, false
	}
	return sess, true
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxLoginBodyLen)

	var req loginRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid request body"})
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			s.writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid request body"})
			return
		}
		req.Username = r.PostForm.Get("username")
		req.Password = r.PostForm.Get("password")
	}

	if !s.auth.CheckCredentials(req.Username, req.Password) {
		s.logger.Warn("failed login attempt", "remote_addr", r.RemoteAddr)
		s.writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "invalid credentials"})
		return
	}

	token, sess, err := s.auth.Issue()
	if err != nil {
		s.logger.Error("issue session failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "server error"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		MaxAge:   int(time.Until(sess.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   s.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	s.logger.Info("admin logged in", "session_id", sess.ID)
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleCheckLogin(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.currentSession(r); !ok {
		s.writeJSON(w, http.StatusUnauthorized, map[string]any{"loggedIn": false})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"loggedIn": true})
}

// handleLogout clears the cookie and revokes the presented session, if any,
// so a copied token cannot be replayed.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.currentSession(r); ok {
		s.auth.Revoke(sess)
		s.logger.Info("admin logged out", "session_id", sess.ID)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
