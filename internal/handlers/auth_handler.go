package handlers

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"eduportal/internal/config"
	"eduportal/internal/metrics"
	"eduportal/internal/models"
	"eduportal/internal/security"
	"eduportal/internal/service"
	"eduportal/internal/validation"
)

// AuthHandler serves login, logout and identity lookups for all
// principal kinds over one shared session cookie.
type AuthHandler struct {
	verifier *service.CredentialVerifier
	sessions *service.SessionManager
	cfg      *config.Config
	log      *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(verifier *service.CredentialVerifier, sessions *service.SessionManager, cfg *config.Config, log *zap.Logger) *AuthHandler {
	return &AuthHandler{verifier: verifier, sessions: sessions, cfg: cfg, log: log}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

type loginResponse struct {
	Principal models.Summary `json:"principal"`
}

type logoutResponse struct {
	RedirectedTo models.PrincipalKind `json:"redirectedTo,omitempty"`
	LoggedOut    bool                 `json:"loggedOut"`
}

func kindFromPath(r *http.Request) models.PrincipalKind {
	switch r.PathValue("kind") {
	case "student":
		return models.KindStudent
	case "teacher":
		return models.KindTeacher
	case "admin":
		return models.KindAdmin
	}
	return models.KindNone
}

// Login handles POST /auth/{kind}/login. A login never disturbs the
// other kind's sub-session riding on the same cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	kind := kindFromPath(r)
	if kind == models.KindNone {
		writeError(w, h.log, http.StatusNotFound, "unknown login kind", nil)
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	principal, err := h.verifier.Verify(kind, req.Email, req.Password)
	if err != nil {
		metrics.LoginFailure.Inc()
		var vErr validation.ValidationError
		switch {
		case errors.As(err, &vErr):
			writeError(w, h.log, http.StatusBadRequest, vErr.Message, nil)
		case errors.Is(err, service.ErrInvalidCredentials):
			writeError(w, h.log, http.StatusUnauthorized, "invalid email or password", nil)
		case errors.Is(err, service.ErrNotVerified):
			writeError(w, h.log, http.StatusForbidden, "email address not verified", nil)
		case errors.Is(err, service.ErrNotApproved):
			writeError(w, h.log, http.StatusForbidden, "account not approved", nil)
		default:
			writeError(w, h.log, http.StatusInternalServerError, "login failed", err)
		}
		return
	}

	// Reuse the caller's existing session so a student already logged in
	// keeps their sub-session when a teacher signs in on the same browser.
	var token string
	if cookie, err := r.Cookie(security.SessionCookieName); err == nil {
		token = cookie.Value
	}
	token, err = h.sessions.Establish(token, kind, principal)
	if err != nil {
		writeError(w, h.log, http.StatusServiceUnavailable, "session store unavailable", err)
		return
	}
	http.SetCookie(w, security.CreateSessionCookie(r, security.SessionCookieName, token,
		time.Now().Add(h.cfg.SessionDuration)))

	if req.Remember && h.cfg.RememberSecret != "" && kind != models.KindAdmin {
		remember, err := security.IssueRememberToken(h.cfg.RememberSecret, kind, principal.ID, h.cfg.RememberDuration)
		if err != nil {
			h.log.Warn("failed to issue remember token", zap.Error(err))
		} else {
			http.SetCookie(w, security.CreateSessionCookie(r, security.RememberCookieName, remember,
				time.Now().Add(h.cfg.RememberDuration)))
		}
	}

	metrics.LoginSuccess.Inc()
	writeJSON(w, http.StatusOK, loginResponse{Principal: principal.Summary()})
}

// Logout handles POST /auth/{kind}/logout. A misrouted logout (the kind
// is not present but another is) destroys nothing and reports where the
// caller should go instead.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	kind := kindFromPath(r)
	if kind == models.KindNone {
		writeError(w, h.log, http.StatusNotFound, "unknown login kind", nil)
		return
	}

	var token string
	if cookie, err := r.Cookie(security.SessionCookieName); err == nil {
		token = cookie.Value
	}
	if token == "" {
		writeJSON(w, http.StatusOK, logoutResponse{LoggedOut: true})
		return
	}

	outcome, err := h.sessions.Teardown(token, kind)
	if err != nil {
		writeError(w, h.log, http.StatusServiceUnavailable, "session store unavailable", err)
		return
	}

	if outcome.RedirectTo != models.KindNone {
		writeJSON(w, http.StatusOK, logoutResponse{RedirectedTo: outcome.RedirectTo})
		return
	}

	if outcome.Destroyed {
		http.SetCookie(w, security.CreateDeleteCookie(r, security.SessionCookieName))
	}
	// Drop the remember cookie unless it belongs to the kind that stays
	// logged in.
	if cookie, err := r.Cookie(security.RememberCookieName); err == nil {
		tokenKind, _, err := security.ParseRememberToken(h.cfg.RememberSecret, cookie.Value)
		if err != nil || tokenKind == kind {
			http.SetCookie(w, security.CreateDeleteCookie(r, security.RememberCookieName))
		}
	}
	writeJSON(w, http.StatusOK, logoutResponse{LoggedOut: true})
}

// Me handles GET /auth/{kind}/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	kind := kindFromPath(r)
	if kind == models.KindNone {
		writeError(w, h.log, http.StatusNotFound, "unknown login kind", nil)
		return
	}

	var token string
	if cookie, err := r.Cookie(security.SessionCookieName); err == nil {
		token = cookie.Value
	}
	ref, err := h.sessions.CurrentPrincipal(token, kind)
	if err != nil {
		writeError(w, h.log, http.StatusServiceUnavailable, "session store unavailable", err)
		return
	}
	if ref == nil {
		writeError(w, h.log, http.StatusUnauthorized, "not logged in", nil)
		return
	}
	writeJSON(w, http.StatusOK, ref)
}
