package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"eduportal/internal/config"
	"eduportal/internal/models"
	"eduportal/internal/repository"
	"eduportal/internal/security"
	"eduportal/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	StudentContextKey ContextKey = "student"
	StaffContextKey   ContextKey = "staff"
)

// Middleware holds dependencies for middleware functions
type Middleware struct {
	sessions   *service.SessionManager
	principals *repository.PrincipalRepository
	cfg        *config.Config
	limiter    *security.RateLimiter
	log        *zap.Logger
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(sessions *service.SessionManager, principals *repository.PrincipalRepository, cfg *config.Config, log *zap.Logger) *Middleware {
	return &Middleware{
		sessions:   sessions,
		principals: principals,
		cfg:        cfg,
		limiter:    security.NewRateLimiter(10, time.Minute),
		log:        log,
	}
}

// RequireStudent requires a live student sub-session
func (m *Middleware) RequireStudent(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref := m.resolve(w, r, models.KindStudent)
		if ref == nil {
			writeError(w, m.log, http.StatusUnauthorized, "student login required", nil)
			return
		}
		ctx := context.WithValue(r.Context(), StudentContextKey, ref)
		next(w, r.WithContext(ctx))
	}
}

// RequireStaff requires a teacher or admin sub-session
func (m *Middleware) RequireStaff(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref := m.resolve(w, r, models.KindTeacher)
		if ref == nil {
			ref = m.resolve(w, r, models.KindAdmin)
		}
		if ref == nil {
			writeError(w, m.log, http.StatusUnauthorized, "teacher or admin login required", nil)
			return
		}
		ctx := context.WithValue(r.Context(), StaffContextKey, ref)
		next(w, r.WithContext(ctx))
	}
}

// resolve reads the session cookie and falls back to the remember-me
// cookie. A valid remember token never writes session state directly;
// the principal is re-verified against the database and re-established
// through the session manager like any fresh login.
func (m *Middleware) resolve(w http.ResponseWriter, r *http.Request, kind models.PrincipalKind) *models.PrincipalRef {
	var token string
	if cookie, err := r.Cookie(security.SessionCookieName); err == nil {
		token = cookie.Value
	}

	if token != "" {
		ref, err := m.sessions.CurrentPrincipal(token, kind)
		if err != nil {
			m.log.Warn("session lookup failed", zap.Error(err))
			return nil
		}
		if ref != nil {
			return ref
		}
	}

	return m.restoreFromRemember(w, r, token, kind)
}

func (m *Middleware) restoreFromRemember(w http.ResponseWriter, r *http.Request, token string, kind models.PrincipalKind) *models.PrincipalRef {
	if m.cfg.RememberSecret == "" {
		return nil
	}
	cookie, err := r.Cookie(security.RememberCookieName)
	if err != nil {
		return nil
	}

	tokenKind, principalID, err := security.ParseRememberToken(m.cfg.RememberSecret, cookie.Value)
	if err != nil || tokenKind != kind {
		return nil
	}

	principal, err := m.principals.GetByID(kind, principalID)
	if err != nil || principal == nil {
		return nil
	}
	// Account gates are re-checked on every restoration: a token issued
	// before a teacher was rejected must stop working.
	switch kind {
	case models.KindStudent:
		if !principal.EmailVerified {
			return nil
		}
	case models.KindTeacher:
		if principal.Status != models.TeacherApproved {
			return nil
		}
	default:
		return nil
	}

	newToken, err := m.sessions.Establish(token, kind, principal)
	if err != nil {
		m.log.Warn("failed to restore session from remember token", zap.Error(err))
		return nil
	}
	http.SetCookie(w, security.CreateSessionCookie(r, security.SessionCookieName, newToken,
		time.Now().Add(m.cfg.SessionDuration)))

	m.log.Info("session restored from remember token",
		zap.String("kind", string(kind)),
		zap.Int64("principal_id", principalID))
	return &models.PrincipalRef{ID: principal.ID, Kind: kind, Name: principal.Name}
}

// RateLimit throttles requests by client IP. Used on the login endpoints.
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := security.GetClientIP(r)
		if !m.limiter.Allow(ip) {
			writeError(w, m.log, http.StatusTooManyRequests, "too many requests", nil)
			return
		}
		next(w, r)
	}
}

// Logging middleware logs HTTP requests
func (m *Middleware) Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		m.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)))
	})
}

func studentFrom(r *http.Request) *models.PrincipalRef {
	ref, _ := r.Context().Value(StudentContextKey).(*models.PrincipalRef)
	return ref
}

func staffFrom(r *http.Request) *models.PrincipalRef {
	ref, _ := r.Context().Value(StaffContextKey).(*models.PrincipalRef)
	return ref
}
