package security

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// SessionCookieName is the cookie carrying the opaque session token.
// One cookie serves both principal kinds; the attribute store behind it
// is what separates the sub-sessions.
const SessionCookieName = "session_token"

// RememberCookieName is the cookie carrying the persistent-login token
const RememberCookieName = "remember_token"

// GenerateSessionToken creates a new opaque token for session identification
func GenerateSessionToken() string {
	return uuid.New().String()
}

// IsSecureRequest determines if the request is over HTTPS.
// Checks TLS connection, X-Forwarded-Proto header (for reverse proxies), and URL scheme.
func IsSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "https" {
		return true
	}
	if r.URL.Scheme == "https" {
		return true
	}
	return false
}

// CreateSessionCookie creates a session cookie with proper security flags.
// The Secure flag is set based on the request scheme.
func CreateSessionCookie(r *http.Request, name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	}
}

// CreateDeleteCookie creates a cookie for deletion with proper security flags
func CreateDeleteCookie(r *http.Request, name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   IsSecureRequest(r),
	}
}
