package service

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"eduportal/internal/models"
	"eduportal/internal/repository"
	"eduportal/internal/security"
	"eduportal/internal/validation"
)

var (
	// ErrInvalidCredentials covers both "no such identifier" and "wrong
	// secret" so a caller cannot tell which one occurred.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotVerified        = errors.New("email address not verified")
	ErrNotApproved        = errors.New("teacher account not approved")
)

// CredentialVerifier checks submitted credentials against stored
// salted-hash records. Stateless; the caller decides what to surface.
type CredentialVerifier struct {
	principals *repository.PrincipalRepository
	log        *zap.Logger
}

// NewCredentialVerifier creates a new credential verifier
func NewCredentialVerifier(principals *repository.PrincipalRepository, log *zap.Logger) *CredentialVerifier {
	return &CredentialVerifier{principals: principals, log: log}
}

// Verify authenticates an (identifier, secret) pair for a principal kind.
// On success the principal's last-login timestamp is updated best-effort.
func (v *CredentialVerifier) Verify(kind models.PrincipalKind, identifier, secret string) (*models.Principal, error) {
	if err := validation.ValidateEmail(identifier); err != nil {
		return nil, err
	}
	if err := validation.ValidateSecret(secret); err != nil {
		return nil, err
	}

	principal, err := v.principals.GetByEmail(kind, identifier)
	if err != nil {
		return nil, fmt.Errorf("failed to look up principal: %w", err)
	}
	if principal == nil {
		return nil, ErrInvalidCredentials
	}

	if !security.CheckSecret(secret, principal.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	switch kind {
	case models.KindStudent:
		if !principal.EmailVerified {
			return nil, ErrNotVerified
		}
	case models.KindTeacher:
		if principal.Status != models.TeacherApproved {
			return nil, ErrNotApproved
		}
	}

	// Best-effort; a failed timestamp update must not fail the login.
	if err := v.principals.TouchLastLogin(kind, principal.ID); err != nil {
		v.log.Warn("failed to update last login",
			zap.String("kind", string(kind)),
			zap.Int64("principal_id", principal.ID),
			zap.Error(err))
	}

	return principal, nil
}
