package service

import (
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"eduportal/internal/models"
	"eduportal/internal/repository"
	"eduportal/internal/security"
)

// TeardownOutcome reports what a teardown actually did. A misrouted call
// (tearing down a kind that is not present while another is) is an
// outcome, not an error: the caller redirects, nothing is destroyed.
type TeardownOutcome struct {
	RedirectTo models.PrincipalKind // set when the call was misrouted
	Survivor   models.PrincipalKind // kind still present afterwards, if any
	Destroyed  bool                 // session row removed entirely
}

// SessionManager mediates every write to the session store so that at
// most one student and one teacher sub-session exist at a time and
// tearing one down never disturbs the other.
type SessionManager struct {
	sessions *repository.SessionRepository
	attempts *AttemptService
	duration time.Duration
	log      *zap.Logger
}

// NewSessionManager creates a new session manager
func NewSessionManager(sessions *repository.SessionRepository, attempts *AttemptService, duration time.Duration, log *zap.Logger) *SessionManager {
	return &SessionManager{
		sessions: sessions,
		attempts: attempts,
		duration: duration,
		log:      log,
	}
}

// Establish installs a principal's sub-session, overwriting any previous
// sub-session of the same kind and leaving the other kind untouched.
// Pass an empty token for a fresh login without an existing session.
// Returns the (possibly newly minted) session token.
func (m *SessionManager) Establish(token string, kind models.PrincipalKind, principal *models.Principal) (string, error) {
	attrs, err := subSessionFor(kind, principal)
	if err != nil {
		return "", err
	}

	if token == "" {
		token = security.GenerateSessionToken()
	} else {
		// A stale or forged token must not resurrect a dead session.
		rec, err := m.getSession(token)
		if err != nil {
			return "", err
		}
		if rec == nil || rec.IsExpired() {
			token = security.GenerateSessionToken()
		}
	}

	expiresAt := time.Now().Add(m.duration).UTC()
	err = m.retryOnce(func() error {
		return m.sessions.InstallSubSession(token, expiresAt, models.SubSessionAttrs(kind), attrs)
	})
	if err != nil {
		return "", err
	}

	m.log.Info("sub-session established",
		zap.String("kind", string(kind)),
		zap.Int64("principal_id", principal.ID))
	return token, nil
}

// Teardown removes one kind's sub-session. It first classifies which
// kinds are actually present: a teacher-logout request against a
// session that only holds a student (or vice versa) must never destroy
// the other principal's session, so it becomes a redirect outcome. When
// the kind is present the whole store is cleared and the other kinds'
// attributes rewritten in one transaction; if nothing survives the
// session itself is destroyed. Tearing down a student force-abandons
// that student's open quiz attempts.
func (m *SessionManager) Teardown(token string, kind models.PrincipalKind) (*TeardownOutcome, error) {
	rec, err := m.getSession(token)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		// Already logged out everywhere.
		return &TeardownOutcome{Destroyed: true}, nil
	}

	if !rec.Has(kind) {
		present := rec.PresentKinds()
		if len(present) > 0 {
			return &TeardownOutcome{RedirectTo: present[0], Survivor: present[0]}, nil
		}
		// Empty shell; destroy it outright.
		if err := m.retryOnce(func() error { return m.sessions.Destroy(token) }); err != nil {
			return nil, err
		}
		return &TeardownOutcome{Destroyed: true}, nil
	}

	var studentID int64
	if kind == models.KindStudent {
		studentID = parseID(rec.Attributes[models.AttrStudentID])
	}

	// The keep-set is computed inside the teardown transaction, not from
	// rec: a sub-session of another kind committed since the read above
	// must survive.
	var keep map[string]string
	var destroyed bool
	err = m.retryOnce(func() error {
		var err error
		keep, destroyed, err = m.sessions.ClearAndRestore(token, models.SubSessionAttrs(kind))
		return err
	})
	if err != nil {
		return nil, err
	}

	outcome := &TeardownOutcome{Destroyed: destroyed}
	if !destroyed {
		survivor := &models.SessionRecord{Attributes: keep}
		if kinds := survivor.PresentKinds(); len(kinds) > 0 {
			outcome.Survivor = kinds[0]
		}
	}

	if studentID > 0 {
		m.abandonOpenAttempts(studentID)
	}

	m.log.Info("sub-session torn down",
		zap.String("kind", string(kind)),
		zap.Bool("destroyed", destroyed))
	return outcome, nil
}

// CurrentPrincipal is a pure read of the sub-session of the given kind.
// Returns nil when absent or the session has expired.
func (m *SessionManager) CurrentPrincipal(token string, kind models.PrincipalKind) (*models.PrincipalRef, error) {
	if token == "" {
		return nil, nil
	}
	rec, err := m.getSession(token)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.IsExpired() || !rec.Has(kind) {
		return nil, nil
	}

	ref := &models.PrincipalRef{Kind: kind}
	switch kind {
	case models.KindStudent:
		ref.ID = parseID(rec.Attributes[models.AttrStudentID])
		ref.Name = rec.Attributes[models.AttrStudentName]
	case models.KindTeacher:
		ref.ID = parseID(rec.Attributes[models.AttrTeacherID])
		ref.Name = rec.Attributes[models.AttrTeacherName]
	case models.KindAdmin:
		ref.ID = parseID(rec.Attributes[models.AttrAdminID])
		ref.Name = rec.Attributes[models.AttrAdminName]
	}
	if ref.ID <= 0 {
		return nil, nil
	}
	return ref, nil
}

// CleanupExpired destroys expired sessions, abandoning open attempts of
// any student sub-session they held. Run from a background ticker.
func (m *SessionManager) CleanupExpired() error {
	tokens, err := m.sessions.ExpiredTokens()
	if err != nil {
		return fmt.Errorf("failed to list expired sessions: %w", err)
	}

	for _, token := range tokens {
		rec, err := m.sessions.Get(token)
		if err != nil {
			m.log.Warn("failed to load expired session", zap.Error(err))
			continue
		}
		if rec != nil && rec.HasStudent() {
			m.abandonOpenAttempts(parseID(rec.Attributes[models.AttrStudentID]))
		}
		if err := m.sessions.Destroy(token); err != nil {
			m.log.Warn("failed to destroy expired session", zap.Error(err))
		}
	}

	if len(tokens) > 0 {
		m.log.Info("expired sessions cleaned up", zap.Int("count", len(tokens)))
	}
	return nil
}

// abandonOpenAttempts is best-effort: individual failures are logged and
// the teardown proceeds.
func (m *SessionManager) abandonOpenAttempts(studentID int64) {
	if studentID <= 0 {
		return
	}
	ids, err := m.attempts.AbandonAllForStudent(studentID)
	if err != nil {
		m.log.Warn("failed to abandon open attempts on teardown",
			zap.Int64("student_id", studentID),
			zap.Error(err))
		return
	}
	if len(ids) > 0 {
		m.log.Info("open attempts abandoned on teardown",
			zap.Int64("student_id", studentID),
			zap.Int64s("attempt_ids", ids))
	}
}

func (m *SessionManager) getSession(token string) (*models.SessionRecord, error) {
	var rec *models.SessionRecord
	err := m.retryOnce(func() error {
		var err error
		rec, err = m.sessions.Get(token)
		return err
	})
	return rec, err
}

func (m *SessionManager) retryOnce(op func() error) error {
	return retryOnce(m.log, op)
}

func subSessionFor(kind models.PrincipalKind, principal *models.Principal) (map[string]string, error) {
	id := strconv.FormatInt(principal.ID, 10)
	switch kind {
	case models.KindStudent:
		return map[string]string{
			models.AttrStudentID:   id,
			models.AttrStudentName: principal.Name,
		}, nil
	case models.KindTeacher:
		return map[string]string{
			models.AttrTeacherID:   id,
			models.AttrTeacherName: principal.Name,
			models.AttrRole:        models.RoleTeacher,
		}, nil
	case models.KindAdmin:
		return map[string]string{
			models.AttrAdminID:   id,
			models.AttrAdminName: principal.Name,
		}, nil
	}
	return nil, fmt.Errorf("cannot establish session for kind %q", kind)
}

func parseID(s string) int64 {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
