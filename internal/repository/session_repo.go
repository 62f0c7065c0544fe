package repository

import (
	"database/sql"
	"fmt"
	"time"

	"eduportal/internal/database"
	"eduportal/internal/models"
)

// SessionRepository is the attribute-map session store. A session is a
// token row plus zero or more (name, value) attribute rows. The store
// itself knows nothing about principals; the session manager is the only
// caller allowed to interpret attribute names.
type SessionRepository struct {
	db *database.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Get retrieves a session and its full attribute map.
// Returns (nil, nil) when the token is unknown.
func (r *SessionRepository) Get(token string) (*models.SessionRecord, error) {
	query := `
		SELECT token, created_at, expires_at
		FROM sessions
		WHERE token = ?
	`
	rec := &models.SessionRecord{Attributes: make(map[string]string)}
	err := r.db.QueryRow(query, token).Scan(&rec.Token, &rec.CreatedAt, &rec.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	rows, err := r.db.Query(
		"SELECT name, value FROM session_attributes WHERE session_token = ?", token)
	if err != nil {
		return nil, fmt.Errorf("failed to load session attributes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan session attribute: %w", err)
		}
		rec.Attributes[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read session attributes: %w", err)
	}

	return rec, nil
}

// InstallSubSession writes one kind's attributes in a single transaction,
// creating the session row if needed. Only the owned attribute names are
// replaced; everything else in the store is left untouched.
func (r *SessionRepository) InstallSubSession(token string, expiresAt time.Time, ownedNames []string, attrs map[string]string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin session write: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRow("SELECT COUNT(*) FROM sessions WHERE token = ?", token).Scan(&count); err != nil {
		return fmt.Errorf("failed to check session: %w", err)
	}
	if count == 0 {
		_, err := tx.Exec(
			"INSERT INTO sessions (token, created_at, expires_at) VALUES (?, ?, ?)",
			token, time.Now().UTC(), expiresAt)
		if err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
	} else {
		// Every login extends the shared session; without this a fresh
		// sub-session would inherit the expiry of a near-dead one.
		_, err := tx.Exec(
			"UPDATE sessions SET expires_at = ? WHERE token = ?", expiresAt, token)
		if err != nil {
			return fmt.Errorf("failed to refresh session expiry: %w", err)
		}
	}

	for _, name := range ownedNames {
		if _, err := tx.Exec(
			"DELETE FROM session_attributes WHERE session_token = ? AND name = ?", token, name); err != nil {
			return fmt.Errorf("failed to clear session attribute: %w", err)
		}
	}
	for name, value := range attrs {
		if _, err := tx.Exec(
			"INSERT INTO session_attributes (session_token, name, value) VALUES (?, ?, ?)",
			token, name, value); err != nil {
			return fmt.Errorf("failed to write session attribute: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session write: %w", err)
	}
	return nil
}

// ClearAndRestore empties the whole attribute map and rewrites every
// attribute not named in drop, all inside one transaction. The keep-set
// is computed from a re-read under the same transaction, so a
// sub-session committed after the caller's last look at the session
// survives the teardown instead of being erased by a stale snapshot.
// Clearing everything and restoring the holding set guarantees no stray
// attribute of the torn-down kind survives. When nothing remains the
// session row itself is destroyed rather than left as an empty shell.
// Returns the surviving attributes and whether the session was destroyed.
func (r *SessionRepository) ClearAndRestore(token string, drop []string) (map[string]string, bool, error) {
	dropped := make(map[string]bool, len(drop))
	for _, name := range drop {
		dropped[name] = true
	}

	tx, err := r.db.Begin()
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin session teardown: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(
		"SELECT name, value FROM session_attributes WHERE session_token = ?", token)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read session attributes: %w", err)
	}
	keep := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			rows.Close()
			return nil, false, fmt.Errorf("failed to scan session attribute: %w", err)
		}
		if !dropped[name] {
			keep[name] = value
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, false, fmt.Errorf("failed to read session attributes: %w", err)
	}
	rows.Close()

	if _, err := tx.Exec(
		"DELETE FROM session_attributes WHERE session_token = ?", token); err != nil {
		return nil, false, fmt.Errorf("failed to clear session attributes: %w", err)
	}

	destroyed := len(keep) == 0
	if destroyed {
		if _, err := tx.Exec("DELETE FROM sessions WHERE token = ?", token); err != nil {
			return nil, false, fmt.Errorf("failed to destroy session: %w", err)
		}
	} else {
		for name, value := range keep {
			if _, err := tx.Exec(
				"INSERT INTO session_attributes (session_token, name, value) VALUES (?, ?, ?)",
				token, name, value); err != nil {
				return nil, false, fmt.Errorf("failed to restore session attribute: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit session teardown: %w", err)
	}
	return keep, destroyed, nil
}

// Destroy removes a session and all its attributes
func (r *SessionRepository) Destroy(token string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin session destroy: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM session_attributes WHERE session_token = ?", token); err != nil {
		return fmt.Errorf("failed to delete session attributes: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM sessions WHERE token = ?", token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session destroy: %w", err)
	}
	return nil
}

// ExpiredTokens lists sessions past their expiry
func (r *SessionRepository) ExpiredTokens() ([]string, error) {
	rows, err := r.db.Query("SELECT token FROM sessions WHERE expires_at < ?", time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list expired sessions: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("failed to scan expired session: %w", err)
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}
