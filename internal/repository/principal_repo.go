package repository

import (
	"database/sql"
	"fmt"
	"time"

	"eduportal/internal/database"
	"eduportal/internal/models"
)

// PrincipalRepository handles database operations for students, teachers
// and admins. Each kind lives in its own table; the repository presents
// them through the unified Principal model.
type PrincipalRepository struct {
	db *database.DB
}

// NewPrincipalRepository creates a new principal repository
func NewPrincipalRepository(db *database.DB) *PrincipalRepository {
	return &PrincipalRepository{db: db}
}

func tableFor(kind models.PrincipalKind) (string, error) {
	switch kind {
	case models.KindStudent:
		return "students", nil
	case models.KindTeacher:
		return "teachers", nil
	case models.KindAdmin:
		return "admins", nil
	}
	return "", fmt.Errorf("unknown principal kind: %q", kind)
}

// GetByEmail retrieves a principal of the given kind by email address.
// Returns (nil, nil) when no such principal exists.
func (r *PrincipalRepository) GetByEmail(kind models.PrincipalKind, email string) (*models.Principal, error) {
	return r.getByField(kind, "email", email)
}

// GetByID retrieves a principal of the given kind by ID.
// Returns (nil, nil) when no such principal exists.
func (r *PrincipalRepository) GetByID(kind models.PrincipalKind, id int64) (*models.Principal, error) {
	return r.getByField(kind, "id", id)
}

func (r *PrincipalRepository) getByField(kind models.PrincipalKind, field string, value interface{}) (*models.Principal, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	var query string
	switch kind {
	case models.KindStudent:
		query = `
			SELECT id, name, email, password_hash, email_verified, last_login, created_at
			FROM students
			WHERE ` + field + ` = ?
		`
	case models.KindTeacher:
		query = `
			SELECT id, name, email, password_hash, status, last_login, created_at
			FROM teachers
			WHERE ` + field + ` = ?
		`
	default:
		query = `
			SELECT id, name, email, password_hash, last_login, created_at
			FROM ` + table + `
			WHERE ` + field + ` = ?
		`
	}

	p := &models.Principal{Kind: kind}
	var lastLogin sql.NullTime

	row := r.db.QueryRow(query, value)
	switch kind {
	case models.KindStudent:
		err = row.Scan(&p.ID, &p.Name, &p.Email, &p.PasswordHash, &p.EmailVerified, &lastLogin, &p.CreatedAt)
	case models.KindTeacher:
		err = row.Scan(&p.ID, &p.Name, &p.Email, &p.PasswordHash, &p.Status, &lastLogin, &p.CreatedAt)
	default:
		err = row.Scan(&p.ID, &p.Name, &p.Email, &p.PasswordHash, &lastLogin, &p.CreatedAt)
	}

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", kind, err)
	}

	if lastLogin.Valid {
		p.LastLogin = &lastLogin.Time
	}
	return p, nil
}

// TouchLastLogin updates a principal's last-login timestamp
func (r *PrincipalRepository) TouchLastLogin(kind models.PrincipalKind, id int64) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	query := "UPDATE " + table + " SET last_login = ? WHERE id = ?"
	if _, err := r.db.Exec(query, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

// CreateStudent inserts a new, unverified student
func (r *PrincipalRepository) CreateStudent(name, email, passwordHash string) (*models.Principal, error) {
	query := `
		INSERT INTO students (name, email, password_hash, email_verified)
		VALUES (?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, name, email, passwordHash, false)
	if err != nil {
		return nil, fmt.Errorf("failed to create student: %w", err)
	}
	return r.GetByID(models.KindStudent, id)
}

// CreateTeacher inserts a new teacher application in pending state
func (r *PrincipalRepository) CreateTeacher(name, email, passwordHash string) (*models.Principal, error) {
	query := `
		INSERT INTO teachers (name, email, password_hash, status)
		VALUES (?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, name, email, passwordHash, models.TeacherPending)
	if err != nil {
		return nil, fmt.Errorf("failed to create teacher: %w", err)
	}
	return r.GetByID(models.KindTeacher, id)
}

// CreateAdmin inserts a provisioned admin
func (r *PrincipalRepository) CreateAdmin(name, email, passwordHash string) (*models.Principal, error) {
	query := `
		INSERT INTO admins (name, email, password_hash)
		VALUES (?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, name, email, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}
	return r.GetByID(models.KindAdmin, id)
}

// VerifyStudentEmail marks a student's email address as verified
func (r *PrincipalRepository) VerifyStudentEmail(id int64) error {
	query := "UPDATE students SET email_verified = ? WHERE id = ?"
	if _, err := r.db.Exec(query, true, id); err != nil {
		return fmt.Errorf("failed to verify student email: %w", err)
	}
	return nil
}

// SetTeacherStatus moves a teacher application to the given approval state
func (r *PrincipalRepository) SetTeacherStatus(id int64, status string) error {
	query := "UPDATE teachers SET status = ? WHERE id = ?"
	if _, err := r.db.Exec(query, status, id); err != nil {
		return fmt.Errorf("failed to set teacher status: %w", err)
	}
	return nil
}
