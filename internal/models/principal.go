package models

import "time"

// PrincipalKind identifies which population a principal belongs to.
type PrincipalKind string

const (
	KindStudent PrincipalKind = "student"
	KindTeacher PrincipalKind = "teacher"
	KindAdmin   PrincipalKind = "admin"
	KindNone    PrincipalKind = ""
)

// Teacher approval states
const (
	TeacherPending  = "pending"
	TeacherApproved = "approved"
	TeacherRejected = "rejected"
)

// Principal represents an authenticated identity of a specific kind
type Principal struct {
	ID            int64
	Kind          PrincipalKind
	Name          string
	Email         string
	PasswordHash  string
	EmailVerified bool   // students only
	Status        string // teachers only: pending/approved/rejected
	LastLogin     *time.Time
	CreatedAt     time.Time
}

// Summary is the boundary-safe view of a principal (no credential material)
type Summary struct {
	ID    int64         `json:"id"`
	Kind  PrincipalKind `json:"kind"`
	Name  string        `json:"name"`
	Email string        `json:"email"`
}

// Summary strips credential fields for responses
func (p *Principal) Summary() Summary {
	return Summary{ID: p.ID, Kind: p.Kind, Name: p.Name, Email: p.Email}
}
