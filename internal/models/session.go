package models

import "time"

// Session attribute names. The store itself has no notion of "one user";
// these names are the only contract that carves it into sub-sessions.
const (
	AttrStudentID   = "student_id"
	AttrStudentName = "student_name"
	AttrTeacherID   = "teacher_id"
	AttrTeacherName = "teacher_name"
	AttrAdminID     = "admin_id"
	AttrAdminName   = "admin_name"
	AttrRole        = "role"

	RoleTeacher = "teacher"
)

// PrincipalRef is the session-resident reference to a logged-in principal
type PrincipalRef struct {
	ID   int64         `json:"id"`
	Kind PrincipalKind `json:"kind"`
	Name string        `json:"name"`
}

// SessionRecord is one physical session: an opaque token plus a flat
// attribute map that may hold a student sub-session, a teacher
// sub-session, both, or neither.
type SessionRecord struct {
	Token      string
	Attributes map[string]string
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// IsExpired checks if the session has expired
func (s *SessionRecord) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// HasStudent reports whether a student sub-session is present: a student
// identity attribute with no teacher principal-kind override on it.
func (s *SessionRecord) HasStudent() bool {
	return s.Attributes[AttrStudentID] != ""
}

// HasTeacher reports whether a teacher sub-session is present: a teacher
// identity attribute together with the explicit role marker.
func (s *SessionRecord) HasTeacher() bool {
	return s.Attributes[AttrTeacherID] != "" && s.Attributes[AttrRole] == RoleTeacher
}

// HasAdmin reports whether an admin sub-session is present
func (s *SessionRecord) HasAdmin() bool {
	return s.Attributes[AttrAdminID] != ""
}

// Has reports sub-session presence for a kind
func (s *SessionRecord) Has(kind PrincipalKind) bool {
	switch kind {
	case KindStudent:
		return s.HasStudent()
	case KindTeacher:
		return s.HasTeacher()
	case KindAdmin:
		return s.HasAdmin()
	}
	return false
}

// PresentKinds lists the kinds with a live sub-session, student first
func (s *SessionRecord) PresentKinds() []PrincipalKind {
	var kinds []PrincipalKind
	if s.HasStudent() {
		kinds = append(kinds, KindStudent)
	}
	if s.HasTeacher() {
		kinds = append(kinds, KindTeacher)
	}
	if s.HasAdmin() {
		kinds = append(kinds, KindAdmin)
	}
	return kinds
}

// SubSession returns the subset of attributes belonging to one kind
func (s *SessionRecord) SubSession(kind PrincipalKind) map[string]string {
	out := make(map[string]string)
	for _, name := range SubSessionAttrs(kind) {
		if v, ok := s.Attributes[name]; ok {
			out[name] = v
		}
	}
	return out
}

// SubSessionAttrs lists the attribute names owned by a kind
func SubSessionAttrs(kind PrincipalKind) []string {
	switch kind {
	case KindStudent:
		return []string{AttrStudentID, AttrStudentName}
	case KindTeacher:
		return []string{AttrTeacherID, AttrTeacherName, AttrRole}
	case KindAdmin:
		return []string{AttrAdminID, AttrAdminName}
	}
	return nil
}
