package service

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"eduportal/internal/database"
	"eduportal/internal/models"
	"eduportal/internal/repository"
	"eduportal/internal/security"
)

// newTestDB opens a throwaway SQLite database with the full schema applied.
func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.RunMigrations("../../migrations"))
	return db
}

func seedStudent(t *testing.T, db *database.DB, name, email string, verified bool) *models.Principal {
	t.Helper()

	hash, err := security.HashSecret("correct-horse1")
	require.NoError(t, err)

	repo := repository.NewPrincipalRepository(db)
	student, err := repo.CreateStudent(name, email, hash)
	require.NoError(t, err)
	if verified {
		require.NoError(t, repo.VerifyStudentEmail(student.ID))
		student, err = repo.GetByID(models.KindStudent, student.ID)
		require.NoError(t, err)
	}
	return student
}

func seedTeacher(t *testing.T, db *database.DB, name, email, status string) *models.Principal {
	t.Helper()

	hash, err := security.HashSecret("correct-horse1")
	require.NoError(t, err)

	repo := repository.NewPrincipalRepository(db)
	teacher, err := repo.CreateTeacher(name, email, hash)
	require.NoError(t, err)
	if status != models.TeacherPending {
		require.NoError(t, repo.SetTeacherStatus(teacher.ID, status))
		teacher, err = repo.GetByID(models.KindTeacher, teacher.ID)
		require.NoError(t, err)
	}
	return teacher
}

// seedQuiz creates a quiz owned by a fresh teacher with the given
// question prompts and answers. Returns the quiz ID.
func seedQuiz(t *testing.T, db *database.DB, answers ...string) int64 {
	t.Helper()

	teacher := seedTeacher(t, db, "Quiz Owner", uniqueEmail(t), models.TeacherApproved)
	quizID, err := db.ExecReturningID(
		"INSERT INTO quizzes (title, teacher_id) VALUES (?, ?)", "Test Quiz", teacher.ID)
	require.NoError(t, err)

	for i, answer := range answers {
		_, err := db.Exec(
			"INSERT INTO questions (quiz_id, prompt, correct_value) VALUES (?, ?, ?)",
			quizID, "question", answer)
		require.NoError(t, err, "question %d", i)
	}
	return quizID
}

// questionIDs lists a quiz's question IDs in insertion order.
func questionIDs(t *testing.T, db *database.DB, quizID int64) []int64 {
	t.Helper()

	rows, err := db.Query("SELECT id FROM questions WHERE quiz_id = ? ORDER BY id", quizID)
	require.NoError(t, err)
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	require.NoError(t, rows.Err())
	return ids
}

func uniqueEmail(t *testing.T) string {
	t.Helper()
	return "u" + security.GenerateSessionToken()[:8] + "@example.com"
}

func newAttemptService(db *database.DB) *AttemptService {
	return NewAttemptService(
		repository.NewAttemptRepository(db),
		repository.NewQuestionRepository(db),
		zap.NewNop())
}

func newSessionManager(db *database.DB, duration time.Duration) *SessionManager {
	return NewSessionManager(
		repository.NewSessionRepository(db),
		newAttemptService(db),
		duration,
		zap.NewNop())
}
