package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"eduportal/internal/database"
	"eduportal/internal/models"
	"eduportal/internal/repository"
)

// completeLegitimately runs a full start-answer-complete cycle and
// returns the attempt ID.
func completeLegitimately(t *testing.T, db *database.DB, studentID, quizID int64) int64 {
	t.Helper()
	svc := newAttemptService(db)

	attempt, err := svc.Start(studentID, quizID)
	require.NoError(t, err)
	for _, q := range questionIDs(t, db, quizID) {
		_, err := svc.RecordAnswer(studentID, attempt.ID, q, "alpha")
		require.NoError(t, err)
	}
	_, err = svc.Complete(studentID, attempt.ID, 0)
	require.NoError(t, err)
	return attempt.ID
}

func TestSweepRepairsInconsistentCompletions(t *testing.T) {
	db := newTestDB(t)
	sweeper := NewSweeper(repository.NewAttemptRepository(db), zap.NewNop())

	student := seedStudent(t, db, "Ada", uniqueEmail(t), true)
	quizID := seedQuiz(t, db, "alpha", "beta")

	consistentID := completeLegitimately(t, db, student.ID, quizID)

	// A row that claims completion but has no answers behind it, as a
	// crashed writer or a bad import would leave it.
	orphanID, err := db.ExecReturningID(`
		INSERT INTO attempts (student_id, quiz_id, status, score, total_questions, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		student.ID, quizID, models.AttemptCompleted, 2, 2, time.Now().UTC(), time.Now().UTC())
	require.NoError(t, err)

	// A completed row whose stored score contradicts its answers.
	other := seedStudent(t, db, "Beth", uniqueEmail(t), true)
	mismatchID := completeLegitimately(t, db, other.ID, quizID)
	_, err = db.Exec("UPDATE attempts SET score = 99 WHERE id = ?", mismatchID)
	require.NoError(t, err)

	// A completed row missing its completion timestamp.
	third := seedStudent(t, db, "Cho", uniqueEmail(t), true)
	noStampID := completeLegitimately(t, db, third.ID, quizID)
	_, err = db.Exec("UPDATE attempts SET completed_at = NULL WHERE id = ?", noStampID)
	require.NoError(t, err)

	report, err := sweeper.Run(0)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Examined)
	assert.Equal(t, 3, report.Repaired)
	assert.ElementsMatch(t, []int64{orphanID, mismatchID, noStampID}, report.RepairedIDs)

	for _, id := range report.RepairedIDs {
		var status string
		require.NoError(t, db.QueryRow("SELECT status FROM attempts WHERE id = ?", id).Scan(&status))
		assert.Equal(t, models.AttemptAbandoned, status)
	}

	var status string
	require.NoError(t, db.QueryRow("SELECT status FROM attempts WHERE id = ?", consistentID).Scan(&status))
	assert.Equal(t, models.AttemptCompleted, status)

	t.Run("second run repairs nothing", func(t *testing.T) {
		report, err := sweeper.Run(0)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Examined) // only the consistent one is still completed
		assert.Zero(t, report.Repaired)
		assert.Empty(t, report.RepairedIDs)
	})
}

func TestSweepLeavesOpenAttemptsAlone(t *testing.T) {
	db := newTestDB(t)
	sweeper := NewSweeper(repository.NewAttemptRepository(db), zap.NewNop())
	svc := newAttemptService(db)

	student := seedStudent(t, db, "Ada", uniqueEmail(t), true)
	quizID := seedQuiz(t, db, "alpha")

	open, err := svc.Start(student.ID, quizID)
	require.NoError(t, err)

	report, err := sweeper.Run(0)
	require.NoError(t, err)
	assert.Zero(t, report.Examined)
	assert.Zero(t, report.Repaired)

	current, err := svc.Get(student.ID, open.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptInProgress, current.Status)
}

func TestSweepQuizFilter(t *testing.T) {
	db := newTestDB(t)
	sweeper := NewSweeper(repository.NewAttemptRepository(db), zap.NewNop())

	student := seedStudent(t, db, "Ada", uniqueEmail(t), true)
	quizA := seedQuiz(t, db, "alpha")
	quizB := seedQuiz(t, db, "beta")

	brokenA := completeLegitimately(t, db, student.ID, quizA)
	brokenB := completeLegitimately(t, db, student.ID, quizB)
	_, err := db.Exec("UPDATE attempts SET score = 99 WHERE id IN (?, ?)", brokenA, brokenB)
	require.NoError(t, err)

	report, err := sweeper.Run(quizA)
	require.NoError(t, err)
	assert.Equal(t, []int64{brokenA}, report.RepairedIDs)

	// The other quiz's attempt was out of scope.
	var status string
	require.NoError(t, db.QueryRow("SELECT status FROM attempts WHERE id = ?", brokenB).Scan(&status))
	assert.Equal(t, models.AttemptCompleted, status)
}
