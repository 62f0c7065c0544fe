package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eduportal/internal/models"
)

func TestStartAttempt(t *testing.T) {
	db := newTestDB(t)
	svc := newAttemptService(db)
	student := seedStudent(t, db, "Ada", uniqueEmail(t), true)
	quizID := seedQuiz(t, db, "alpha", "beta", "gamma")

	attempt, err := svc.Start(student.ID, quizID)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptInProgress, attempt.Status)
	assert.Equal(t, 3, attempt.TotalQuestions)
	assert.Zero(t, attempt.Score)
	assert.Nil(t, attempt.CompletedAt)

	t.Run("duplicate start is rejected", func(t *testing.T) {
		_, err := svc.Start(student.ID, quizID)
		assert.ErrorIs(t, err, ErrAlreadyInProgress)
	})

	t.Run("other quiz is independent", func(t *testing.T) {
		otherQuiz := seedQuiz(t, db, "delta")
		_, err := svc.Start(student.ID, otherQuiz)
		assert.NoError(t, err)
	})

	t.Run("other student is independent", func(t *testing.T) {
		other := seedStudent(t, db, "Beth", uniqueEmail(t), true)
		_, err := svc.Start(other.ID, quizID)
		assert.NoError(t, err)
	})

	t.Run("unknown quiz", func(t *testing.T) {
		_, err := svc.Start(student.ID, 99999)
		assert.ErrorIs(t, err, ErrQuizNotFound)
	})
}

func TestRecordAnswerGrades(t *testing.T) {
	db := newTestDB(t)
	svc := newAttemptService(db)
	student := seedStudent(t, db, "Ada", uniqueEmail(t), true)
	quizID := seedQuiz(t, db, "Paris", "blue")
	questions := questionIDs(t, db, quizID)

	attempt, err := svc.Start(student.ID, quizID)
	require.NoError(t, err)

	tests := []struct {
		name        string
		questionID  int64
		value       string
		wantCorrect bool
	}{
		{"exact match", questions[0], "Paris", true},
		{"case and whitespace normalized", questions[1], "  BLUE ", true},
		{"wrong answer", questions[0], "London", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answer, err := svc.RecordAnswer(student.ID, attempt.ID, tt.questionID, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCorrect, answer.IsCorrect)
		})
	}

	t.Run("question from another quiz", func(t *testing.T) {
		otherQuiz := seedQuiz(t, db, "other")
		otherQuestion := questionIDs(t, db, otherQuiz)[0]
		_, err := svc.RecordAnswer(student.ID, attempt.ID, otherQuestion, "other")
		assert.ErrorIs(t, err, ErrQuestionNotInQuiz)
	})

	t.Run("not the owner", func(t *testing.T) {
		other := seedStudent(t, db, "Beth", uniqueEmail(t), true)
		_, err := svc.RecordAnswer(other.ID, attempt.ID, questions[0], "Paris")
		assert.ErrorIs(t, err, ErrAttemptNotFound)
	})
}

func TestCompleteAttempt(t *testing.T) {
	db := newTestDB(t)
	svc := newAttemptService(db)
	student := seedStudent(t, db, "Ada", uniqueEmail(t), true)
	quizID := seedQuiz(t, db, "alpha", "beta")
	questions := questionIDs(t, db, quizID)

	attempt, err := svc.Start(student.ID, quizID)
	require.NoError(t, err)

	_, err = svc.RecordAnswer(student.ID, attempt.ID, questions[0], "alpha")
	require.NoError(t, err)
	_, err = svc.RecordAnswer(student.ID, attempt.ID, questions[1], "wrong")
	require.NoError(t, err)

	// The claimed score is a hint; the stored score comes from the
	// recorded answers.
	done, err := svc.Complete(student.ID, attempt.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptCompleted, done.Status)
	assert.Equal(t, 1, done.Score)
	require.NotNil(t, done.CompletedAt)

	t.Run("second completion loses", func(t *testing.T) {
		_, err := svc.Complete(student.ID, attempt.ID, 1)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("answers after completion are rejected", func(t *testing.T) {
		_, err := svc.RecordAnswer(student.ID, attempt.ID, questions[0], "alpha")
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("completed attempt frees the uniqueness slot", func(t *testing.T) {
		_, err := svc.Start(student.ID, quizID)
		assert.NoError(t, err)
	})
}

func TestResubmittedAnswerDoesNotInflateScore(t *testing.T) {
	db := newTestDB(t)
	svc := newAttemptService(db)
	student := seedStudent(t, db, "Ada", uniqueEmail(t), true)
	quizID := seedQuiz(t, db, "alpha")
	question := questionIDs(t, db, quizID)[0]

	attempt, err := svc.Start(student.ID, quizID)
	require.NoError(t, err)

	// Hammering the same correct answer must not mint extra rows.
	for i := 0; i < 3; i++ {
		_, err := svc.RecordAnswer(student.ID, attempt.ID, question, "alpha")
		require.NoError(t, err)
	}

	var rows int
	require.NoError(t, db.QueryRow(
		"SELECT COUNT(*) FROM attempt_answers WHERE attempt_id = ?", attempt.ID).Scan(&rows))
	assert.Equal(t, 1, rows)

	done, err := svc.Complete(student.ID, attempt.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, done.Score)
	assert.Equal(t, 1, done.TotalQuestions)
}

func TestResubmissionReplacesEarlierAnswer(t *testing.T) {
	db := newTestDB(t)
	svc := newAttemptService(db)
	student := seedStudent(t, db, "Ada", uniqueEmail(t), true)
	quizID := seedQuiz(t, db, "alpha")
	question := questionIDs(t, db, quizID)[0]

	attempt, err := svc.Start(student.ID, quizID)
	require.NoError(t, err)

	wrong, err := svc.RecordAnswer(student.ID, attempt.ID, question, "nope")
	require.NoError(t, err)
	assert.False(t, wrong.IsCorrect)

	corrected, err := svc.RecordAnswer(student.ID, attempt.ID, question, "alpha")
	require.NoError(t, err)
	assert.True(t, corrected.IsCorrect)
	assert.Equal(t, wrong.ID, corrected.ID)

	done, err := svc.Complete(student.ID, attempt.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, done.Score)
}

func TestAttemptServiceReportsStoreUnavailable(t *testing.T) {
	db := newTestDB(t)
	svc := newAttemptService(db)
	student := seedStudent(t, db, "Ada", uniqueEmail(t), true)
	quizID := seedQuiz(t, db, "alpha")

	require.NoError(t, db.Close())

	_, err := svc.Start(student.ID, quizID)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestCompleteRequiresAnswers(t *testing.T) {
	db := newTestDB(t)
	svc := newAttemptService(db)
	student := seedStudent(t, db, "Ada", uniqueEmail(t), true)
	quizID := seedQuiz(t, db, "alpha")

	attempt, err := svc.Start(student.ID, quizID)
	require.NoError(t, err)

	_, err = svc.Complete(student.ID, attempt.ID, 0)
	assert.ErrorIs(t, err, ErrNoAnswersRecorded)

	// Still open; the failed completion changed nothing.
	current, err := svc.Get(student.ID, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptInProgress, current.Status)
}

func TestForceAbandon(t *testing.T) {
	db := newTestDB(t)
	svc := newAttemptService(db)
	student := seedStudent(t, db, "Ada", uniqueEmail(t), true)
	quizID := seedQuiz(t, db, "alpha")

	attempt, err := svc.Start(student.ID, quizID)
	require.NoError(t, err)

	require.NoError(t, svc.ForceAbandon(attempt.ID))

	current, err := svc.Get(student.ID, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptAbandoned, current.Status)
	assert.NotNil(t, current.CompletedAt)

	t.Run("abandoning twice fails", func(t *testing.T) {
		assert.ErrorIs(t, svc.ForceAbandon(attempt.ID), ErrInvalidState)
	})

	t.Run("student may start again", func(t *testing.T) {
		_, err := svc.Start(student.ID, quizID)
		assert.NoError(t, err)
	})
}

func TestAbandonAllForStudent(t *testing.T) {
	db := newTestDB(t)
	svc := newAttemptService(db)
	student := seedStudent(t, db, "Ada", uniqueEmail(t), true)
	other := seedStudent(t, db, "Beth", uniqueEmail(t), true)
	quizA := seedQuiz(t, db, "alpha")
	quizB := seedQuiz(t, db, "beta")

	openA, err := svc.Start(student.ID, quizA)
	require.NoError(t, err)
	openB, err := svc.Start(student.ID, quizB)
	require.NoError(t, err)
	otherOpen, err := svc.Start(other.ID, quizA)
	require.NoError(t, err)

	ids, err := svc.AbandonAllForStudent(student.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{openA.ID, openB.ID}, ids)

	// The other student's attempt is untouched.
	current, err := svc.Get(other.ID, otherOpen.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptInProgress, current.Status)

	t.Run("idempotent", func(t *testing.T) {
		ids, err := svc.AbandonAllForStudent(student.ID)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}
