package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"eduportal/internal/database"
	"eduportal/internal/models"
)

// ErrActiveAttemptExists is returned when an insert collides with the
// uniqueness guarantee on (student, quiz, in_progress).
var ErrActiveAttemptExists = errors.New("student already has an in-progress attempt for this quiz")

// AttemptRepository handles quiz attempt database operations. All status
// transitions are single-row conditional updates so that concurrent
// writers cannot override a state the other path has already moved past.
type AttemptRepository struct {
	db *database.DB
}

// NewAttemptRepository creates a new attempt repository
func NewAttemptRepository(db *database.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// Create inserts a new in-progress attempt. The schema enforces at most
// one in-progress attempt per (student, quiz); a concurrent duplicate
// loses with ErrActiveAttemptExists.
func (r *AttemptRepository) Create(studentID, quizID int64, totalQuestions int) (*models.Attempt, error) {
	query := `
		INSERT INTO attempts (student_id, quiz_id, status, score, total_questions, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query,
		studentID, quizID, models.AttemptInProgress, 0, totalQuestions, time.Now().UTC())
	if err != nil {
		if r.db.IsUniqueViolation(err) {
			return nil, ErrActiveAttemptExists
		}
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}
	return r.GetByID(id)
}

// GetByID retrieves an attempt. Returns (nil, nil) when it does not exist.
func (r *AttemptRepository) GetByID(id int64) (*models.Attempt, error) {
	query := `
		SELECT id, student_id, quiz_id, status, score, total_questions, started_at, completed_at
		FROM attempts
		WHERE id = ?
	`
	return r.scanAttempt(r.db.QueryRow(query, id))
}

func (r *AttemptRepository) scanAttempt(row *sql.Row) (*models.Attempt, error) {
	a := &models.Attempt{}
	var completedAt sql.NullTime
	err := row.Scan(&a.ID, &a.StudentID, &a.QuizID, &a.Status, &a.Score,
		&a.TotalQuestions, &a.StartedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if completedAt.Valid {
		a.CompletedAt = &completedAt.Time
	}
	return a, nil
}

// AddAnswer records an answer for an attempt. The schema allows one row
// per (attempt, question); a resubmission overwrites the earlier answer
// instead of adding a second row, so the correct-answer count can never
// exceed the question count.
func (r *AttemptRepository) AddAnswer(attemptID, questionID int64, value string, isCorrect bool) (*models.Answer, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO attempt_answers (attempt_id, question_id, submitted_value, is_correct, answered_at)
		VALUES (?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, attemptID, questionID, value, isCorrect, now)
	if err != nil {
		if !r.db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("failed to record answer: %w", err)
		}
		update := `
			UPDATE attempt_answers
			SET submitted_value = ?, is_correct = ?, answered_at = ?
			WHERE attempt_id = ? AND question_id = ?
		`
		if _, err := r.db.Exec(update, value, isCorrect, now, attemptID, questionID); err != nil {
			return nil, fmt.Errorf("failed to replace answer: %w", err)
		}
		err = r.db.QueryRow(
			"SELECT id FROM attempt_answers WHERE attempt_id = ? AND question_id = ?",
			attemptID, questionID).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("failed to load replaced answer: %w", err)
		}
	}
	return &models.Answer{
		ID:             id,
		AttemptID:      attemptID,
		QuestionID:     questionID,
		SubmittedValue: value,
		IsCorrect:      isCorrect,
		AnsweredAt:     now,
	}, nil
}

// ListAnswers retrieves all answers for an attempt in submission order
func (r *AttemptRepository) ListAnswers(attemptID int64) ([]models.Answer, error) {
	query := `
		SELECT id, attempt_id, question_id, submitted_value, is_correct, answered_at
		FROM attempt_answers
		WHERE attempt_id = ?
		ORDER BY answered_at ASC, id ASC
	`
	rows, err := r.db.Query(query, attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to query answers: %w", err)
	}
	defer rows.Close()

	var answers []models.Answer
	for rows.Next() {
		var ans models.Answer
		if err := rows.Scan(&ans.ID, &ans.AttemptID, &ans.QuestionID,
			&ans.SubmittedValue, &ans.IsCorrect, &ans.AnsweredAt); err != nil {
			return nil, fmt.Errorf("failed to scan answer: %w", err)
		}
		answers = append(answers, ans)
	}
	return answers, rows.Err()
}

// CountAnswers returns the total and correct answer counts for an attempt
func (r *AttemptRepository) CountAnswers(attemptID int64) (total int, correct int, err error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_correct THEN 1 ELSE 0 END), 0)
		FROM attempt_answers
		WHERE attempt_id = ?
	`
	if err := r.db.QueryRow(query, attemptID).Scan(&total, &correct); err != nil {
		return 0, 0, fmt.Errorf("failed to count answers: %w", err)
	}
	return total, correct, nil
}

// CompleteIfInProgress transitions an attempt to completed, but only if
// it is still in progress. Returns whether the transition happened.
func (r *AttemptRepository) CompleteIfInProgress(id int64, score int, at time.Time) (bool, error) {
	query := `
		UPDATE attempts
		SET status = ?, score = ?, completed_at = ?
		WHERE id = ? AND status = ?
	`
	result, err := r.db.Exec(query, models.AttemptCompleted, score, at.UTC(), id, models.AttemptInProgress)
	if err != nil {
		return false, fmt.Errorf("failed to complete attempt: %w", err)
	}
	return oneRowChanged(result)
}

// AbandonIfInProgress transitions an attempt to abandoned, but only if
// it is still in progress. Returns whether the transition happened.
func (r *AttemptRepository) AbandonIfInProgress(id int64, at time.Time) (bool, error) {
	query := `
		UPDATE attempts
		SET status = ?, completed_at = ?
		WHERE id = ? AND status = ?
	`
	result, err := r.db.Exec(query, models.AttemptAbandoned, at.UTC(), id, models.AttemptInProgress)
	if err != nil {
		return false, fmt.Errorf("failed to abandon attempt: %w", err)
	}
	return oneRowChanged(result)
}

// AbandonIfCompleted is the reconciliation repair transition: the only
// permitted terminal-to-terminal move, and only in the
// completed-to-abandoned direction. Returns whether the transition
// happened.
func (r *AttemptRepository) AbandonIfCompleted(id int64, at time.Time) (bool, error) {
	query := `
		UPDATE attempts
		SET status = ?, completed_at = ?
		WHERE id = ? AND status = ?
	`
	result, err := r.db.Exec(query, models.AttemptAbandoned, at.UTC(), id, models.AttemptCompleted)
	if err != nil {
		return false, fmt.Errorf("failed to repair attempt: %w", err)
	}
	return oneRowChanged(result)
}

// ListInProgressForStudent lists a student's open attempts across all quizzes
func (r *AttemptRepository) ListInProgressForStudent(studentID int64) ([]models.Attempt, error) {
	query := `
		SELECT id, student_id, quiz_id, status, score, total_questions, started_at, completed_at
		FROM attempts
		WHERE student_id = ? AND status = ?
	`
	return r.listAttempts(query, studentID, models.AttemptInProgress)
}

// ListCompleted lists completed attempts, optionally filtered by quiz
// (quizID = 0 means all quizzes).
func (r *AttemptRepository) ListCompleted(quizID int64) ([]models.Attempt, error) {
	if quizID > 0 {
		query := `
			SELECT id, student_id, quiz_id, status, score, total_questions, started_at, completed_at
			FROM attempts
			WHERE status = ? AND quiz_id = ?
		`
		return r.listAttempts(query, models.AttemptCompleted, quizID)
	}
	query := `
		SELECT id, student_id, quiz_id, status, score, total_questions, started_at, completed_at
		FROM attempts
		WHERE status = ?
	`
	return r.listAttempts(query, models.AttemptCompleted)
}

func (r *AttemptRepository) listAttempts(query string, args ...interface{}) ([]models.Attempt, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []models.Attempt
	for rows.Next() {
		var a models.Attempt
		var completedAt sql.NullTime
		if err := rows.Scan(&a.ID, &a.StudentID, &a.QuizID, &a.Status, &a.Score,
			&a.TotalQuestions, &a.StartedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		if completedAt.Valid {
			a.CompletedAt = &completedAt.Time
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func oneRowChanged(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n == 1, nil
}
