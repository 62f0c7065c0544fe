package repository

import (
	"database/sql"
	"fmt"

	"eduportal/internal/database"
)

// QuestionRepository reads the quiz question bank. Question authoring
// lives in the surrounding CRUD layer; the lifecycle only needs lookups
// for grading and sizing.
type QuestionRepository struct {
	db *database.DB
}

// NewQuestionRepository creates a new question repository
func NewQuestionRepository(db *database.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// CountByQuiz returns how many questions a quiz has
func (r *QuestionRepository) CountByQuiz(quizID int64) (int, error) {
	var count int
	query := "SELECT COUNT(*) FROM questions WHERE quiz_id = ?"
	if err := r.db.QueryRow(query, quizID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count questions: %w", err)
	}
	return count, nil
}

// CorrectValue returns the expected answer for a question within a quiz.
// Returns ("", false, nil) when the question does not belong to the quiz.
func (r *QuestionRepository) CorrectValue(quizID, questionID int64) (string, bool, error) {
	var value string
	query := "SELECT correct_value FROM questions WHERE id = ? AND quiz_id = ?"
	err := r.db.QueryRow(query, questionID, quizID).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get question: %w", err)
	}
	return value, true, nil
}
