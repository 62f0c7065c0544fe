package models

import "time"

// Attempt status values. Completed and abandoned are terminal; the only
// terminal-to-terminal transition is the reconciliation sweep's
// completed-to-abandoned repair.
const (
	AttemptInProgress = "in_progress"
	AttemptCompleted  = "completed"
	AttemptAbandoned  = "abandoned"
)

// Attempt represents one student's try at one quiz
type Attempt struct {
	ID             int64      `json:"id"`
	StudentID      int64      `json:"student_id"`
	QuizID         int64      `json:"quiz_id"`
	Status         string     `json:"status"`
	Score          int        `json:"score"`
	TotalQuestions int        `json:"total_questions"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// IsTerminal reports whether no further live transition is expected
func (a *Attempt) IsTerminal() bool {
	return a.Status == AttemptCompleted || a.Status == AttemptAbandoned
}

// Answer is one recorded answer within an attempt
type Answer struct {
	ID             int64     `json:"id"`
	AttemptID      int64     `json:"attempt_id"`
	QuestionID     int64     `json:"question_id"`
	SubmittedValue string    `json:"submitted_value"`
	IsCorrect      bool      `json:"is_correct"`
	AnsweredAt     time.Time `json:"answered_at"`
}
