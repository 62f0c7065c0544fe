package service

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"eduportal/internal/metrics"
	"eduportal/internal/models"
	"eduportal/internal/repository"
)

var (
	ErrAlreadyInProgress = errors.New("an attempt for this quiz is already in progress")
	ErrInvalidState      = errors.New("attempt is not in a state that allows this operation")
	ErrNoAnswersRecorded = errors.New("attempt has no recorded answers")
	ErrQuizNotFound      = errors.New("quiz not found")
	ErrAttemptNotFound   = errors.New("attempt not found")
	ErrQuestionNotInQuiz = errors.New("question does not belong to this quiz")
)

// AttemptService drives the quiz attempt lifecycle. Every transition is
// delegated to a conditional single-row update, so two racing callers
// cannot both win the same transition.
type AttemptService struct {
	attempts  *repository.AttemptRepository
	questions *repository.QuestionRepository
	log       *zap.Logger
}

// NewAttemptService creates a new attempt service
func NewAttemptService(attempts *repository.AttemptRepository, questions *repository.QuestionRepository, log *zap.Logger) *AttemptService {
	return &AttemptService{attempts: attempts, questions: questions, log: log}
}

// Start opens a new in-progress attempt for a student on a quiz. At most
// one open attempt per (student, quiz) can exist; a duplicate request
// gets ErrAlreadyInProgress whether it raced or simply repeated.
func (s *AttemptService) Start(studentID, quizID int64) (*models.Attempt, error) {
	var total int
	err := retryOnce(s.log, func() error {
		var err error
		total, err = s.questions.CountByQuiz(quizID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, ErrQuizNotFound
	}

	var attempt *models.Attempt
	err = retryOnce(s.log, func() error {
		var err error
		attempt, err = s.attempts.Create(studentID, quizID, total)
		return err
	}, repository.ErrActiveAttemptExists)
	if err != nil {
		if errors.Is(err, repository.ErrActiveAttemptExists) {
			return nil, ErrAlreadyInProgress
		}
		return nil, err
	}

	metrics.AttemptStarts.Inc()
	s.log.Info("attempt started",
		zap.Int64("attempt_id", attempt.ID),
		zap.Int64("student_id", studentID),
		zap.Int64("quiz_id", quizID))
	return attempt, nil
}

// RecordAnswer grades and stores one answer against an open attempt.
// Only the attempt's owner may submit, and only while it is in progress.
// Answering the same question again replaces the earlier answer.
func (s *AttemptService) RecordAnswer(studentID, attemptID, questionID int64, value string) (*models.Answer, error) {
	attempt, err := s.loadAttempt(attemptID)
	if err != nil {
		return nil, err
	}
	if attempt == nil || attempt.StudentID != studentID {
		return nil, ErrAttemptNotFound
	}
	if attempt.Status != models.AttemptInProgress {
		return nil, ErrInvalidState
	}

	var expected string
	var found bool
	err = retryOnce(s.log, func() error {
		var err error
		expected, found, err = s.questions.CorrectValue(attempt.QuizID, questionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrQuestionNotInQuiz
	}

	isCorrect := normalizeAnswer(value) == normalizeAnswer(expected)
	var answer *models.Answer
	err = retryOnce(s.log, func() error {
		var err error
		answer, err = s.attempts.AddAnswer(attemptID, questionID, value, isCorrect)
		return err
	})
	return answer, err
}

// Complete finalizes an open attempt. The score is recomputed from the
// recorded answers; the caller's claimed score is a hint only and a
// mismatch is logged, never trusted. An attempt with zero answers cannot
// complete.
func (s *AttemptService) Complete(studentID, attemptID int64, claimedScore int) (*models.Attempt, error) {
	attempt, err := s.loadAttempt(attemptID)
	if err != nil {
		return nil, err
	}
	if attempt == nil || attempt.StudentID != studentID {
		return nil, ErrAttemptNotFound
	}
	if attempt.Status != models.AttemptInProgress {
		return nil, ErrInvalidState
	}

	var total, correct int
	err = retryOnce(s.log, func() error {
		var err error
		total, correct, err = s.attempts.CountAnswers(attemptID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, ErrNoAnswersRecorded
	}
	if claimedScore != correct {
		s.log.Warn("claimed score differs from recorded answers",
			zap.Int64("attempt_id", attemptID),
			zap.Int("claimed", claimedScore),
			zap.Int("recorded", correct))
	}

	var ok bool
	err = retryOnce(s.log, func() error {
		var err error
		ok, err = s.attempts.CompleteIfInProgress(attemptID, correct, time.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the race to another completion or an abandon.
		return nil, ErrInvalidState
	}

	metrics.AttemptCompletions.Inc()
	s.log.Info("attempt completed",
		zap.Int64("attempt_id", attemptID),
		zap.Int("score", correct),
		zap.Int("answers", total))
	return s.loadAttempt(attemptID)
}

// ForceAbandon moves an open attempt to abandoned. Already-terminal
// attempts are left untouched and reported as ErrInvalidState.
func (s *AttemptService) ForceAbandon(attemptID int64) error {
	var ok bool
	err := retryOnce(s.log, func() error {
		var err error
		ok, err = s.attempts.AbandonIfInProgress(attemptID, time.Now())
		return err
	})
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidState
	}
	metrics.AttemptAbandons.Inc()
	return nil
}

// AbandonAllForStudent force-abandons every open attempt a student has,
// across all quizzes. Returns the IDs actually transitioned; attempts
// that raced to a terminal state in the meantime are skipped silently.
func (s *AttemptService) AbandonAllForStudent(studentID int64) ([]int64, error) {
	var open []models.Attempt
	err := retryOnce(s.log, func() error {
		var err error
		open, err = s.attempts.ListInProgressForStudent(studentID)
		return err
	})
	if err != nil {
		return nil, err
	}

	var abandoned []int64
	now := time.Now()
	for _, a := range open {
		var ok bool
		err := retryOnce(s.log, func() error {
			var err error
			ok, err = s.attempts.AbandonIfInProgress(a.ID, now)
			return err
		})
		if err != nil {
			return abandoned, err
		}
		if ok {
			abandoned = append(abandoned, a.ID)
			metrics.AttemptAbandons.Inc()
		}
	}
	return abandoned, nil
}

// Get returns an attempt owned by a student, or ErrAttemptNotFound.
func (s *AttemptService) Get(studentID, attemptID int64) (*models.Attempt, error) {
	attempt, err := s.loadAttempt(attemptID)
	if err != nil {
		return nil, err
	}
	if attempt == nil || attempt.StudentID != studentID {
		return nil, ErrAttemptNotFound
	}
	return attempt, nil
}

func (s *AttemptService) loadAttempt(id int64) (*models.Attempt, error) {
	var attempt *models.Attempt
	err := retryOnce(s.log, func() error {
		var err error
		attempt, err = s.attempts.GetByID(id)
		return err
	})
	return attempt, err
}

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
