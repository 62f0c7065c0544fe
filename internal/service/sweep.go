package service

import (
	"time"

	"go.uber.org/zap"

	"eduportal/internal/metrics"
	"eduportal/internal/models"
	"eduportal/internal/repository"
)

// SweepReport summarizes one reconciliation pass.
type SweepReport struct {
	Examined    int     `json:"examined"`
	Repaired    int     `json:"repaired"`
	RepairedIDs []int64 `json:"repairedIds"`
}

// Sweeper reconciles completed attempts against their recorded answers.
// A completed attempt whose answer rows contradict its completion (no
// completion timestamp, no answers at all, or a stored score that does
// not match the correct-answer count) is demoted to abandoned. The
// demotion itself is conditional on the row still being completed, so a
// sweep never touches in-progress or already-abandoned attempts and
// running it twice repairs nothing the second time.
type Sweeper struct {
	attempts *repository.AttemptRepository
	log      *zap.Logger
}

// NewSweeper creates a new reconciliation sweeper
func NewSweeper(attempts *repository.AttemptRepository, log *zap.Logger) *Sweeper {
	return &Sweeper{attempts: attempts, log: log}
}

// Run sweeps completed attempts, optionally restricted to one quiz
// (quizID = 0 sweeps all quizzes).
func (s *Sweeper) Run(quizID int64) (*SweepReport, error) {
	metrics.SweepRuns.Inc()

	var completed []models.Attempt
	err := retryOnce(s.log, func() error {
		var err error
		completed, err = s.attempts.ListCompleted(quizID)
		return err
	})
	if err != nil {
		return nil, err
	}

	report := &SweepReport{RepairedIDs: []int64{}}
	now := time.Now()
	for _, a := range completed {
		report.Examined++

		var total, correct int
		err := retryOnce(s.log, func() error {
			var err error
			total, correct, err = s.attempts.CountAnswers(a.ID)
			return err
		})
		if err != nil {
			return nil, err
		}
		if a.CompletedAt != nil && total > 0 && a.Score == correct {
			continue
		}

		var ok bool
		err = retryOnce(s.log, func() error {
			var err error
			ok, err = s.attempts.AbandonIfCompleted(a.ID, now)
			return err
		})
		if err != nil {
			return nil, err
		}
		if !ok {
			// Someone else moved it since the listing; leave it alone.
			continue
		}

		report.Repaired++
		report.RepairedIDs = append(report.RepairedIDs, a.ID)
		metrics.SweepRepairs.Inc()
		s.log.Warn("inconsistent completed attempt repaired",
			zap.Int64("attempt_id", a.ID),
			zap.Int("stored_score", a.Score),
			zap.Int("recorded_correct", correct),
			zap.Int("recorded_answers", total))
	}

	s.log.Info("reconciliation sweep finished",
		zap.Int64("quiz_id", quizID),
		zap.Int("examined", report.Examined),
		zap.Int("repaired", report.Repaired))
	return report, nil
}
