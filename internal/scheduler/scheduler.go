package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/polatjonbaxtiyorov/mytushlikbot/internal/service/settlement"
)

// Scheduler drives the daily lunch cycle off wall-clock time in the
// configured timezone. Every job is a thin wrapper over an idempotent
// settlement operation, so a missed or repeated fire is harmless.
type Scheduler struct {
	cron          *cron.Cron
	settlementSvc *settlement.Service
	logger        *zap.Logger
}

// NewScheduler creates the scheduler. loc must be the lunch timezone;
// all cron expressions are evaluated in it.
func NewScheduler(settlementSvc *settlement.Service, loc *time.Location, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:          cron.New(cron.WithLocation(loc)),
		settlementSvc: settlementSvc,
		logger:        logger,
	}
}

// Start registers the jobs and begins the cron loop.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler")

	jobs := []struct {
		spec string
		name string
		fn   func()
	}{
		// Weekday survey at 07:00, reminder at 08:20, cutoff settlement
		// at 09:40. Debt notices Mon/Wed/Fri noon, cleanup at midnight.
		{"0 7 * * 1-5", "survey open", s.openSurvey},
		{"20 8 * * 1-5", "survey reminder", s.sendReminder},
		{"40 9 * * 1-5", "settlement", s.runSettlement},
		{"0 12 * * 1,3,5", "debt check", s.checkDebts},
		{"0 0 * * *", "choice cleanup", s.cleanupChoices},
	}
	for _, j := range jobs {
		if _, err := s.cron.AddFunc(j.spec, j.fn); err != nil {
			s.logger.Error("failed to schedule job",
				zap.String("job", j.name), zap.String("spec", j.spec), zap.Error(err))
		}
	}

	s.cron.Start()
}

// Stop halts the cron loop. Running jobs finish on their own.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cron.Stop()
}

func (s *Scheduler) openSurvey() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := s.settlementSvc.OpenSurvey(ctx)
	if err != nil {
		s.logger.Error("survey open failed", zap.Error(err))
		return
	}
	s.logger.Info("survey opened", zap.Int("sent", result.Sent), zap.Int("failed", result.Failed))
}

func (s *Scheduler) sendReminder() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := s.settlementSvc.SendReminder(ctx)
	if err != nil {
		s.logger.Error("reminder failed", zap.Error(err))
		return
	}
	s.logger.Info("reminder sent", zap.Int("sent", result.Sent), zap.Int("failed", result.Failed))
}

func (s *Scheduler) runSettlement() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := s.settlementSvc.RunSettlement(ctx)
	if err != nil {
		s.logger.Error("settlement failed", zap.Error(err))
		return
	}
	s.logger.Info("settlement done", zap.Int("sent", result.Sent), zap.Int("failed", result.Failed))
}

func (s *Scheduler) checkDebts() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := s.settlementSvc.CheckDebts(ctx)
	if err != nil {
		s.logger.Error("debt check failed", zap.Error(err))
		return
	}
	s.logger.Info("debt check done", zap.Int("sent", result.Sent), zap.Int("failed", result.Failed))
}

func (s *Scheduler) cleanupChoices() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	deleted, err := s.settlementSvc.CleanupOldChoices(ctx)
	if err != nil {
		s.logger.Error("choice cleanup failed", zap.Error(err))
		return
	}
	s.logger.Info("choice cleanup done", zap.Int64("deleted", deleted))
}
