package usecase

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/verbatone/billing/internal/domain/model"
)

// Scheduler runs the reconciliation and daily stats jobs on cron schedules.
// A run that is still going when its next tick fires is not overlapped.
type Scheduler struct {
	cron       *cron.Cron
	reconciler *ReconcilerService
	stats      *StatsService
	logger     *zap.Logger

	reconcileRunning atomic.Bool
	statsRunning     atomic.Bool
}

func NewScheduler(reconciler *ReconcilerService, stats *StatsService, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		reconciler: reconciler,
		stats:      stats,
		logger:     logger,
	}
}

// Register adds the jobs for the given cron expressions. An empty expression
// disables that job.
func (s *Scheduler) Register(reconcileSchedule, statsSchedule string) error {
	if reconcileSchedule != "" {
		if _, err := s.cron.AddFunc(reconcileSchedule, s.runReconcile); err != nil {
			return err
		}
		s.logger.Info("Scheduled reconciliation job",
			zap.String("schedule", reconcileSchedule))
	}
	if statsSchedule != "" {
		if _, err := s.cron.AddFunc(statsSchedule, s.runStatsSnapshot); err != nil {
			return err
		}
		s.logger.Info("Scheduled daily stats snapshot",
			zap.String("schedule", statsSchedule))
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) runReconcile() {
	if !s.reconcileRunning.CompareAndSwap(false, true) {
		s.logger.Warn("Previous reconciliation run still in progress, skipping tick")
		return
	}
	defer s.reconcileRunning.Store(false)

	ctx := context.Background()
	started := time.Now()

	report, err := s.reconciler.Reconcile(ctx, nil)
	if err != nil {
		s.logger.Error("Scheduled reconciliation failed", zap.Error(err))
		return
	}

	// Discovery runs after reconciliation so freshly fetched state is not
	// immediately rechecked.
	if discovered, err := s.reconciler.Discover(ctx, nil); err != nil {
		s.logger.Error("Scheduled discovery failed", zap.Error(err))
	} else {
		report.Merge(discovered)
	}

	if swept, err := s.reconciler.SweepLegacy(ctx); err != nil {
		s.logger.Error("Legacy sweep failed", zap.Error(err))
	} else {
		report.Merge(swept)
	}

	for _, p := range []model.Provider{model.ProviderStripe, model.ProviderPayPal, model.ProviderPayPalLegacy} {
		if relinked, err := s.reconciler.RelinkUnlinked(ctx, p); err != nil {
			s.logger.Error("Relink failed", zap.String("provider", string(p)), zap.Error(err))
		} else {
			report.Merge(relinked)
		}
	}

	s.logger.Info("Scheduled reconciliation finished",
		zap.Duration("elapsed", time.Since(started)),
		zap.Int("checked", report.Checked),
		zap.Int("updated", report.Updated),
		zap.Int("canceled", report.Canceled),
		zap.Int("discovered", report.Discovered),
		zap.Int("relinked", report.Relinked),
		zap.Int("failed", report.Failed))
}

func (s *Scheduler) runStatsSnapshot() {
	if !s.statsRunning.CompareAndSwap(false, true) {
		s.logger.Warn("Previous stats snapshot still in progress, skipping tick")
		return
	}
	defer s.statsRunning.Store(false)

	ctx := context.Background()
	if err := s.stats.SnapshotDay(ctx, time.Now().UTC()); err != nil {
		s.logger.Error("Daily stats snapshot failed", zap.Error(err))
		return
	}
	s.logger.Info("Daily stats snapshot recorded")
}
