package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/planvista/planvista-backend/internal/projects/repository"
)

// Sweeper periodically reconciles projects duplicated across the private and
// public namespaces by an interrupted visibility transition.
type Sweeper struct {
	repo *repository.ProjectRepository
	log  *logrus.Logger
	cron *cron.Cron
}

func NewSweeper(repo *repository.ProjectRepository, log *logrus.Logger) *Sweeper {
	return &Sweeper{repo: repo, log: log}
}

// Start schedules the hourly reconciliation pass.
func (s *Sweeper) Start() {
	s.cron = cron.New()

	_, err := s.cron.AddFunc("@hourly", func() {
		s.RunOnce(context.Background())
	})
	if err != nil {
		s.log.WithError(err).Error("failed to schedule namespace sweeper")
		return
	}

	s.log.Info("namespace sweeper started (hourly)")
	s.cron.Start()
}

func (s *Sweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// RunOnce performs a single reconciliation pass.
func (s *Sweeper) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	removed, err := s.repo.Reconcile(ctx)
	if err != nil {
		s.log.WithError(err).Error("namespace sweep failed")
		return
	}
	if removed > 0 {
		s.log.WithField("removed", removed).Info("namespace sweep resolved duplicates")
	}
}
