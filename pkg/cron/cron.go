package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"ijara_backend/pkg/logger"
)

const jobTimeout = time.Minute

// Pruner drops expired rate-limit windows.
type Pruner interface {
	Prune(ctx context.Context) (int64, error)
}

// BacklogCounter reports how many ads wait for moderation.
type BacklogCounter interface {
	PendingCount(ctx context.Context) (int64, error)
}

// Scheduler owns the background maintenance jobs.
type Scheduler struct {
	c   *cron.Cron
	log *logger.Logger
}

func New(log *logger.Logger) *Scheduler {
	return &Scheduler{c: cron.New(), log: log}
}

// AddRateLimitPrune removes stale counters every hour.
func (s *Scheduler) AddRateLimitPrune(p Pruner) error {
	_, err := s.c.AddFunc("@hourly", func() {
		PruneRateLimits(p, s.log)
	})
	return err
}

// AddModerationReport logs the moderation backlog every morning at 09:00.
func (s *Scheduler) AddModerationReport(b BacklogCounter) error {
	_, err := s.c.AddFunc("0 9 * * *", func() {
		ReportBacklog(b, s.log)
	})
	return err
}

func (s *Scheduler) Start() {
	s.c.Start()
}

// Stop halts scheduling and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.c.Stop().Done()
}

func PruneRateLimits(p Pruner, log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := p.Prune(ctx)
	if err != nil {
		log.Error("could not prune rate limit counters: %v", err)
		return
	}
	log.Info("pruned %d expired rate limit counters", n)
}

func ReportBacklog(b BacklogCounter, log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := b.PendingCount(ctx)
	if err != nil {
		log.Error("could not count pending ads: %v", err)
		return
	}
	if n > 0 {
		log.Warn("%d ads are waiting for moderation", n)
		return
	}
	log.Info("moderation queue is empty")
}
