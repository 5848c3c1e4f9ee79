package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	DailyPruneSpec        = "15 3 * * *"
	Timezone              = "UTC"
	TimezoneOffsetSeconds = 0
	pruneHistoryTimeout   = 5 * time.Minute
)

// HistoryPruner deletes stored chat messages older than a point in time.
type HistoryPruner interface {
	DeleteMessagesBefore(ctx context.Context, before time.Time) (int64, error)
}

type Scheduler struct {
	ctx       context.Context
	cron      *cron.Cron
	pruner    HistoryPruner
	retention time.Duration
	now       func() time.Time
	log       *slog.Logger
}

func New(ctx context.Context, pruner HistoryPruner, retention time.Duration, log *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLocation(time.FixedZone(Timezone, TimezoneOffsetSeconds)))

	return &Scheduler{
		ctx:       ctx,
		cron:      c,
		pruner:    pruner,
		retention: retention,
		now:       time.Now,
		log:       log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(DailyPruneSpec, s.pruneHistory); err != nil {
		return err
	}

	s.cron.Start()

	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) pruneHistory() {
	ctx, cancel := context.WithTimeout(s.ctx, pruneHistoryTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		s.log.InfoContext(ctx, "Scheduler context is done",
			"error", ctx.Err())
		return
	default:
	}

	before := s.now().UTC().Add(-s.retention)

	deleted, err := s.pruner.DeleteMessagesBefore(ctx, before)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to prune chat history",
			"error", err,
			"before", before,
			"retention", s.retention.String())
		return
	}

	s.log.InfoContext(ctx, "Chat history is pruned",
		"deleted", deleted,
		"before", before,
		"retention", s.retention.String())
}
