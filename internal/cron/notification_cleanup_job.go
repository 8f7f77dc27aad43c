package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/stashbot/pkg/logger"
)

// DefaultNotificationRetention keeps delivered outbox rows for 30 days.
const DefaultNotificationRetention = 30 * 24 * time.Hour

type NotificationCleanupJobParams struct {
	Logger     *logger.Logger
	Repository sentNotificationPruner
	Retention  time.Duration
}

type sentNotificationPruner interface {
	DeleteSentBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewNotificationCleanupJob deletes outbox rows delivered more than Retention
// ago. Undelivered rows are never touched.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.Repository == nil:
		return nil, errors.New("notifications repository required")
	}
	keep := params.Retention
	if keep <= 0 {
		keep = DefaultNotificationRetention
	}
	return &notificationCleanupJob{
		logg:  params.Logger,
		prune: params.Repository,
		keep:  keep,
		clock: time.Now,
	}, nil
}

type notificationCleanupJob struct {
	logg  *logger.Logger
	prune sentNotificationPruner
	keep  time.Duration
	clock func() time.Time
}

func (j *notificationCleanupJob) Name() string { return "notification-cleanup" }

func (j *notificationCleanupJob) Run(ctx context.Context) error {
	cutoff := j.clock().UTC().Add(-j.keep)
	removed, err := j.prune.DeleteSentBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune notifications sent before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if removed == 0 {
		j.logg.Debug(ctx, "no delivered notifications to prune")
		return nil
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{"cutoff": cutoff, "removed": removed}), "delivered notifications pruned")
	return nil
}
