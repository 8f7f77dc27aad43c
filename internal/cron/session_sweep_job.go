package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/stashbot/pkg/logger"
)

type sessionSweeper interface {
	Sweep() int
}

// NewSessionSweepJob evicts expired in-memory checkout sessions.
func NewSessionSweepJob(logg *logger.Logger, store sessionSweeper) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if store == nil {
		return nil, fmt.Errorf("session store required")
	}
	return &sessionSweepJob{logg: logg, store: store}, nil
}

type sessionSweepJob struct {
	logg  *logger.Logger
	store sessionSweeper
}

func (j *sessionSweepJob) Name() string { return "session-sweep" }

func (j *sessionSweepJob) Run(ctx context.Context) error {
	if removed := j.store.Sweep(); removed > 0 {
		j.logg.Info(j.logg.WithField(ctx, "sessions_removed", removed), "expired sessions evicted")
	}
	return nil
}
