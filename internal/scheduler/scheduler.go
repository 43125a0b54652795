package scheduler

import (
	"context"
	"time"

	"activitytracker-engine/internal/logging"
)

type Task func(ctx context.Context) error

// Every runs task once right away and then on each tick until ctx is done.
// Errors are logged and never stop the loop.
func Every(ctx context.Context, interval time.Duration, name string, task Task) {
	log := logging.Component("scheduler").With().Str("task", name).Logger()
	if interval <= 0 {
		log.Warn().Dur("interval", interval).Msg("non-positive interval, task disabled")
		return
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	// run immediately
	go func() {
		if err := task(ctx); err != nil {
			log.Error().Err(err).Msg("task failed")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := task(ctx); err != nil {
				log.Error().Err(err).Msg("task failed")
			}
		}
	}
}
