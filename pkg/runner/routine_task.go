package runner

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/neveleren/thewire/pkg/scheduler"
)

// DefaultRoutineInterval matches the once-a-day cadence the routine was
// designed around.
const DefaultRoutineInterval = 24 * time.Hour

// RoutineTask ticks the daily routine. The routine itself is idempotent,
// so a shortened interval in development is harmless.
type RoutineTask struct {
	scheduler *scheduler.Scheduler
	interval  time.Duration
	logger    *logrus.Logger
	stop      chan struct{}
}

func NewRoutineTask(sched *scheduler.Scheduler, interval time.Duration, logger *logrus.Logger) *RoutineTask {
	if interval <= 0 {
		interval = DefaultRoutineInterval
	}
	return &RoutineTask{
		scheduler: sched,
		interval:  interval,
		logger:    logger,
		stop:      make(chan struct{}),
	}
}

func (t *RoutineTask) Name() string { return "daily_routine" }

func (t *RoutineTask) Run(ctx context.Context) error {
	// One pass at startup so a fresh deployment has moods and events
	// before the first tick.
	t.scheduler.RunDailyRoutine(ctx, false)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.stop:
			return nil
		case <-ticker.C:
			t.scheduler.RunDailyRoutine(ctx, false)
		}
	}
}

func (t *RoutineTask) Stop() {
	select {
	case <-t.stop:
	default:
		close(t.stop)
	}
}
