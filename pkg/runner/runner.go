package runner

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Task is a long-running background job.
type Task interface {
	Name() string
	Run(ctx context.Context) error
	Stop()
}

// Runner supervises background tasks alongside the HTTP server.
type Runner struct {
	tasks  []Task
	logger *logrus.Logger
}

func New(logger *logrus.Logger, tasks ...Task) *Runner {
	return &Runner{tasks: tasks, logger: logger}
}

// Run starts all tasks and blocks until the context is canceled, all
// tasks finish, or one of them fails.
func (r *Runner) Run(ctx context.Context) error {
	if len(r.tasks) == 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	r.logger.WithField("tasks", len(r.tasks)).Info("Starting background tasks")

	var wg sync.WaitGroup
	errChan := make(chan error, len(r.tasks))

	for _, task := range r.tasks {
		wg.Add(1)
		go func(t Task) {
			defer wg.Done()
			r.logger.WithField("task", t.Name()).Info("Starting task")

			if err := t.Run(ctx); err != nil && err != context.Canceled {
				r.logger.WithError(err).WithField("task", t.Name()).Error("Task failed")
				errChan <- fmt.Errorf("task %s failed: %w", t.Name(), err)
			}
		}(task)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("Context canceled, stopping background tasks")
		r.Stop()
		<-done
		return ctx.Err()
	case err, ok := <-errChan:
		// A closed channel here means every task finished without error;
		// the done case may simply have lost the race.
		if !ok {
			<-done
			r.logger.Info("All background tasks completed")
			return nil
		}
		r.Stop()
		<-done
		return err
	case <-done:
		r.logger.Info("All background tasks completed")
		return nil
	}
}

// Stop stops all tasks.
func (r *Runner) Stop() {
	for _, task := range r.tasks {
		r.logger.WithField("task", task.Name()).Info("Stopping task")
		task.Stop()
	}
}
