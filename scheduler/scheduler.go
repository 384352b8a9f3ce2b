package scheduler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Job is one scheduled unit of work
type Job func(ctx context.Context) error

// Scheduler runs a job at start and then every interval until stopped.
// Runs never overlap: the next tick is measured from the end of the previous run.
type Scheduler struct {
	job      Job
	interval time.Duration
	logger   logrus.FieldLogger
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewScheduler creates a scheduler bound to parent
func NewScheduler(parent context.Context, job Job, interval time.Duration, logger logrus.FieldLogger) *Scheduler {
	ctx, cancel := context.WithCancel(parent)
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Scheduler{
		job:      job,
		interval: interval,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start starts the scheduler in a goroutine
func (s *Scheduler) Start() {
	go s.run()
}

// Stop cancels the running job and waits for the loop to exit
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.done
	s.logger.Info("scheduler stopped")
}

// Done is closed when the loop exits
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

func (s *Scheduler) run() {
	defer close(s.done)

	for run := 1; ; run++ {
		started := time.Now()
		logger := s.logger.WithField("run", run)
		logger.Info("scheduled run starting")

		if err := s.job(s.ctx); err != nil {
			logger.WithError(err).Error("scheduled run failed")
		} else {
			logger.WithField("duration", time.Since(started).Round(time.Second).String()).Info("scheduled run finished")
		}

		timer := time.NewTimer(s.interval)
		select {
		case <-s.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
