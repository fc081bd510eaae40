// Package scheduler runs the indexer's fixed set of interval jobs. Each job
// ticks on its own goroutine with a private logger; a failing run is logged
// and retried on the next tick, never fatal. Jobs with overrun protection
// drop ticks that arrive while a previous run is still in flight.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "scheduler")

// Job is one periodic task.
type Job struct {
	// ID names the job in logs and metrics.
	ID string
	// Interval between ticks.
	Interval time.Duration
	// RunImmediately fires the job once at start instead of waiting a
	// full interval for the first tick.
	RunImmediately bool
	// PreventOverrun drops a tick while a previous run is in flight.
	PreventOverrun bool
	// LogsEnabled controls the per-run start/finish lines. Failures are
	// always logged.
	LogsEnabled bool
	// Run does the work. The entry carries the job id.
	Run func(ctx context.Context, log *logrus.Entry) error
}

// Service drives the registered jobs.
type Service struct {
	jobs   []Job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New wires a scheduler over a fixed job set.
func New(jobs []Job) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{jobs: jobs, ctx: ctx, cancel: cancel}
}

// Start spawns one ticker goroutine per job.
func (s *Service) Start() {
	log.WithField("jobs", len(s.jobs)).Info("Starting scheduler")
	for i := range s.jobs {
		s.wg.Add(1)
		go s.runJob(s.jobs[i])
	}
}

// Stop cancels all tickers and waits for in-flight runs to finish.
func (s *Service) Stop() error {
	log.Info("Stopping scheduler")
	s.cancel()
	s.wg.Wait()
	return nil
}

// Status always reports healthy; individual job failures are transient.
func (s *Service) Status() error {
	return nil
}

func (s *Service) runJob(job Job) {
	defer s.wg.Done()
	entry := log.WithField("job", job.ID)

	var inFlight int32
	run := func() {
		if job.PreventOverrun {
			if !atomic.CompareAndSwapInt32(&inFlight, 0, 1) {
				jobOverruns.WithLabelValues(job.ID).Inc()
				entry.Debug("Previous run still in flight, skipping tick")
				return
			}
			defer atomic.StoreInt32(&inFlight, 0)
		}
		if job.LogsEnabled {
			entry.Debug("Running")
		}
		start := time.Now()
		if err := job.Run(s.ctx, entry); err != nil {
			jobFailures.WithLabelValues(job.ID).Inc()
			entry.WithError(err).Error("Job failed")
		}
		jobRuns.WithLabelValues(job.ID).Inc()
		jobDuration.WithLabelValues(job.ID).Observe(time.Since(start).Seconds())
		if job.LogsEnabled {
			entry.WithField("took", time.Since(start)).Debug("Done")
		}
	}

	if job.RunImmediately {
		run()
	}
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if job.PreventOverrun {
				// Run on its own goroutine so a long run never delays
				// the drop decision of the next tick.
				s.wg.Add(1)
				go func() {
					defer s.wg.Done()
					run()
				}()
			} else {
				run()
			}
		case <-s.ctx.Done():
			return
		}
	}
}
