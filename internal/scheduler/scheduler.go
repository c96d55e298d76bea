package scheduler

import (
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/crag-cast/internal/logger"
)

// Sweeper drops expired entries and reports how many went. Len is the
// number of entries left.
type Sweeper interface {
	Sweep() int
	Len() int
}

// Scheduler periodically sweeps expired entries out of in-process caches.
type Scheduler struct {
	scheduler *gocron.Scheduler
	sweepers  map[string]Sweeper
	interval  time.Duration
}

// New creates a new Scheduler. A non-positive interval falls back to five minutes.
func New(interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		sweepers:  make(map[string]Sweeper),
		interval:  interval,
	}
}

// Register adds a cache to sweep. Call before Start.
func (s *Scheduler) Register(name string, sw Sweeper) {
	s.sweepers[name] = sw
}

// Start schedules the sweep job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.sweepers) == 0 {
		logger.Info("scheduler: no caches registered; nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).WaitForSchedule().Do(s.RunOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce sweeps every registered cache immediately.
func (s *Scheduler) RunOnce() {
	for name, sw := range s.sweepers {
		if removed := sw.Sweep(); removed > 0 {
			logger.WithFields(logger.Fields{
				"cache":     name,
				"removed":   removed,
				"remaining": sw.Len(),
			}).Debug("scheduler: swept expired cache entries")
		}
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
