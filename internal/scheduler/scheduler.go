// Package scheduler runs background jobs on cron schedules.
package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// Scheduler manages background jobs
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger

	mu      sync.Mutex
	running map[string]bool
	jobs    map[string]*registeredJob
}

type registeredJob struct {
	job      Job
	schedule string
	entryID  cron.EntryID
	lastRun  time.Time
	lastErr  error
}

// JobStatus describes a registered job
type JobStatus struct {
	Name      string     `json:"name"`
	Schedule  string     `json:"schedule"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
	Running   bool       `json:"running"`
}

// ErrJobNotFound is returned by Trigger for unregistered job names
var ErrJobNotFound = errors.New("job not found")

// New creates a new scheduler. Schedules use six fields (with seconds).
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		log:     log.With().Str("component", "scheduler").Logger(),
		running: make(map[string]bool),
		jobs:    make(map[string]*registeredJob),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a new job with cron schedule
// Schedule examples:
//   - "0 0 6 * * *"        - 06:00 every day
//   - "0 */15 * * * *"     - Every 15 minutes
//   - "@hourly"            - Every hour
//   - "@every 30s"         - Every 30 seconds
//
// A run is skipped while the previous run of the same job is still in progress.
func (s *Scheduler) AddJob(schedule string, job Job) error {
	id, err := s.cron.AddFunc(schedule, func() {
		if err := s.run(job); err != nil && !errors.Is(err, errJobAlreadyRunning) {
			s.log.Error().
				Err(err).
				Str("job", job.Name()).
				Msg("Job failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", schedule, job.Name(), err)
	}

	s.mu.Lock()
	s.jobs[job.Name()] = &registeredJob{job: job, schedule: schedule, entryID: id}
	s.mu.Unlock()

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")
	return nil
}

// RunNow executes a job immediately (outside schedule)
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("Running job immediately")
	return s.run(job)
}

// Trigger runs a registered job by name
func (s *Scheduler) Trigger(name string) error {
	s.mu.Lock()
	reg, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	return s.RunNow(reg.job)
}

// Jobs returns the status of every registered job, sorted by name
func (s *Scheduler) Jobs() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.jobs))
	for name, reg := range s.jobs {
		st := JobStatus{
			Name:     name,
			Schedule: reg.schedule,
			Running:  s.running[name],
		}
		if next := s.cron.Entry(reg.entryID).Next; !next.IsZero() {
			st.NextRun = &next
		}
		if !reg.lastRun.IsZero() {
			lastRun := reg.lastRun
			st.LastRun = &lastRun
		}
		if reg.lastErr != nil {
			st.LastError = reg.lastErr.Error()
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Entries returns the number of registered jobs
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

var errJobAlreadyRunning = errors.New("job already running")

func (s *Scheduler) run(job Job) error {
	s.mu.Lock()
	if s.running[job.Name()] {
		s.mu.Unlock()
		s.log.Warn().Str("job", job.Name()).Msg("Previous run still in progress, skipping")
		return errJobAlreadyRunning
	}
	s.running[job.Name()] = true
	s.mu.Unlock()

	var runErr error
	defer func() {
		s.mu.Lock()
		delete(s.running, job.Name())
		if reg, ok := s.jobs[job.Name()]; ok {
			reg.lastRun = time.Now()
			reg.lastErr = runErr
		}
		s.mu.Unlock()
	}()

	s.log.Debug().Str("job", job.Name()).Msg("Running job")
	if runErr = job.Run(); runErr != nil {
		return runErr
	}
	s.log.Debug().Str("job", job.Name()).Msg("Job completed")
	return nil
}
