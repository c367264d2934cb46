package schedule

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Service owns the job registry and the timers that fire scenario runs.
type Service struct {
	mu      sync.RWMutex
	jobs    map[string]*Job
	timers  map[string]*time.Timer
	opts    Options
	stopped bool
}

// NewService loads the registry from disk and schedules every enabled job.
func NewService(opts Options) (*Service, error) {
	if opts.StorePath == "" {
		return nil, fmt.Errorf("store path is required")
	}
	if opts.Run == nil {
		return nil, fmt.Errorf("run callback is required")
	}

	s := &Service{
		jobs:   make(map[string]*Job),
		timers: make(map[string]*time.Timer),
		opts:   opts,
	}

	if err := s.loadJobs(); err != nil {
		log.Warn().Err(err).Msg("Failed to load jobs, starting with empty registry")
	}

	s.mu.Lock()
	for _, job := range s.jobs {
		if job.Enabled {
			s.scheduleJobLocked(job)
		}
	}
	s.mu.Unlock()

	log.Info().Int("jobCount", len(s.jobs)).Msg("Scheduler initialized")

	return s, nil
}

// AddJob creates a new scheduled job.
func (s *Service) AddJob(params AddParams) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil, fmt.Errorf("scheduler is stopped")
	}
	if params.Name == "" {
		return nil, fmt.Errorf("job name is required")
	}
	if params.Scenario == "" {
		return nil, fmt.Errorf("job scenario is required")
	}

	nextRunAtMs, err := NextRun(params.Spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule: %w", err)
	}

	now := Now()
	job := &Job{
		ID:             uuid.New().String(),
		Name:           params.Name,
		Description:    params.Description,
		Enabled:        params.Enabled,
		DeleteAfterRun: params.DeleteAfterRun,
		CreatedAtMs:    now,
		UpdatedAtMs:    now,
		Spec:           params.Spec,
		Scenario:       params.Scenario,
		Context:        params.Context,
		State: JobState{
			NextRunAtMs: Int64Ptr(nextRunAtMs),
		},
	}

	s.jobs[job.ID] = job

	if err := s.persist(); err != nil {
		delete(s.jobs, job.ID)
		return nil, fmt.Errorf("failed to persist job: %w", err)
	}

	if job.Enabled {
		s.scheduleJobLocked(job)
	}

	log.Info().
		Str("jobId", job.ID).
		Str("name", job.Name).
		Str("scenario", job.Scenario).
		Bool("enabled", job.Enabled).
		Msg("Job created")

	s.emit(Event{Action: EventActionAdded, JobID: job.ID})

	return job, nil
}

// UpdateJob applies a patch to an existing job.
func (s *Service) UpdateJob(id string, patch JobPatch) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil, fmt.Errorf("scheduler is stopped")
	}

	job, exists := s.jobs[id]
	if !exists {
		return nil, fmt.Errorf("job not found: %s", id)
	}

	specChanged := false
	enabledChanged := false
	oldEnabled := job.Enabled

	if patch.Name != nil {
		job.Name = *patch.Name
	}
	if patch.Description != nil {
		job.Description = *patch.Description
	}
	if patch.Enabled != nil {
		job.Enabled = *patch.Enabled
		enabledChanged = oldEnabled != job.Enabled
	}
	if patch.DeleteAfterRun != nil {
		job.DeleteAfterRun = *patch.DeleteAfterRun
	}
	if patch.Spec != nil {
		job.Spec = *patch.Spec
		specChanged = true
	}
	if patch.Scenario != nil {
		job.Scenario = *patch.Scenario
	}
	if patch.Context != nil {
		job.Context = *patch.Context
	}

	job.UpdatedAtMs = Now()

	if specChanged {
		nextRunAtMs, err := NextRun(job.Spec)
		if err != nil {
			return nil, fmt.Errorf("invalid schedule: %w", err)
		}
		job.State.NextRunAtMs = Int64Ptr(nextRunAtMs)
	}

	if err := s.persist(); err != nil {
		return nil, fmt.Errorf("failed to persist job: %w", err)
	}

	if specChanged || enabledChanged {
		s.cancelJobLocked(id)
		if job.Enabled {
			s.scheduleJobLocked(job)
		}
	}

	log.Info().
		Str("jobId", id).
		Str("name", job.Name).
		Bool("specChanged", specChanged).
		Bool("enabledChanged", enabledChanged).
		Msg("Job updated")

	s.emit(Event{Action: EventActionUpdated, JobID: id})

	return job, nil
}

// RemoveJob deletes a job and cancels its timer.
func (s *Service) RemoveJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return fmt.Errorf("scheduler is stopped")
	}

	job, exists := s.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	s.cancelJobLocked(id)
	delete(s.jobs, id)

	if err := s.persist(); err != nil {
		return fmt.Errorf("failed to persist job: %w", err)
	}

	log.Info().Str("jobId", id).Str("name", job.Name).Msg("Job removed")

	s.emit(Event{Action: EventActionDeleted, JobID: id})

	return nil
}

// RunJob triggers a job outside its schedule. RunModeDue respects the
// enabled flag; RunModeForce runs the job regardless.
func (s *Service) RunJob(id string, mode RunMode) error {
	s.mu.RLock()
	job, exists := s.jobs[id]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	if mode == RunModeDue && !job.Enabled {
		log.Debug().Str("jobId", id).Msg("Skipping disabled job in 'due' mode")
		return nil
	}

	go s.executeJob(id)

	return nil
}

// ListJobs returns all jobs sorted by creation time, optionally filtered
// by the enabled flag.
func (s *Service) ListJobs(enabled *bool) []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if enabled != nil && job.Enabled != *enabled {
			continue
		}
		jobs = append(jobs, job)
	}

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAtMs < jobs[j].CreatedAtMs
	})

	return jobs
}

// GetJob returns the job with the given ID, or nil.
func (s *Service) GetJob(id string) *Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.jobs[id]
}

// Stop cancels all timers and persists the final registry state.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}
	s.stopped = true

	for id := range s.timers {
		s.cancelJobLocked(id)
	}

	if err := s.persist(); err != nil {
		log.Error().Err(err).Msg("Failed to persist registry on shutdown")
		return err
	}

	log.Info().Msg("Scheduler stopped")

	return nil
}

// scheduleJobLocked arms the timer for a job. Caller must hold the lock.
func (s *Service) scheduleJobLocked(job *Job) {
	if job.State.NextRunAtMs == nil {
		log.Warn().Str("jobId", job.ID).Msg("Cannot schedule job without next run time")
		return
	}

	delay := *job.State.NextRunAtMs - Now()
	if delay < 0 {
		delay = 0
	}

	id := job.ID
	s.timers[id] = time.AfterFunc(time.Duration(delay)*time.Millisecond, func() {
		s.executeJob(id)
	})

	log.Debug().
		Str("jobId", id).
		Int64("delayMs", delay).
		Time("nextRun", time.UnixMilli(*job.State.NextRunAtMs)).
		Msg("Job scheduled")
}

// cancelJobLocked stops and forgets a job's timer. Caller must hold the lock.
func (s *Service) cancelJobLocked(id string) {
	if timer, exists := s.timers[id]; exists {
		timer.Stop()
		delete(s.timers, id)
	}
}

// executeJob runs a job's scenario and records the outcome.
func (s *Service) executeJob(id string) {
	s.mu.Lock()

	job, exists := s.jobs[id]
	if !exists || s.stopped {
		s.mu.Unlock()
		return
	}

	if job.State.RunningAtMs != nil {
		s.mu.Unlock()
		log.Debug().Str("jobId", id).Msg("Job already running, skipping execution")
		return
	}

	startMs := Now()
	job.State.RunningAtMs = Int64Ptr(startMs)
	snapshot := *job
	s.mu.Unlock()

	log.Info().Str("jobId", id).Str("scenario", snapshot.Scenario).Msg("Executing job")

	runErr := s.opts.Run(&snapshot)

	s.mu.Lock()
	defer s.mu.Unlock()

	durationMs := Now() - startMs

	job.State.RunningAtMs = nil
	job.State.LastRunAtMs = Int64Ptr(startMs)
	job.State.LastDurationMs = Int64Ptr(durationMs)

	if runErr != nil {
		job.State.LastStatus = "error"
		job.State.LastError = runErr.Error()
		job.State.ConsecutiveErrors++

		log.Error().
			Str("jobId", id).
			Err(runErr).
			Int("consecutiveErrors", job.State.ConsecutiveErrors).
			Msg("Job execution failed")
	} else {
		job.State.LastStatus = "ok"
		job.State.LastError = ""
		job.State.ConsecutiveErrors = 0

		log.Info().
			Str("jobId", id).
			Int64("durationMs", durationMs).
			Msg("Job execution completed")
	}

	// One-shot jobs must not fire again for the same past timestamp.
	if job.Spec.Kind == KindAt {
		job.Enabled = false
		job.State.NextRunAtMs = nil
	} else if nextRunAtMs, err := NextRun(job.Spec); err != nil {
		log.Error().Str("jobId", id).Err(err).Msg("Failed to calculate next run")
		job.State.NextRunAtMs = nil
	} else {
		// Failing jobs back off instead of hammering the browser on a
		// tight interval.
		if backoff := retryBackoff(job.Spec, job.State.ConsecutiveErrors); backoff > 0 {
			if delayed := startMs + backoff.Milliseconds(); delayed > nextRunAtMs {
				nextRunAtMs = delayed
			}
		}
		job.State.NextRunAtMs = Int64Ptr(nextRunAtMs)
	}

	if err := s.persist(); err != nil {
		log.Error().Err(err).Msg("Failed to persist job state")
	}

	s.emit(Event{
		Action:      EventActionFinished,
		JobID:       id,
		Status:      job.State.LastStatus,
		Error:       job.State.LastError,
		DurationMs:  Int64Ptr(durationMs),
		NextRunAtMs: job.State.NextRunAtMs,
	})

	if job.DeleteAfterRun && runErr == nil {
		log.Info().Str("jobId", id).Msg("Deleting job after successful run")
		s.cancelJobLocked(id)
		delete(s.jobs, id)
		if err := s.persist(); err != nil {
			log.Error().Err(err).Msg("Failed to persist after delete")
		}
		s.emit(Event{Action: EventActionDeleted, JobID: id})
		return
	}

	if job.Enabled && job.State.NextRunAtMs != nil && !s.stopped {
		s.cancelJobLocked(id)
		s.scheduleJobLocked(job)
	}
}

func (s *Service) emit(evt Event) {
	if s.opts.OnEvent != nil {
		s.opts.OnEvent(evt)
	}
}

// loadJobs reads the registry file into memory. A missing file is not an
// error; the registry starts empty.
func (s *Service) loadJobs() error {
	if _, err := os.Stat(s.opts.StorePath); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(s.opts.StorePath)
	if err != nil {
		return fmt.Errorf("failed to read jobs file: %w", err)
	}

	var jobs []*Job
	if err := json.Unmarshal(data, &jobs); err != nil {
		return fmt.Errorf("failed to parse jobs file: %w", err)
	}

	s.jobs = make(map[string]*Job, len(jobs))
	for _, job := range jobs {
		// A crash mid-run must not leave the job stuck in running state.
		job.State.RunningAtMs = nil
		s.jobs[job.ID] = job
	}

	log.Info().Int("count", len(jobs)).Msg("Loaded jobs from registry")

	return nil
}

// persist writes the registry atomically via a temp file rename.
func (s *Service) persist() error {
	jobs := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAtMs < jobs[j].CreatedAtMs
	})

	data, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal jobs: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.opts.StorePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempFile := s.opts.StorePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tempFile, s.opts.StorePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}
