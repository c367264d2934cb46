package schedule

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRunner struct {
	mu     sync.Mutex
	runs   []*Job
	events []Event
	err    error
}

func newMockRunner() *mockRunner {
	return &mockRunner{}
}

func (m *mockRunner) run(job *Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, job)
	return m.err
}

func (m *mockRunner) onEvent(evt Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
}

func (m *mockRunner) runCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.runs)
}

func (m *mockRunner) lastRun() *Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.runs) == 0 {
		return nil
	}
	return m.runs[len(m.runs)-1]
}

func (m *mockRunner) eventActions() []EventAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	actions := make([]EventAction, 0, len(m.events))
	for _, evt := range m.events {
		actions = append(actions, evt.Action)
	}
	return actions
}

func createTestService(t *testing.T) (*Service, *mockRunner, string) {
	t.Helper()

	storePath := filepath.Join(t.TempDir(), "jobs.json")
	runner := newMockRunner()

	service, err := NewService(Options{
		StorePath: storePath,
		Run:       runner.run,
		OnEvent:   runner.onEvent,
	})
	require.NoError(t, err)

	return service, runner, storePath
}

func createTestJob() AddParams {
	return AddParams{
		Name:     "nightly checkout",
		Enabled:  true,
		Spec:     Spec{Kind: KindEvery, EveryMs: 60000},
		Scenario: "scenarios/checkout.json",
		Context:  map[string]string{"env": "staging"},
	}
}

func waitForStatus(t *testing.T, service *Service, jobID string, status string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job := service.GetJob(jobID)
		if job != nil && job.State.LastStatus == status && job.State.RunningAtMs == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("timed out waiting for job %s status %s", jobID, status)
}

func TestNewService(t *testing.T) {
	t.Run("creates service successfully", func(t *testing.T) {
		service, _, _ := createTestService(t)
		defer func() { _ = service.Stop() }()
		assert.NotNil(t, service)
	})

	t.Run("requires store path", func(t *testing.T) {
		_, err := NewService(Options{Run: func(*Job) error { return nil }})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "store path")
	})

	t.Run("requires run callback", func(t *testing.T) {
		_, err := NewService(Options{StorePath: filepath.Join(t.TempDir(), "jobs.json")})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "run callback")
	})
}

func TestAddJob(t *testing.T) {
	t.Run("creates job with unique ID", func(t *testing.T) {
		service, runner, _ := createTestService(t)
		defer func() { _ = service.Stop() }()

		params := createTestJob()
		job, err := service.AddJob(params)
		require.NoError(t, err)

		assert.NotEmpty(t, job.ID)
		assert.Equal(t, params.Name, job.Name)
		assert.Equal(t, params.Scenario, job.Scenario)
		assert.Equal(t, []EventAction{EventActionAdded}, runner.eventActions())
	})

	t.Run("sets timestamps and next run", func(t *testing.T) {
		service, _, _ := createTestService(t)
		defer func() { _ = service.Stop() }()

		before := Now()
		job, err := service.AddJob(createTestJob())
		require.NoError(t, err)
		after := Now()

		assert.GreaterOrEqual(t, job.CreatedAtMs, before)
		assert.LessOrEqual(t, job.CreatedAtMs, after)
		assert.Equal(t, job.CreatedAtMs, job.UpdatedAtMs)
		require.NotNil(t, job.State.NextRunAtMs)
		assert.Greater(t, *job.State.NextRunAtMs, before)
	})

	t.Run("requires job name", func(t *testing.T) {
		service, _, _ := createTestService(t)
		defer func() { _ = service.Stop() }()

		params := createTestJob()
		params.Name = ""

		_, err := service.AddJob(params)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "name is required")
	})

	t.Run("requires scenario", func(t *testing.T) {
		service, _, _ := createTestService(t)
		defer func() { _ = service.Stop() }()

		params := createTestJob()
		params.Scenario = ""

		_, err := service.AddJob(params)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "scenario is required")
	})

	t.Run("validates schedule spec", func(t *testing.T) {
		service, _, _ := createTestService(t)
		defer func() { _ = service.Stop() }()

		params := createTestJob()
		params.Spec = Spec{Kind: KindAt, At: "invalid"}

		_, err := service.AddJob(params)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid schedule")
	})

	t.Run("persists job to disk", func(t *testing.T) {
		service, _, storePath := createTestService(t)
		defer func() { _ = service.Stop() }()

		_, err := service.AddJob(createTestJob())
		require.NoError(t, err)

		_, err = os.Stat(storePath)
		assert.NoError(t, err)
	})

	t.Run("schedules enabled job", func(t *testing.T) {
		service, _, _ := createTestService(t)
		defer func() { _ = service.Stop() }()

		job, err := service.AddJob(createTestJob())
		require.NoError(t, err)

		service.mu.RLock()
		_, exists := service.timers[job.ID]
		service.mu.RUnlock()
		assert.True(t, exists)
	})

	t.Run("does not schedule disabled job", func(t *testing.T) {
		service, _, _ := createTestService(t)
		defer func() { _ = service.Stop() }()

		params := createTestJob()
		params.Enabled = false

		job, err := service.AddJob(params)
		require.NoError(t, err)

		service.mu.RLock()
		_, exists := service.timers[job.ID]
		service.mu.RUnlock()
		assert.False(t, exists)
	})
}

func TestUpdateJob(t *testing.T) {
	t.Run("applies patch fields", func(t *testing.T) {
		service, _, _ := createTestService(t)
		defer func() { _ = service.Stop() }()

		job, err := service.AddJob(createTestJob())
		require.NoError(t, err)

		updated, err := service.UpdateJob(job.ID, JobPatch{
			Name:     StringPtr("renamed"),
			Scenario: StringPtr("scenarios/login.json"),
			Enabled:  BoolPtr(false),
		})
		require.NoError(t, err)

		assert.Equal(t, "renamed", updated.Name)
		assert.Equal(t, "scenarios/login.json", updated.Scenario)
		assert.False(t, updated.Enabled)
	})

	t.Run("recalculates next run on spec change", func(t *testing.T) {
		service, _, _ := createTestService(t)
		defer func() { _ = service.Stop() }()

		job, err := service.AddJob(createTestJob())
		require.NoError(t, err)
		original := *job.State.NextRunAtMs

		updated, err := service.UpdateJob(job.ID, JobPatch{
			Spec: &Spec{Kind: KindEvery, EveryMs: 3600000},
		})
		require.NoError(t, err)

		require.NotNil(t, updated.State.NextRunAtMs)
		assert.Greater(t, *updated.State.NextRunAtMs, original)
	})

	t.Run("disabling cancels timer", func(t *testing.T) {
		service, _, _ := createTestService(t)
		defer func() { _ = service.Stop() }()

		job, err := service.AddJob(createTestJob())
		require.NoError(t, err)

		_, err = service.UpdateJob(job.ID, JobPatch{Enabled: BoolPtr(false)})
		require.NoError(t, err)

		service.mu.RLock()
		_, exists := service.timers[job.ID]
		service.mu.RUnlock()
		assert.False(t, exists)
	})

	t.Run("returns error for unknown job", func(t *testing.T) {
		service, _, _ := createTestService(t)
		defer func() { _ = service.Stop() }()

		_, err := service.UpdateJob("missing", JobPatch{Name: StringPtr("x")})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}

func TestRemoveJob(t *testing.T) {
	t.Run("removes job and emits event", func(t *testing.T) {
		service, runner, _ := createTestService(t)
		defer func() { _ = service.Stop() }()

		job, err := service.AddJob(createTestJob())
		require.NoError(t, err)

		require.NoError(t, service.RemoveJob(job.ID))

		assert.Nil(t, service.GetJob(job.ID))
		assert.Contains(t, runner.eventActions(), EventActionDeleted)
	})

	t.Run("returns error for unknown job", func(t *testing.T) {
		service, _, _ := createTestService(t)
		defer func() { _ = service.Stop() }()

		err := service.RemoveJob("missing")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}

func TestRunJob(t *testing.T) {
	t.Run("executes the scenario callback", func(t *testing.T) {
		service, runner, _ := createTestService(t)
		defer func() { _ = service.Stop() }()

		job, err := service.AddJob(createTestJob())
		require.NoError(t, err)

		require.NoError(t, service.RunJob(job.ID, RunModeForce))
		waitForStatus(t, service, job.ID, "ok")

		require.Equal(t, 1, runner.runCount())
		ran := runner.lastRun()
		assert.Equal(t, job.ID, ran.ID)
		assert.Equal(t, "scenarios/checkout.json", ran.Scenario)
		assert.Equal(t, map[string]string{"env": "staging"}, ran.Context)
	})

	t.Run("respects enabled flag in due mode", func(t *testing.T) {
		service, runner, _ := createTestService(t)
		defer func() { _ = service.Stop() }()

		params := createTestJob()
		params.Enabled = false

		job, err := service.AddJob(params)
		require.NoError(t, err)

		require.NoError(t, service.RunJob(job.ID, RunModeDue))
		time.Sleep(100 * time.Millisecond)

		assert.Equal(t, 0, runner.runCount())
	})

	t.Run("ignores enabled flag in force mode", func(t *testing.T) {
		service, runner, _ := createTestService(t)
		defer func() { _ = service.Stop() }()

		params := createTestJob()
		params.Enabled = false

		job, err := service.AddJob(params)
		require.NoError(t, err)

		require.NoError(t, service.RunJob(job.ID, RunModeForce))
		waitForStatus(t, service, job.ID, "ok")

		assert.Equal(t, 1, runner.runCount())
	})

	t.Run("records failure state", func(t *testing.T) {
		service, runner, _ := createTestService(t)
		defer func() { _ = service.Stop() }()

		runner.mu.Lock()
		runner.err = fmt.Errorf("step 0 (open): boom")
		runner.mu.Unlock()

		job, err := service.AddJob(createTestJob())
		require.NoError(t, err)

		require.NoError(t, service.RunJob(job.ID, RunModeForce))
		waitForStatus(t, service, job.ID, "error")

		state := service.GetJob(job.ID).State
		assert.Equal(t, "error", state.LastStatus)
		assert.Contains(t, state.LastError, "boom")
		assert.Equal(t, 1, state.ConsecutiveErrors)
	})

	t.Run("returns error for non-existent job", func(t *testing.T) {
		service, _, _ := createTestService(t)
		defer func() { _ = service.Stop() }()

		err := service.RunJob("non-existent", RunModeForce)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}

func TestOneShotJobDisabledAfterRun(t *testing.T) {
	service, runner, _ := createTestService(t)
	defer func() { _ = service.Stop() }()

	job, err := service.AddJob(AddParams{
		Name:     "one shot",
		Enabled:  true,
		Spec:     Spec{Kind: KindAt, At: time.Now().Add(time.Hour).Format(time.RFC3339)},
		Scenario: "scenarios/once.json",
	})
	require.NoError(t, err)

	require.NoError(t, service.RunJob(job.ID, RunModeForce))
	waitForStatus(t, service, job.ID, "ok")

	after := service.GetJob(job.ID)
	assert.False(t, after.Enabled)
	assert.Nil(t, after.State.NextRunAtMs)
	assert.Equal(t, 1, runner.runCount())
}

func TestDeleteAfterRun(t *testing.T) {
	service, runner, _ := createTestService(t)
	defer func() { _ = service.Stop() }()

	params := createTestJob()
	params.DeleteAfterRun = true

	job, err := service.AddJob(params)
	require.NoError(t, err)

	require.NoError(t, service.RunJob(job.ID, RunModeForce))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && service.GetJob(job.ID) != nil {
		time.Sleep(10 * time.Millisecond)
	}

	assert.Nil(t, service.GetJob(job.ID))
	assert.Contains(t, runner.eventActions(), EventActionDeleted)
}

func TestRetryBackoff(t *testing.T) {
	t.Run("returns zero for non-error state", func(t *testing.T) {
		assert.Equal(t, time.Duration(0), retryBackoff(Spec{Kind: KindEvery}, 0))
	})

	t.Run("returns zero for one-shot schedules", func(t *testing.T) {
		assert.Equal(t, time.Duration(0), retryBackoff(Spec{Kind: KindAt}, 3))
	})

	t.Run("uses expected progression and caps at max", func(t *testing.T) {
		spec := Spec{Kind: KindEvery}
		assert.Equal(t, 30*time.Second, retryBackoff(spec, 1))
		assert.Equal(t, 1*time.Minute, retryBackoff(spec, 2))
		assert.Equal(t, 5*time.Minute, retryBackoff(spec, 3))
		assert.Equal(t, 15*time.Minute, retryBackoff(spec, 4))
		assert.Equal(t, 60*time.Minute, retryBackoff(spec, 5))
		assert.Equal(t, 60*time.Minute, retryBackoff(spec, 8))
	})
}

func TestRunJobAppliesRetryBackoffAndResetsOnSuccess(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "jobs.json")

	var mu sync.Mutex
	failCount := 0
	service, err := NewService(Options{
		StorePath: storePath,
		Run: func(*Job) error {
			mu.Lock()
			defer mu.Unlock()
			if failCount < 1 {
				failCount++
				return fmt.Errorf("injected failure")
			}
			return nil
		},
	})
	require.NoError(t, err)
	defer func() { _ = service.Stop() }()

	job, err := service.AddJob(AddParams{
		Name:     "backoff-test",
		Enabled:  true,
		Spec:     Spec{Kind: KindEvery, EveryMs: 100},
		Scenario: "scenarios/backoff.json",
	})
	require.NoError(t, err)

	require.NoError(t, service.RunJob(job.ID, RunModeForce))
	waitForStatus(t, service, job.ID, "error")

	stateAfterError := service.GetJob(job.ID).State
	require.NotNil(t, stateAfterError.LastRunAtMs)
	require.NotNil(t, stateAfterError.NextRunAtMs)
	assert.Equal(t, 1, stateAfterError.ConsecutiveErrors)
	assert.GreaterOrEqual(
		t,
		*stateAfterError.NextRunAtMs-*stateAfterError.LastRunAtMs,
		int64((30*time.Second)/time.Millisecond),
	)

	require.NoError(t, service.RunJob(job.ID, RunModeForce))
	waitForStatus(t, service, job.ID, "ok")

	assert.Equal(t, 0, service.GetJob(job.ID).State.ConsecutiveErrors)
}

func TestListJobs(t *testing.T) {
	t.Run("returns all jobs sorted by creation time", func(t *testing.T) {
		service, _, _ := createTestService(t)
		defer func() { _ = service.Stop() }()

		job1, err := service.AddJob(createTestJob())
		require.NoError(t, err)

		time.Sleep(10 * time.Millisecond)

		job2, err := service.AddJob(createTestJob())
		require.NoError(t, err)

		jobs := service.ListJobs(nil)
		require.Len(t, jobs, 2)
		assert.Equal(t, job1.ID, jobs[0].ID)
		assert.Equal(t, job2.ID, jobs[1].ID)
	})

	t.Run("filters by enabled", func(t *testing.T) {
		service, _, _ := createTestService(t)
		defer func() { _ = service.Stop() }()

		_, err := service.AddJob(createTestJob())
		require.NoError(t, err)

		disabled := createTestJob()
		disabled.Enabled = false
		_, err = service.AddJob(disabled)
		require.NoError(t, err)

		enabled := true
		jobs := service.ListJobs(&enabled)
		require.Len(t, jobs, 1)
		assert.True(t, jobs[0].Enabled)
	})

	t.Run("returns empty slice when no jobs", func(t *testing.T) {
		service, _, _ := createTestService(t)
		defer func() { _ = service.Stop() }()

		assert.Len(t, service.ListJobs(nil), 0)
	})
}

func TestPersistence(t *testing.T) {
	t.Run("loads jobs on startup", func(t *testing.T) {
		storePath := filepath.Join(t.TempDir(), "jobs.json")
		runner := newMockRunner()

		service1, err := NewService(Options{StorePath: storePath, Run: runner.run})
		require.NoError(t, err)

		job, err := service1.AddJob(createTestJob())
		require.NoError(t, err)
		require.NoError(t, service1.Stop())

		service2, err := NewService(Options{StorePath: storePath, Run: runner.run})
		require.NoError(t, err)
		defer func() { _ = service2.Stop() }()

		retrieved := service2.GetJob(job.ID)
		require.NotNil(t, retrieved)
		assert.Equal(t, job.Name, retrieved.Name)
		assert.Equal(t, job.Scenario, retrieved.Scenario)
		assert.Nil(t, retrieved.State.RunningAtMs)
	})

	t.Run("handles missing file gracefully", func(t *testing.T) {
		service, _, _ := createTestService(t)
		defer func() { _ = service.Stop() }()

		assert.Len(t, service.ListJobs(nil), 0)
	})

	t.Run("uses atomic file replacement", func(t *testing.T) {
		service, _, storePath := createTestService(t)
		defer func() { _ = service.Stop() }()

		_, err := service.AddJob(createTestJob())
		require.NoError(t, err)

		_, err = os.Stat(storePath + ".tmp")
		assert.True(t, os.IsNotExist(err))

		_, err = os.Stat(storePath)
		assert.NoError(t, err)
	})
}

func TestStop(t *testing.T) {
	t.Run("cancels all timers", func(t *testing.T) {
		service, _, _ := createTestService(t)

		_, err := service.AddJob(createTestJob())
		require.NoError(t, err)
		_, err = service.AddJob(createTestJob())
		require.NoError(t, err)

		require.NoError(t, service.Stop())

		service.mu.RLock()
		timerCount := len(service.timers)
		service.mu.RUnlock()
		assert.Equal(t, 0, timerCount)
	})

	t.Run("persists state", func(t *testing.T) {
		service, _, storePath := createTestService(t)

		job, err := service.AddJob(createTestJob())
		require.NoError(t, err)
		require.NoError(t, service.Stop())

		data, err := os.ReadFile(storePath)
		require.NoError(t, err)
		assert.Contains(t, string(data), job.ID)
	})

	t.Run("prevents new operations", func(t *testing.T) {
		service, _, _ := createTestService(t)

		require.NoError(t, service.Stop())

		_, err := service.AddJob(createTestJob())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "stopped")
	})
}
