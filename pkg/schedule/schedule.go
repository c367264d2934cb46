// Package schedule runs scenarios on timers: one-shot "at" times, fixed
// "every" intervals, and 5-field cron expressions. Jobs are persisted to a
// JSON registry so schedules survive daemon restarts.
package schedule

import "time"

// Kind selects how a job's next run time is derived.
type Kind string

const (
	KindAt    Kind = "at"
	KindEvery Kind = "every"
	KindCron  Kind = "cron"
)

// Spec is the time specification for a job.
type Spec struct {
	Kind Kind `json:"kind"`

	// For "at": an RFC 3339 timestamp.
	At string `json:"at,omitempty"`

	// For "every": interval, plus an optional anchor the interval is
	// aligned to.
	EveryMs  int64  `json:"everyMs,omitempty"`
	AnchorMs *int64 `json:"anchorMs,omitempty"`

	// For "cron": 5-field expression and optional IANA timezone.
	Expr string `json:"expr,omitempty"`
	TZ   string `json:"tz,omitempty"`
}

// JobState tracks the runtime state of a job across executions.
type JobState struct {
	NextRunAtMs       *int64 `json:"nextRunAtMs,omitempty"`
	RunningAtMs       *int64 `json:"runningAtMs,omitempty"`
	LastRunAtMs       *int64 `json:"lastRunAtMs,omitempty"`
	LastStatus        string `json:"lastStatus,omitempty"` // "ok" or "error"
	LastError         string `json:"lastError,omitempty"`
	LastDurationMs    *int64 `json:"lastDurationMs,omitempty"`
	ConsecutiveErrors int    `json:"consecutiveErrors,omitempty"`
}

// Job is a persisted scheduled scenario run.
type Job struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Description    string            `json:"description,omitempty"`
	Enabled        bool              `json:"enabled"`
	DeleteAfterRun bool              `json:"deleteAfterRun,omitempty"`
	CreatedAtMs    int64             `json:"createdAtMs"`
	UpdatedAtMs    int64             `json:"updatedAtMs"`
	Spec           Spec              `json:"spec"`
	Scenario       string            `json:"scenario"`
	Context        map[string]string `json:"context,omitempty"`
	State          JobState          `json:"state"`
}

// AddParams contains the fields needed to create a job.
type AddParams struct {
	Name           string            `json:"name"`
	Description    string            `json:"description,omitempty"`
	Enabled        bool              `json:"enabled"`
	DeleteAfterRun bool              `json:"deleteAfterRun,omitempty"`
	Spec           Spec              `json:"spec"`
	Scenario       string            `json:"scenario"`
	Context        map[string]string `json:"context,omitempty"`
}

// JobPatch contains the fields that can be updated on an existing job.
// Nil fields are left untouched.
type JobPatch struct {
	Name           *string            `json:"name,omitempty"`
	Description    *string            `json:"description,omitempty"`
	Enabled        *bool              `json:"enabled,omitempty"`
	DeleteAfterRun *bool              `json:"deleteAfterRun,omitempty"`
	Spec           *Spec              `json:"spec,omitempty"`
	Scenario       *string            `json:"scenario,omitempty"`
	Context        *map[string]string `json:"context,omitempty"`
}

// EventAction identifies what happened to a job.
type EventAction string

const (
	EventActionAdded    EventAction = "added"
	EventActionUpdated  EventAction = "updated"
	EventActionDeleted  EventAction = "deleted"
	EventActionFinished EventAction = "finished"
)

// Event describes a change in the job registry or a finished execution.
type Event struct {
	Action      EventAction `json:"action"`
	JobID       string      `json:"jobId"`
	Status      string      `json:"status,omitempty"`
	Error       string      `json:"error,omitempty"`
	DurationMs  *int64      `json:"durationMs,omitempty"`
	NextRunAtMs *int64      `json:"nextRunAtMs,omitempty"`
}

// RunMode selects how RunJob treats a disabled job.
type RunMode string

const (
	RunModeDue   RunMode = "due"   // respect the enabled flag
	RunModeForce RunMode = "force" // run regardless
)

// Options configures the scheduler service.
type Options struct {
	// StorePath is the path of the jobs.json registry.
	StorePath string

	// Run executes the job's scenario. Called off the service lock.
	Run func(job *Job) error

	// OnEvent, when set, receives registry and execution events. Called
	// with the service lock held; must not call back into the service.
	OnEvent func(evt Event)
}

// Now returns the current time in milliseconds.
func Now() int64 {
	return time.Now().UnixMilli()
}

// Int64Ptr returns a pointer to an int64 value.
func Int64Ptr(v int64) *int64 {
	return &v
}

// StringPtr returns a pointer to a string value.
func StringPtr(v string) *string {
	return &v
}

// BoolPtr returns a pointer to a bool value.
func BoolPtr(v bool) *bool {
	return &v
}
