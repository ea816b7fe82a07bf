// Package task keeps the in-memory state of scraping jobs: status, log lines
// and parsed results. Nothing here survives a restart.
package task

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/IshaanNene/MapGoat/internal/types"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError || s == StatusCancelled
}

// Result is a parsed place numbered in the order it was added to its task.
type Result struct {
	ID int `json:"id"`
	types.Place
}

// Task is the record of one scraping job.
type Task struct {
	id        string
	query     string
	many      int
	startTime time.Time
	maxLogs   int
	logger    *slog.Logger

	mu      sync.Mutex
	status  Status
	logs    []string
	results []Result
	endTime time.Time
	cancel  context.CancelFunc
}

// Snapshot is a point-in-time copy of a task, safe to marshal.
type Snapshot struct {
	ID        string     `json:"id"`
	Status    Status     `json:"status"`
	Query     string     `json:"query"`
	Many      int        `json:"many"`
	Logs      []string   `json:"logs"`
	Results   []Result   `json:"results"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

// ID returns the task id.
func (t *Task) ID() string { return t.id }

// Query returns the search query the task was created with.
func (t *Task) Query() string { return t.query }

// Many returns the requested number of places.
func (t *Task) Many() int { return t.many }

// StartTime returns when the task was created.
func (t *Task) StartTime() time.Time { return t.startTime }

// Log trims msg, appends it to the task log and mirrors it to slog.
// The oldest lines are dropped once the log exceeds its cap.
func (t *Task) Log(msg string) {
	msg = strings.TrimSpace(msg)
	t.logger.Info(msg)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.logs = append(t.logs, msg)
	if over := len(t.logs) - t.maxLogs; over > 0 {
		t.logs = append(t.logs[:0:0], t.logs[over:]...)
	}
}

// AddResult appends a place and returns it with its sequential id.
func (t *Task) AddResult(p *types.Place) Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := Result{ID: len(t.results) + 1, Place: *p}
	t.results = append(t.results, r)
	return r
}

// Results returns a copy of the parsed results.
func (t *Task) Results() []Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Result(nil), t.results...)
}

// Logs returns a copy of the log lines.
func (t *Task) Logs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.logs...)
}

// Status returns the current status.
func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// MarkEnded records the end time without changing the status.
func (t *Task) MarkEnded() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.endTime.IsZero() {
		t.endTime = time.Now()
	}
	return t.endTime.Sub(t.startTime)
}

// Finish sets a terminal status and the end time if it is not set yet.
func (t *Task) Finish(s Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.endTime.IsZero() {
		t.endTime = time.Now()
	}
	t.status = s
	t.cancel = nil
}

// Cancel stops a running task. It reports false if the task is not running
// or has no cancel function attached.
func (t *Task) Cancel() bool {
	t.mu.Lock()
	cancel := t.cancel
	running := t.status == StatusRunning
	t.mu.Unlock()

	if !running || cancel == nil {
		return false
	}
	cancel()
	return true
}

// Snapshot returns a copy of the task's state.
func (t *Task) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Snapshot{
		ID:        t.id,
		Status:    t.status,
		Query:     t.query,
		Many:      t.many,
		Logs:      append([]string{}, t.logs...),
		Results:   append([]Result{}, t.results...),
		StartTime: t.startTime,
	}
	if !t.endTime.IsZero() {
		end := t.endTime
		s.EndTime = &end
	}
	return s
}
