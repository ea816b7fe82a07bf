package task

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/IshaanNene/MapGoat/internal/types"
)

// Manager is the registry of tasks created by this process.
type Manager struct {
	mu      sync.RWMutex
	tasks   map[string]*Task
	maxLogs int
	logger  *slog.Logger
}

// NewManager creates a Manager whose tasks keep at most maxLogs log lines.
func NewManager(maxLogs int, logger *slog.Logger) *Manager {
	if maxLogs <= 0 {
		maxLogs = 500
	}
	return &Manager{
		tasks:   make(map[string]*Task),
		maxLogs: maxLogs,
		logger:  logger.With("component", "tasks"),
	}
}

// Create registers a new running task.
func (m *Manager) Create(query string, many int) *Task {
	id := uuid.NewString()
	t := &Task{
		id:        id,
		query:     query,
		many:      many,
		startTime: time.Now(),
		maxLogs:   m.maxLogs,
		logger:    m.logger.With("task_id", id),
		status:    StatusRunning,
		logs:      []string{},
		results:   []Result{},
	}

	m.mu.Lock()
	m.tasks[id] = t
	m.mu.Unlock()

	m.logger.Debug("task created", "task_id", id, "query", query, "many", many)
	return t
}

// Get returns the task with the given id.
func (m *Manager) Get(id string) (*Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, types.ErrTaskNotFound
	}
	return t, nil
}

// List returns all tasks, newest first.
func (m *Manager) List() []*Task {
	m.mu.RLock()
	list := make([]*Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		list = append(list, t)
	}
	m.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].startTime.After(list[j].startTime)
	})
	return list
}

// Attach registers the cancel function of a running task.
func (m *Manager) Attach(id string, cancel context.CancelFunc) error {
	t, err := m.Get(id)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.cancel = cancel
	t.mu.Unlock()
	return nil
}

// Len returns the number of registered tasks.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tasks)
}
