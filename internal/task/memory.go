package task

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/model"
)

// Memory is a process-local Registry. Entries live until removed.
type Memory struct {
	mu    sync.RWMutex
	tasks map[string]model.Task
}

// NewMemory creates an empty in-memory registry.
func NewMemory() *Memory {
	return &Memory{tasks: make(map[string]model.Task)}
}

// Submit implements Registry.
func (m *Memory) Submit(_ context.Context, id string) (model.Task, error) {
	t := model.Task{ID: id, Message: MsgSubmitted, Status: model.TaskPending}
	m.mu.Lock()
	m.tasks[id] = t
	m.mu.Unlock()
	return t, nil
}

// Update implements Registry.
func (m *Memory) Update(_ context.Context, id, message string, status model.TaskStatus) (model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return model.Task{}, eris.Wrapf(ErrNotFound, "task %s", id)
	}
	if err := checkTransition(id, t, status); err != nil {
		return t, err
	}
	t.Message = message
	t.Status = status
	m.tasks[id] = t
	return t, nil
}

// Status implements Registry.
func (m *Memory) Status(_ context.Context, id string) (model.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.tasks[id]; ok {
		return t, nil
	}
	return Unknown(id), nil
}

// Remove implements Registry.
func (m *Memory) Remove(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return false, nil
	}
	delete(m.tasks, id)
	return true, nil
}

// Len returns the number of tracked tasks.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tasks)
}
