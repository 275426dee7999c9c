package model

// TaskStatus is the lifecycle state of a background task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
	// TaskUnknown is reported for ids the registry does not hold.
	TaskUnknown TaskStatus = "unknown"
)

// Terminal reports whether no further transition is allowed.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// Valid reports whether s can be stored in a registry.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskProcessing, TaskCompleted, TaskFailed:
		return true
	}
	return false
}

// Task is the observable state of one background insertion run.
type Task struct {
	ID      string     `json:"task_id"`
	Message string     `json:"message"`
	Status  TaskStatus `json:"status"`
}
