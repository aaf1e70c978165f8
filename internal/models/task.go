package models

import (
	"time"
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	// TaskStatusExpired is terminal and is never set from caller input.
	TaskStatusExpired TaskStatus = "expired"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusCompleted, TaskStatusExpired:
		return true
	}
	return false
}

// Settable reports whether callers may move a task into s.
func (s TaskStatus) Settable() bool {
	return s == TaskStatusTodo || s == TaskStatusInProgress || s == TaskStatusCompleted
}

type TaskCategory string

const (
	TaskCategoryBug         TaskCategory = "bug"
	TaskCategoryFeature     TaskCategory = "feature"
	TaskCategoryImprovement TaskCategory = "improvement"
)

func (c TaskCategory) Valid() bool {
	switch c {
	case TaskCategoryBug, TaskCategoryFeature, TaskCategoryImprovement:
		return true
	}
	return false
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

type Task struct {
	ID             uint64       `gorm:"primarykey" json:"id"`
	OrganizationID uint64       `gorm:"not null;index" json:"organization_id"`
	Title          string       `gorm:"not null" json:"title"`
	Description    string       `gorm:"type:text" json:"description"`
	Category       TaskCategory `gorm:"type:varchar(20);not null;index" json:"category"`
	Priority       TaskPriority `gorm:"type:varchar(20);not null;index" json:"priority"`
	Status         TaskStatus   `gorm:"type:varchar(20);not null;default:'todo';index" json:"status"`
	DueDate        *time.Time   `json:"due_date"`
	AssignedToID   *uint64      `gorm:"index" json:"assigned_to"`
	CreatedByID    uint64       `gorm:"not null;index" json:"created_by"`
	CreatedAt      time.Time    `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
	CompletedAt    *time.Time   `json:"completed_at"`

	// Relations
	Organization Organization `gorm:"foreignKey:OrganizationID" json:"-"`
	Creator      User         `gorm:"foreignKey:CreatedByID" json:"-"`
	Assignee     *User        `gorm:"foreignKey:AssignedToID" json:"-"`
}

// ApplyStatus sets the status and keeps CompletedAt set exactly while the task
// is completed.
func (t *Task) ApplyStatus(status TaskStatus, now time.Time) {
	t.Status = status
	if status == TaskStatusCompleted {
		t.CompletedAt = &now
		return
	}
	t.CompletedAt = nil
}
