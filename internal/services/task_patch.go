package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apierrors "github.com/yukikurage/org-task-api/internal/errors"
	"github.com/yukikurage/org-task-api/internal/models"
)

var ErrInvalidTaskUpdate = fmt.Errorf("%w: invalid updates", apierrors.ErrInvalidUpdate)

// TaskPatch is a partial task update. Nil fields are left unchanged;
// ClearAssignee unassigns the task.
type TaskPatch struct {
	Title         *string
	Description   *string
	Category      *models.TaskCategory
	Priority      *models.TaskPriority
	Status        *models.TaskStatus
	DueDate       *time.Time
	AssignedTo    *uint64
	ClearAssignee bool
}

var taskPatchKeys = map[string]bool{
	"title":       true,
	"description": true,
	"category":    true,
	"priority":    true,
	"status":      true,
	"dueDate":     true,
	"assignedTo":  true,
}

// DecodeTaskPatch parses a JSON object into a TaskPatch. Keys outside the
// editable task fields reject the whole patch with ErrInvalidTaskUpdate.
func DecodeTaskPatch(data []byte) (TaskPatch, error) {
	var patch TaskPatch

	fields, err := decodeObject(data)
	if err != nil {
		return patch, err
	}
	if rejected := rejectedKeys(fields, taskPatchKeys, ""); len(rejected) > 0 {
		return patch, invalidKeys(ErrInvalidTaskUpdate, rejected)
	}

	for key, raw := range fields {
		switch key {
		case "title":
			var title string
			if err := json.Unmarshal(raw, &title); err != nil {
				return patch, fieldTypeError(key, "a string")
			}
			patch.Title = &title
		case "description":
			var description string
			if err := json.Unmarshal(raw, &description); err != nil {
				return patch, fieldTypeError(key, "a string")
			}
			patch.Description = &description
		case "category":
			var category models.TaskCategory
			if err := json.Unmarshal(raw, &category); err != nil {
				return patch, fieldTypeError(key, "a string")
			}
			patch.Category = &category
		case "priority":
			var priority models.TaskPriority
			if err := json.Unmarshal(raw, &priority); err != nil {
				return patch, fieldTypeError(key, "a string")
			}
			patch.Priority = &priority
		case "status":
			var status models.TaskStatus
			if err := json.Unmarshal(raw, &status); err != nil {
				return patch, fieldTypeError(key, "a string")
			}
			patch.Status = &status
		case "dueDate":
			var value string
			if err := json.Unmarshal(raw, &value); err != nil {
				return patch, fieldTypeError(key, "a date string")
			}
			dueDate, err := ParseDueDate(value)
			if err != nil {
				return patch, err
			}
			patch.DueDate = &dueDate
		case "assignedTo":
			if isJSONNull(raw) {
				patch.ClearAssignee = true
				continue
			}
			var assignee uint64
			if err := json.Unmarshal(raw, &assignee); err != nil || assignee == 0 {
				return patch, fieldTypeError(key, "a user id or null")
			}
			patch.AssignedTo = &assignee
		}
	}

	return patch, nil
}

// validate checks field values that do not depend on stored state.
func (p TaskPatch) validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return ErrTitleRequired
	}
	if p.Category != nil && !p.Category.Valid() {
		return ErrInvalidCategory
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return ErrInvalidPriority
	}
	if p.Status != nil && !p.Status.Settable() {
		return ErrInvalidStatus
	}
	return nil
}

// apply writes the patch onto task. Status changes keep CompletedAt in step
// and are refused once the task has expired.
func (p TaskPatch) apply(task *models.Task, now time.Time) error {
	if p.Status != nil && *p.Status != task.Status {
		if task.Status == models.TaskStatusExpired {
			return ErrTaskExpired
		}
		task.ApplyStatus(*p.Status, now)
	}
	if p.Title != nil {
		task.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		task.Description = *p.Description
	}
	if p.Category != nil {
		task.Category = *p.Category
	}
	if p.Priority != nil {
		task.Priority = *p.Priority
	}
	if p.DueDate != nil {
		task.DueDate = p.DueDate
	}
	if p.ClearAssignee {
		task.AssignedToID = nil
	} else if p.AssignedTo != nil {
		task.AssignedToID = p.AssignedTo
	}
	return nil
}

// ParseDueDate accepts YYYY-MM-DD or RFC 3339 and returns the calendar date
// at UTC midnight.
func ParseDueDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrDueDateRequired
	}

	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		t, err = time.Parse(time.RFC3339, value)
		if err != nil {
			return time.Time{}, ErrInvalidDueDate
		}
	}

	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

func isJSONNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}
