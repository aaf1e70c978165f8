package dto

import (
	"time"

	"github.com/yukikurage/org-task-api/internal/models"
	"github.com/yukikurage/org-task-api/internal/utils"
)

const dueDateLayout = time.DateOnly

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID             uint64              `json:"id"`
	OrganizationID uint64              `json:"organizationId"`
	Title          string              `json:"title"`
	Description    string              `json:"description"`
	Category       models.TaskCategory `json:"category"`
	Priority       models.TaskPriority `json:"priority"`
	Status         models.TaskStatus   `json:"status"`
	DueDate        *string             `json:"dueDate"`
	AssignedTo     *uint64             `json:"assignedTo"`
	CreatedBy      uint64              `json:"createdBy"`
	Assignee       *UserSummaryDTO     `json:"assignee,omitempty"`
	Creator        *UserSummaryDTO     `json:"creator,omitempty"`
	CompletedAt    *time.Time          `json:"completedAt"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}

// ToTaskDTO converts a task model to DTO. Creator and assignee are included
// when they were preloaded.
func ToTaskDTO(task models.Task) TaskDTO {
	out := TaskDTO{
		ID:             task.ID,
		OrganizationID: task.OrganizationID,
		Title:          task.Title,
		Description:    task.Description,
		Category:       task.Category,
		Priority:       task.Priority,
		Status:         task.Status,
		AssignedTo:     task.AssignedToID,
		CreatedBy:      task.CreatedByID,
		CompletedAt:    task.CompletedAt,
		CreatedAt:      task.CreatedAt,
		UpdatedAt:      task.UpdatedAt,
	}

	if task.DueDate != nil {
		due := task.DueDate.UTC().Format(dueDateLayout)
		out.DueDate = &due
	}
	if task.Creator.ID != 0 {
		creator := ToUserSummaryDTO(task.Creator)
		out.Creator = &creator
	}
	if task.Assignee != nil && task.Assignee.ID != 0 {
		assignee := ToUserSummaryDTO(*task.Assignee)
		out.Assignee = &assignee
	}

	return out
}

// ToTaskDTOs converts a slice of tasks
func ToTaskDTOs(tasks []models.Task) []TaskDTO {
	out := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		out[i] = ToTaskDTO(task)
	}
	return out
}

// TaskListDTO wraps a task list. Pagination is present only when a page was
// requested.
type TaskListDTO struct {
	Tasks      []TaskDTO                 `json:"tasks"`
	Pagination *utils.PaginationResponse `json:"pagination,omitempty"`
}
