package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	apierrors "github.com/yukikurage/org-task-api/internal/errors"
	"github.com/yukikurage/org-task-api/internal/metrics"
	"github.com/yukikurage/org-task-api/internal/models"
	"github.com/yukikurage/org-task-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound              = fmt.Errorf("%w: task not found", apierrors.ErrNotFound)
	ErrTaskExpired               = fmt.Errorf("%w: task has expired", apierrors.ErrValidation)
	ErrNotTaskAssignee           = fmt.Errorf("%w: not authorized to update this task", apierrors.ErrAuthorization)
	ErrTitleRequired             = fmt.Errorf("%w: title is required", apierrors.ErrValidation)
	ErrInvalidCategory           = fmt.Errorf("%w: category must be bug, feature or improvement", apierrors.ErrValidation)
	ErrInvalidPriority           = fmt.Errorf("%w: priority must be low, medium or high", apierrors.ErrValidation)
	ErrInvalidStatus             = fmt.Errorf("%w: status must be todo, in_progress or completed", apierrors.ErrValidation)
	ErrDueDateRequired           = fmt.Errorf("%w: dueDate is required", apierrors.ErrValidation)
	ErrInvalidDueDate            = fmt.Errorf("%w: dueDate must be YYYY-MM-DD or RFC 3339", apierrors.ErrValidation)
	ErrAssigneeNotInOrganization = fmt.Errorf("%w: assignee is not a member of the organization", apierrors.ErrValidation)
	ErrInvalidAssigneeFilter     = fmt.Errorf("%w: assignedTo must be a user id", apierrors.ErrValidation)
)

// TaskService handles task business logic
type TaskService struct {
	taskRepo repository.TaskRepository
	userRepo repository.UserRepository
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	now      func() time.Time
}

// NewTaskService creates a new TaskService. m may be nil.
func NewTaskService(taskRepo repository.TaskRepository, userRepo repository.UserRepository, m *metrics.Metrics, logger zerolog.Logger) *TaskService {
	return &TaskService{
		taskRepo: taskRepo,
		userRepo: userRepo,
		metrics:  m,
		logger:   logger.With().Str("component", "tasks").Logger(),
		now:      time.Now,
	}
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	OrganizationID uint64
	CreatorID      uint64
	CallerRole     models.Role
	Title          string
	Description    string
	Category       models.TaskCategory
	Priority       models.TaskPriority
	DueDate        string
	AssignedTo     *uint64
}

// ListTasksInput holds the raw list filters. Empty strings mean no filter.
type ListTasksInput struct {
	Status     string
	Category   string
	Priority   string
	AssignedTo string
	Page       int
	PageSize   int
}

// CreateTask creates a todo task in the caller's organization.
func (s *TaskService) CreateTask(ctx context.Context, input CreateTaskInput) (*models.Task, error) {
	if err := requireRole(input.CallerRole, models.ElevatedRoles...); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if !input.Category.Valid() {
		return nil, ErrInvalidCategory
	}
	if !input.Priority.Valid() {
		return nil, ErrInvalidPriority
	}
	dueDate, err := ParseDueDate(input.DueDate)
	if err != nil {
		return nil, err
	}
	if input.AssignedTo != nil {
		if err := s.ensureAssignee(ctx, input.OrganizationID, *input.AssignedTo); err != nil {
			return nil, err
		}
	}

	task := &models.Task{
		OrganizationID: input.OrganizationID,
		Title:          title,
		Description:    input.Description,
		Category:       input.Category,
		Priority:       input.Priority,
		Status:         models.TaskStatusTodo,
		DueDate:        &dueDate,
		AssignedToID:   input.AssignedTo,
		CreatedByID:    input.CreatorID,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		if errors.Is(err, repository.ErrAssigneeNotMember) {
			return nil, ErrAssigneeNotInOrganization
		}
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return s.GetTask(ctx, input.OrganizationID, task.ID)
}

// ListTasks returns the organization's tasks newest first.
func (s *TaskService) ListTasks(ctx context.Context, orgID uint64, input ListTasksInput) ([]models.Task, int64, error) {
	filter := repository.TaskFilter{
		OrganizationID: orgID,
		Page:           input.Page,
		PageSize:       input.PageSize,
	}

	if input.Status != "" {
		status := models.TaskStatus(input.Status)
		if !status.Valid() {
			return nil, 0, fmt.Errorf("%w: unknown status %q", apierrors.ErrValidation, input.Status)
		}
		filter.Status = &status
	}
	if input.Category != "" {
		category := models.TaskCategory(input.Category)
		if !category.Valid() {
			return nil, 0, ErrInvalidCategory
		}
		filter.Category = &category
	}
	if input.Priority != "" {
		priority := models.TaskPriority(input.Priority)
		if !priority.Valid() {
			return nil, 0, ErrInvalidPriority
		}
		filter.Priority = &priority
	}
	if input.AssignedTo != "" {
		assignee, err := strconv.ParseUint(input.AssignedTo, 10, 64)
		if err != nil {
			return nil, 0, ErrInvalidAssigneeFilter
		}
		filter.AssignedToID = &assignee
	}

	tasks, total, err := s.taskRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, total, nil
}

// GetTask returns a task of the organization with creator and assignee
// loaded. Tasks of other organizations are reported as not found.
func (s *TaskService) GetTask(ctx context.Context, orgID, taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, orgID, taskID, "Creator", "Assignee")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

// UpdateTask applies a decoded patch under the organization and task row
// locks. The early assignee lookup only fails fast; membership is checked
// again inside the write.
func (s *TaskService) UpdateTask(ctx context.Context, orgID, taskID uint64, patch TaskPatch, callerRole models.Role) (*models.Task, error) {
	if err := requireRole(callerRole, models.ElevatedRoles...); err != nil {
		return nil, err
	}
	if err := patch.validate(); err != nil {
		return nil, err
	}
	if patch.AssignedTo != nil && !patch.ClearAssignee {
		if err := s.ensureAssignee(ctx, orgID, *patch.AssignedTo); err != nil {
			return nil, err
		}
	}

	_, err := s.taskRepo.UpdateLocked(ctx, orgID, taskID, func(task *models.Task) error {
		return patch.apply(task, s.now().UTC())
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		if errors.Is(err, ErrTaskExpired) {
			return nil, err
		}
		if errors.Is(err, repository.ErrAssigneeNotMember) {
			return nil, ErrAssigneeNotInOrganization
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return s.GetTask(ctx, orgID, taskID)
}

// DeleteTask deletes a task of the organization.
func (s *TaskService) DeleteTask(ctx context.Context, orgID, taskID uint64, callerRole models.Role) error {
	if err := requireRole(callerRole, models.ElevatedRoles...); err != nil {
		return err
	}

	if err := s.taskRepo.Delete(ctx, orgID, taskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.logger.Info().Uint64("organization_id", orgID).Uint64("task_id", taskID).Msg("task deleted")
	return nil
}

// ChangeStatus moves a task to newStatus. Only the assignee may do so, or
// anyone in the organization while the task is unassigned. Expired tasks
// never change.
func (s *TaskService) ChangeStatus(ctx context.Context, orgID, taskID uint64, newStatus models.TaskStatus, callerID uint64) (*models.Task, error) {
	if !newStatus.Settable() {
		return nil, ErrInvalidStatus
	}

	var completedAt *time.Time
	if newStatus == models.TaskStatusCompleted {
		now := s.now().UTC()
		completedAt = &now
	}

	rows, err := s.taskRepo.UpdateStatus(ctx, repository.StatusChange{
		OrganizationID: orgID,
		TaskID:         taskID,
		CallerID:       callerID,
		Status:         newStatus,
		CompletedAt:    completedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update task status: %w", err)
	}

	if rows == 0 {
		return nil, s.explainRejectedStatusChange(ctx, orgID, taskID)
	}

	s.metrics.RecordStatusChange(string(newStatus))
	return s.GetTask(ctx, orgID, taskID)
}

// explainRejectedStatusChange re-reads the task after a guarded update
// matched no row.
func (s *TaskService) explainRejectedStatusChange(ctx context.Context, orgID, taskID uint64) error {
	task, err := s.GetTask(ctx, orgID, taskID)
	if err != nil {
		return err
	}
	if task.Status == models.TaskStatusExpired {
		return ErrTaskExpired
	}
	return ErrNotTaskAssignee
}

func (s *TaskService) ensureAssignee(ctx context.Context, orgID, userID uint64) error {
	if _, err := s.userRepo.FindInOrganization(ctx, orgID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssigneeNotInOrganization
		}
		return fmt.Errorf("failed to check assignee: %w", err)
	}
	return nil
}
