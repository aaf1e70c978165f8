package repository

import (
	"context"

	"github.com/yukikurage/org-task-api/internal/database"
	"github.com/yukikurage/org-task-api/internal/models"
	"github.com/yukikurage/org-task-api/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task. The organization row is locked before the
// assignee is checked, the same lock RemoveMember holds while it unassigns
// and deletes a member.
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockOrganization(tx, task.OrganizationID); err != nil {
			return err
		}

		if task.AssignedToID != nil {
			if err := ensureMember(tx, task.OrganizationID, *task.AssignedToID); err != nil {
				return err
			}
		}

		return tx.Omit(clause.Associations).Create(task).Error
	})
}

// FindByID finds a task inside an organization with optional preloading.
// Tasks of other organizations are reported as gorm.ErrRecordNotFound.
func (r *GormTaskRepository) FindByID(ctx context.Context, organizationID, id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db.WithContext(ctx)

	// Apply preloading if specified
	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.Where("organization_id = ?", organizationID).First(&task, id).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// List retrieves tasks newest first. Pagination applies only when Page is set.
func (r *GormTaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	query := r.db.WithContext(ctx).Model(&models.Task{}).Where("tasks.organization_id = ?", filter.OrganizationID)

	// Apply filters
	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.Category != nil {
		query = query.Where("tasks.category = ?", *filter.Category)
	}
	if filter.Priority != nil {
		query = query.Where("tasks.priority = ?", *filter.Priority)
	}
	if filter.AssignedToID != nil {
		query = query.Where("tasks.assigned_to_id = ?", *filter.AssignedToID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("tasks.created_at DESC, tasks.id DESC")
	if filter.Page > 0 && filter.PageSize > 0 {
		listQuery = listQuery.Scopes(database.Paginate(utils.PaginationParams{
			Page:   filter.Page,
			Limit:  filter.PageSize,
			Offset: (filter.Page - 1) * filter.PageSize,
		}))
	}

	if err := listQuery.Preload("Creator").Preload("Assignee").Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// UpdateLocked runs a read-modify-write on one task. Locks are taken
// organization first, then task, matching RemoveMember.
func (r *GormTaskRepository) UpdateLocked(ctx context.Context, organizationID, id uint64, mutate func(task *models.Task) error) (*models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockOrganization(tx, organizationID); err != nil {
			return err
		}

		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("organization_id = ?", organizationID).
			First(&task, id).Error; err != nil {
			return err
		}

		previous := task.AssignedToID
		if err := mutate(&task); err != nil {
			return err
		}

		if task.AssignedToID != nil && (previous == nil || *previous != *task.AssignedToID) {
			if err := ensureMember(tx, organizationID, *task.AssignedToID); err != nil {
				return err
			}
		}

		return tx.Omit(clause.Associations).Save(&task).Error
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateStatus applies a status change as a single conditional UPDATE. Zero
// rows means the task is missing, expired, or assigned to someone else.
func (r *GormTaskRepository) UpdateStatus(ctx context.Context, change StatusChange) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Task{}).
		Where("id = ? AND organization_id = ?", change.TaskID, change.OrganizationID).
		Where("(assigned_to_id IS NULL OR assigned_to_id = ?)", change.CallerID).
		Where("status <> ?", models.TaskStatusExpired).
		Updates(map[string]interface{}{
			"status":       change.Status,
			"completed_at": change.CompletedAt,
		})
	return result.RowsAffected, result.Error
}

// Delete deletes a task inside an organization
func (r *GormTaskRepository) Delete(ctx context.Context, organizationID, id uint64) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, organizationID).
		Delete(&models.Task{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func lockOrganization(tx *gorm.DB, organizationID uint64) error {
	var org models.Organization
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		First(&org, organizationID).Error
}

func ensureMember(tx *gorm.DB, organizationID, userID uint64) error {
	var count int64
	if err := tx.Model(&models.User{}).
		Where("id = ? AND organization_id = ?", userID, organizationID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrAssigneeNotMember
	}
	return nil
}
