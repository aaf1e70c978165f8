package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yukikurage/org-task-api/internal/models"
)

var (
	// ErrEmailTaken is returned when a user with the same email already exists.
	ErrEmailTaken = errors.New("email already registered")

	// ErrSlugTaken is returned when another organization owns the slug.
	ErrSlugTaken = errors.New("slug already in use")

	// ErrDuplicateKey is returned when an insert or update hit a unique index
	// the caller did not check for. Callers retry with fresh values.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrLastAdmin is returned when a change would leave an organization
	// without an admin.
	ErrLastAdmin = errors.New("organization would have no admin")

	// ErrAssigneeNotMember is returned when a task write names an assignee
	// who is not a member of the task's organization.
	ErrAssigneeNotMember = errors.New("assignee is not a member of the organization")
)

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task. The assignee, if any, is checked under the
	// organization row lock.
	Create(ctx context.Context, task *models.Task) error

	// FindByID finds a task inside an organization with optional preloading
	FindByID(ctx context.Context, organizationID, id uint64, preload ...string) (*models.Task, error)

	// List retrieves tasks with filtering and optional pagination
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)

	// UpdateLocked loads the task under the organization and task row locks,
	// applies mutate and saves the result in the same transaction. A changed
	// assignee must still be a member when the write happens.
	UpdateLocked(ctx context.Context, organizationID, id uint64, mutate func(task *models.Task) error) (*models.Task, error)

	// UpdateStatus moves a task to status when callerID may act on it and the
	// task is not expired. It returns the number of rows changed.
	UpdateStatus(ctx context.Context, change StatusChange) (int64, error)

	// Delete deletes a task inside an organization
	Delete(ctx context.Context, organizationID, id uint64) error
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	OrganizationID uint64
	Status         *models.TaskStatus
	Category       *models.TaskCategory
	Priority       *models.TaskPriority
	AssignedToID   *uint64
	Page           int
	PageSize       int
}

// StatusChange describes a guarded status transition.
type StatusChange struct {
	OrganizationID uint64
	TaskID         uint64
	CallerID       uint64
	Status         models.TaskStatus
	CompletedAt    *time.Time
}

// OrganizationRepository defines the interface for organization data access
type OrganizationRepository interface {
	// CreateWithAdmin creates the organization and its first admin in one
	// transaction.
	CreateWithAdmin(ctx context.Context, org *models.Organization, admin *models.User) error

	// FindByID finds an organization by ID
	FindByID(ctx context.Context, id uint64) (*models.Organization, error)

	// FindActiveByInviteCode finds an active organization by invite code
	FindActiveByInviteCode(ctx context.Context, code string) (*models.Organization, error)

	// UpdateLocked loads the organization under a row lock, applies mutate
	// and writes name, slug and settings in the same transaction.
	UpdateLocked(ctx context.Context, id uint64, mutate func(org *models.Organization) error) (*models.Organization, error)

	// UpdateInviteCode replaces the invite code of an organization
	UpdateInviteCode(ctx context.Context, id uint64, code string) error

	// UpdateMemberRole changes a member's role, refusing to demote the last admin
	UpdateMemberRole(ctx context.Context, organizationID, userID uint64, role models.Role) (*models.User, error)

	// RemoveMember deletes a member and unassigns their tasks, refusing to
	// remove the last admin
	RemoveMember(ctx context.Context, organizationID, userID uint64) error
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByEmail finds a user by normalized email
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// FindInOrganization finds a user who belongs to the organization
	FindInOrganization(ctx context.Context, organizationID, userID uint64) (*models.User, error)

	// ListByOrganization lists members ordered admin, manager, member, then by
	// first name and id
	ListByOrganization(ctx context.Context, organizationID uint64) ([]models.User, error)
}
