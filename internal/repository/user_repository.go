package repository

import (
	"context"
	"errors"

	"github.com/yukikurage/org-task-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const memberOrder = "CASE role WHEN 'admin' THEN 0 WHEN 'manager' THEN 1 ELSE 2 END, first_name, id"

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user. An existing email is reported as ErrEmailTaken.
func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureEmailFree(tx, user.Email); err != nil {
			return err
		}
		err := tx.Omit(clause.Associations).Create(user).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEmailTaken
		}
		return err
	})
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail finds a user by email
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindInOrganization finds a user who belongs to the organization
func (r *GormUserRepository) FindInOrganization(ctx context.Context, organizationID, userID uint64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", userID, organizationID).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ListByOrganization lists the members of an organization
func (r *GormUserRepository) ListByOrganization(ctx context.Context, organizationID uint64) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order(memberOrder).
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
