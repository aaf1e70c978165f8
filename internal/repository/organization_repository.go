package repository

import (
	"context"
	"errors"

	"github.com/yukikurage/org-task-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrganizationRepository is a GORM implementation of OrganizationRepository
type GormOrganizationRepository struct {
	db *gorm.DB
}

// NewOrganizationRepository creates a new OrganizationRepository
func NewOrganizationRepository(db *gorm.DB) OrganizationRepository {
	return &GormOrganizationRepository{db: db}
}

// CreateWithAdmin creates the organization and its first admin in a transaction.
// Email and slug clashes are reported as ErrEmailTaken and ErrSlugTaken; an
// invite code clash is reported as ErrDuplicateKey.
func (r *GormOrganizationRepository) CreateWithAdmin(ctx context.Context, org *models.Organization, admin *models.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureEmailFree(tx, admin.Email); err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.Organization{}).Where("slug = ?", org.Slug).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrSlugTaken
		}

		if err := tx.Model(&models.Organization{}).Where("invite_code = ?", org.InviteCode).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateKey
		}

		if err := tx.Omit(clause.Associations).Create(org).Error; err != nil {
			return translateDuplicate(err)
		}

		admin.OrganizationID = org.ID
		admin.Role = models.RoleAdmin
		if err := tx.Omit(clause.Associations).Create(admin).Error; err != nil {
			return translateDuplicate(err)
		}

		return nil
	})
}

// FindByID finds an organization by ID
func (r *GormOrganizationRepository) FindByID(ctx context.Context, id uint64) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.WithContext(ctx).First(&org, id).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

// FindActiveByInviteCode finds an active organization by invite code
func (r *GormOrganizationRepository) FindActiveByInviteCode(ctx context.Context, code string) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.WithContext(ctx).
		Where("invite_code = ? AND is_active = ?", code, true).
		First(&org).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

// UpdateLocked runs a read-modify-write on the organization's name and
// settings under a row lock. A slug owned by another organization is reported
// as ErrSlugTaken.
func (r *GormOrganizationRepository) UpdateLocked(ctx context.Context, id uint64, mutate func(org *models.Organization) error) (*models.Organization, error) {
	var org models.Organization
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&org, id).Error; err != nil {
			return err
		}

		if err := mutate(&org); err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.Organization{}).
			Where("slug = ? AND id <> ?", org.Slug, org.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrSlugTaken
		}

		err := tx.Model(&models.Organization{}).Where("id = ?", org.ID).Updates(map[string]interface{}{
			"name":              org.Name,
			"slug":              org.Slug,
			"settings_theme":    org.Settings.Theme,
			"settings_timezone": org.Settings.Timezone,
		}).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrSlugTaken
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// UpdateInviteCode replaces the invite code. A code held by another
// organization is reported as ErrDuplicateKey.
func (r *GormOrganizationRepository) UpdateInviteCode(ctx context.Context, id uint64, code string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Organization{}).
			Where("invite_code = ? AND id <> ?", code, id).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateKey
		}

		result := tx.Model(&models.Organization{}).Where("id = ?", id).Update("invite_code", code)
		if result.Error != nil {
			return translateDuplicate(result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// UpdateMemberRole changes the role of a member while holding the organization
// row lock, so concurrent demotions cannot both pass the admin count.
func (r *GormOrganizationRepository) UpdateMemberRole(ctx context.Context, organizationID, userID uint64, role models.Role) (*models.User, error) {
	var user models.User
	err := r.withOrganizationLock(ctx, organizationID, func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND organization_id = ?", userID, organizationID).First(&user).Error; err != nil {
			return err
		}

		if user.Role == models.RoleAdmin && role != models.RoleAdmin {
			if err := ensureAnotherAdmin(tx, organizationID); err != nil {
				return err
			}
		}

		if err := tx.Model(&user).Update("role", role).Error; err != nil {
			return err
		}
		user.Role = role
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// RemoveMember deletes a member and clears their task assignments in the same
// transaction as the admin count.
func (r *GormOrganizationRepository) RemoveMember(ctx context.Context, organizationID, userID uint64) error {
	return r.withOrganizationLock(ctx, organizationID, func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("id = ? AND organization_id = ?", userID, organizationID).First(&user).Error; err != nil {
			return err
		}

		if user.Role == models.RoleAdmin {
			if err := ensureAnotherAdmin(tx, organizationID); err != nil {
				return err
			}
		}

		if err := tx.Model(&models.Task{}).
			Where("organization_id = ? AND assigned_to_id = ?", organizationID, userID).
			Update("assigned_to_id", nil).Error; err != nil {
			return err
		}

		return tx.Delete(&user).Error
	})
}

// withOrganizationLock runs fn in a transaction that first takes a row lock on
// the organization. Every write that depends on the admin count goes through
// here.
func (r *GormOrganizationRepository) withOrganizationLock(ctx context.Context, organizationID uint64, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockOrganization(tx, organizationID); err != nil {
			return err
		}
		return fn(tx)
	})
}

func ensureAnotherAdmin(tx *gorm.DB, organizationID uint64) error {
	var admins int64
	if err := tx.Model(&models.User{}).
		Where("organization_id = ? AND role = ?", organizationID, models.RoleAdmin).
		Count(&admins).Error; err != nil {
		return err
	}
	if admins <= 1 {
		return ErrLastAdmin
	}
	return nil
}

func ensureEmailFree(tx *gorm.DB, email string) error {
	var count int64
	if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrEmailTaken
	}
	return nil
}

func translateDuplicate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateKey
	}
	return err
}
