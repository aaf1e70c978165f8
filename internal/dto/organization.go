package dto

import (
	"time"

	"github.com/yukikurage/org-task-api/internal/models"
)

// OrganizationSettingsDTO represents the organization settings
type OrganizationSettingsDTO struct {
	Theme    models.Theme `json:"theme"`
	Timezone string       `json:"timezone"`
}

// OrganizationDTO represents an organization in API responses
type OrganizationDTO struct {
	ID         uint64                  `json:"id"`
	Name       string                  `json:"name"`
	Slug       string                  `json:"slug"`
	Settings   OrganizationSettingsDTO `json:"settings"`
	InviteCode string                  `json:"inviteCode,omitempty"`
	IsActive   bool                    `json:"isActive"`
	CreatedAt  time.Time               `json:"createdAt"`
	UpdatedAt  time.Time               `json:"updatedAt"`
}

// ToOrganizationDTO converts an organization to DTO. The invite code is only
// exposed when includeInviteCode is set.
func ToOrganizationDTO(org models.Organization, includeInviteCode bool) OrganizationDTO {
	out := OrganizationDTO{
		ID:   org.ID,
		Name: org.Name,
		Slug: org.Slug,
		Settings: OrganizationSettingsDTO{
			Theme:    org.Settings.Theme,
			Timezone: org.Settings.Timezone,
		},
		IsActive:  org.IsActive,
		CreatedAt: org.CreatedAt,
		UpdatedAt: org.UpdatedAt,
	}
	if includeInviteCode {
		out.InviteCode = org.InviteCode
	}
	return out
}

// CanSeeInviteCode reports whether role may read the organization's invite code.
func CanSeeInviteCode(role models.Role) bool {
	return role.In(models.ElevatedRoles...)
}

// InviteCodeDTO is returned after rotating the invite code or sending an
// invitation.
type InviteCodeDTO struct {
	InviteCode string `json:"inviteCode"`
	Email      string `json:"email,omitempty"`
}
