package dto

import (
	"time"

	"github.com/yukikurage/org-task-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID             uint64      `json:"id"`
	Email          string      `json:"email"`
	FirstName      string      `json:"firstName"`
	LastName       string      `json:"lastName"`
	Role           models.Role `json:"role"`
	OrganizationID uint64      `json:"organizationId"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// UserSummaryDTO is the short form used for task creators and assignees
type UserSummaryDTO struct {
	ID        uint64 `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// ToUserDTO converts a user model to DTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:             user.ID,
		Email:          user.Email,
		FirstName:      user.FirstName,
		LastName:       user.LastName,
		Role:           user.Role,
		OrganizationID: user.OrganizationID,
		CreatedAt:      user.CreatedAt,
		UpdatedAt:      user.UpdatedAt,
	}
}

// ToUserDTOs converts a slice of users
func ToUserDTOs(users []models.User) []UserDTO {
	out := make([]UserDTO, len(users))
	for i, user := range users {
		out[i] = ToUserDTO(user)
	}
	return out
}

// ToUserSummaryDTO converts a user model to its short form
func ToUserSummaryDTO(user models.User) UserSummaryDTO {
	return UserSummaryDTO{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
	}
}

// SessionDTO is returned by register, join-organization, login and me.
type SessionDTO struct {
	Token        string          `json:"token,omitempty"`
	User         UserDTO         `json:"user"`
	Organization OrganizationDTO `json:"organization"`
}

// ToSessionDTO builds the session payload for user.
func ToSessionDTO(token string, user models.User, org models.Organization) SessionDTO {
	return SessionDTO{
		Token:        token,
		User:         ToUserDTO(user),
		Organization: ToOrganizationDTO(org, CanSeeInviteCode(user.Role)),
	}
}
