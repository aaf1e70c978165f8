package models

import (
	"time"
)

type User struct {
	ID             uint64    `gorm:"primarykey" json:"id"`
	Email          string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash   string    `gorm:"type:varchar(255);not null" json:"-"`
	FirstName      string    `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName       string    `gorm:"type:varchar(100);not null" json:"last_name"`
	OrganizationID uint64    `gorm:"not null;index" json:"organization_id"`
	Role           Role      `gorm:"type:varchar(20);not null;index" json:"role"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Relations
	Organization  Organization `gorm:"foreignKey:OrganizationID" json:"-"`
	CreatedTasks  []Task       `gorm:"foreignKey:CreatedByID" json:"-"`
	AssignedTasks []Task       `gorm:"foreignKey:AssignedToID" json:"-"`
}
