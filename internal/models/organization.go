package models

import (
	"time"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}

const DefaultTimezone = "UTC"

// OrganizationSettings is stored inline on the organizations table.
type OrganizationSettings struct {
	Theme    Theme  `gorm:"type:varchar(10);not null;default:'light'" json:"theme"`
	Timezone string `gorm:"type:varchar(64);not null;default:'UTC'" json:"timezone"`
}

type Organization struct {
	ID         uint64               `gorm:"primarykey" json:"id"`
	Name       string               `gorm:"type:varchar(255);not null" json:"name"`
	Slug       string               `gorm:"type:varchar(255);uniqueIndex;not null" json:"slug"`
	Settings   OrganizationSettings `gorm:"embedded;embeddedPrefix:settings_" json:"settings"`
	InviteCode string               `gorm:"type:varchar(16);uniqueIndex;not null" json:"invite_code"`
	IsActive   bool                 `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`

	// Relations
	Members []User `gorm:"foreignKey:OrganizationID" json:"members,omitempty"`
	Tasks   []Task `gorm:"foreignKey:OrganizationID" json:"tasks,omitempty"`
}
