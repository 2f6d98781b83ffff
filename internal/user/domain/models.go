package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Role string

const (
	RoleAdmin          Role = "admin"
	RoleTeamMember     Role = "team_member"
	RoleSuccessManager Role = "success_manager"
	RoleClient         Role = "client"
)

type User struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Email     string       `gorm:"not null;uniqueIndex" json:"email"`
	FirstName string       `gorm:"column:first_name" json:"first_name"`
	LastName  string       `gorm:"column:last_name" json:"last_name"`
	AvatarURL string       `gorm:"column:avatar_url" json:"avatar_url,omitempty"`
	Role      Role         `gorm:"type:varchar(32);not null;index" json:"role"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string { return "users" }

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// DisplayName falls back to the email when no name is on file.
func (u User) DisplayName() string {
	return DisplayName(u.FirstName, u.LastName, u.Email)
}

func DisplayName(first, last, email string) string {
	name := strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
	if name != "" {
		return name
	}
	return strings.TrimSpace(email)
}
