package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type MemberRole string

const (
	MemberRoleAdmin          MemberRole = "admin"
	MemberRoleMember         MemberRole = "member"
	MemberRoleSuccessManager MemberRole = "success_manager"
)

// Workspace is a tenant. CreditBalance is owned by the ledger and must
// not be written by any other code path.
type Workspace struct {
	ID               snowflake.ID  `gorm:"primaryKey" json:"id"`
	Name             string        `gorm:"not null" json:"name"`
	Slug             string        `gorm:"not null;uniqueIndex" json:"slug"`
	LogoURL          string        `gorm:"column:logo_url" json:"logo_url,omitempty"`
	CreditBalance    int64         `gorm:"column:credit_balance;not null;default:0" json:"credit_balance"`
	PlanID           *snowflake.ID `gorm:"column:plan_id" json:"plan_id,omitempty"`
	SuccessManagerID *snowflake.ID `gorm:"column:success_manager_id;index" json:"success_manager_id,omitempty"`
	CreatedAt        time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time     `gorm:"not null" json:"updated_at"`
}

func (Workspace) TableName() string { return "workspaces" }

type Member struct {
	WorkspaceID snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"workspace_id"`
	UserID      snowflake.ID `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	Role        MemberRole   `gorm:"type:varchar(32);not null" json:"role"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
}

func (Member) TableName() string { return "workspace_members" }
