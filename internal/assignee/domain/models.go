package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/servicedesk/internal/relation"
)

// Assignee assigns a user to a parent entity.
type Assignee struct {
	ID         snowflake.ID  `gorm:"primaryKey" json:"id"`
	LinkedID   snowflake.ID  `gorm:"not null;uniqueIndex:ux_assignees_parent_user,priority:2" json:"linked_id"`
	LinkedKind relation.Kind `gorm:"type:varchar(32);not null;uniqueIndex:ux_assignees_parent_user,priority:1" json:"linked_kind"`
	UserID     snowflake.ID  `gorm:"not null;index;uniqueIndex:ux_assignees_parent_user,priority:3" json:"user_id"`
	AssignedBy snowflake.ID  `gorm:"not null" json:"assigned_by"`
	CreatedAt  time.Time     `gorm:"not null" json:"created_at"`
}

func (Assignee) TableName() string { return "assignees" }
