package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/servicedesk/internal/relation"
)

// Activity is a human readable log line about something that happened to
// a parent entity.
type Activity struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"id"`
	WorkspaceID snowflake.ID  `gorm:"not null;index" json:"workspace_id"`
	LinkedID    snowflake.ID  `gorm:"not null;index:idx_activities_parent,priority:2" json:"linked_id"`
	LinkedKind  relation.Kind `gorm:"type:varchar(32);not null;index:idx_activities_parent,priority:1" json:"linked_kind"`
	ActorID     snowflake.ID  `gorm:"not null" json:"actor_id"`
	Message     string        `gorm:"type:text;not null" json:"message"`
	CreatedAt   time.Time     `gorm:"not null" json:"created_at"`
}

func (Activity) TableName() string { return "activities" }
