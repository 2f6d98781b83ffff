package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Action string

const (
	ActionCreation       Action = "creation"
	ActionUpdate         Action = "update"
	ActionStatusChange   Action = "status_change"
	ActionPriorityChange Action = "priority_change"
	ActionArchived       Action = "archived"
)

func (a Action) Valid() bool {
	switch a {
	case ActionCreation, ActionUpdate, ActionStatusChange, ActionPriorityChange, ActionArchived:
		return true
	default:
		return false
	}
}

// Entry is an immutable record of one committed change to a request.
// ChangedFields holds display labels in the order they were detected and
// Snapshot holds the new values keyed by field key.
type Entry struct {
	ID            snowflake.ID                `gorm:"primaryKey" json:"id"`
	RequestID     snowflake.ID                `gorm:"not null;index" json:"request_id"`
	ActorID       snowflake.ID                `gorm:"not null" json:"actor_id"`
	Action        Action                      `gorm:"type:varchar(32);not null" json:"action"`
	ChangedFields datatypes.JSONSlice[string] `gorm:"not null" json:"changed_fields"`
	Snapshot      datatypes.JSONMap           `gorm:"not null" json:"snapshot"`
	CreatedAt     time.Time                   `gorm:"not null" json:"created_at"`
}

func (Entry) TableName() string { return "request_versions" }
