package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Category string

const (
	CategoryRequestCreated       Category = "request_created"
	CategoryRequestUpdated       Category = "request_updated"
	CategoryRequestStatusChanged Category = "request_status_changed"
)

// Notification is one inbox row for one recipient. Rows written by the
// same dispatch share a BatchID.
type Notification struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	BatchID     string            `gorm:"type:varchar(36);not null;index" json:"batch_id"`
	RecipientID snowflake.ID      `gorm:"not null;index" json:"recipient_id"`
	WorkspaceID snowflake.ID      `gorm:"not null;index" json:"workspace_id"`
	RequestID   *snowflake.ID     `gorm:"index" json:"request_id,omitempty"`
	ActorID     snowflake.ID      `gorm:"not null" json:"actor_id"`
	Category    Category          `gorm:"type:varchar(64);not null" json:"category"`
	Payload     datatypes.JSONMap `json:"payload,omitempty"`
	ReadAt      *time.Time        `json:"read_at,omitempty"`
	CreatedAt   time.Time         `gorm:"not null" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }

// Batch is the result of one dispatch, handed to Deliver after commit.
type Batch struct {
	ID            string
	Category      Category
	WorkspaceID   snowflake.ID
	RequestID     snowflake.ID
	ActorID       snowflake.ID
	Payload       map[string]any
	Notifications []*Notification
}

func (b *Batch) RecipientIDs() []snowflake.ID {
	if b == nil {
		return nil
	}
	ids := make([]snowflake.ID, 0, len(b.Notifications))
	for _, n := range b.Notifications {
		ids = append(ids, n.RecipientID)
	}
	return ids
}
