package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Request is a unit of work a client books against a catalog service.
// Credits always equals the cost of ServiceID as of the last commit.
type Request struct {
	ID              snowflake.ID  `gorm:"primaryKey" json:"id"`
	WorkspaceID     snowflake.ID  `gorm:"not null;index:idx_requests_workspace_status,priority:1" json:"workspace_id"`
	CreatedBy       snowflake.ID  `gorm:"not null;index" json:"created_by"`
	Title           string        `gorm:"type:text;not null" json:"title"`
	Details         string        `gorm:"type:text" json:"details"`
	ServiceID       snowflake.ID  `gorm:"not null" json:"service_id"`
	Credits         int64         `gorm:"not null" json:"credits"`
	Status          Status        `gorm:"type:varchar(32);not null;index:idx_requests_workspace_status,priority:2" json:"status"`
	Priority        Priority      `gorm:"type:varchar(16);not null" json:"priority"`
	DueDate         *time.Time    `json:"due_date,omitempty"`
	InternalDueDate *time.Time    `json:"internal_due_date,omitempty"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty"`
	ArchivedAt      *time.Time    `gorm:"index" json:"archived_at,omitempty"`
	ParentRequestID *snowflake.ID `gorm:"index" json:"parent_request_id,omitempty"`
	CreatedAt       time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time     `gorm:"not null" json:"updated_at"`
}

func (Request) TableName() string { return "requests" }

func (r *Request) Archived() bool {
	return r.ArchivedAt != nil
}

func (r *Request) IsSubtask() bool {
	return r.ParentRequestID != nil && *r.ParentRequestID != 0
}
