package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/servicedesk/internal/relation"
)

// Link is a URL attached to a parent entity.
type Link struct {
	ID         snowflake.ID  `gorm:"primaryKey" json:"id"`
	LinkedID   snowflake.ID  `gorm:"not null;index:idx_links_parent,priority:2" json:"linked_id"`
	LinkedKind relation.Kind `gorm:"type:varchar(32);not null;index:idx_links_parent,priority:1" json:"linked_kind"`
	URL        string        `gorm:"type:text;not null" json:"url"`
	CreatedBy  snowflake.ID  `gorm:"not null" json:"created_by"`
	CreatedAt  time.Time     `gorm:"not null" json:"created_at"`
}

func (Link) TableName() string { return "links" }
