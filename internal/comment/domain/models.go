package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/servicedesk/internal/relation"
)

// Comment belongs to a request, or to another comment when it is a reply.
type Comment struct {
	ID         snowflake.ID  `gorm:"primaryKey" json:"id"`
	LinkedID   snowflake.ID  `gorm:"not null;index:idx_comments_parent,priority:2" json:"linked_id"`
	LinkedKind relation.Kind `gorm:"type:varchar(32);not null;index:idx_comments_parent,priority:1" json:"linked_kind"`
	AuthorID   snowflake.ID  `gorm:"not null" json:"author_id"`
	Body       string        `gorm:"type:text;not null" json:"body"`
	CreatedAt  time.Time     `gorm:"not null" json:"created_at"`
}

func (Comment) TableName() string { return "comments" }
