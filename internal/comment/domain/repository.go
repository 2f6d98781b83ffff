package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/servicedesk/internal/relation"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, comment *Comment) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Comment, error)
	ListByParent(ctx context.Context, db *gorm.DB, parent relation.Ref) ([]*Comment, error)
	// DeleteThread removes the comments of parent together with their replies.
	DeleteThread(ctx context.Context, db *gorm.DB, parent relation.Ref) error
}
