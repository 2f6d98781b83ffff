package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/servicedesk/internal/relation"
	"gorm.io/gorm"
)

type Repository interface {
	InsertMany(ctx context.Context, db *gorm.DB, assignees []*Assignee) error
	ListByParent(ctx context.Context, db *gorm.DB, parent relation.Ref) ([]*Assignee, error)
	ListByParents(ctx context.Context, db *gorm.DB, kind relation.Kind, ids []snowflake.ID) ([]*Assignee, error)
	Exists(ctx context.Context, db *gorm.DB, parent relation.Ref, userID snowflake.ID) (bool, error)
	DeleteByParent(ctx context.Context, db *gorm.DB, parent relation.Ref) error
}
