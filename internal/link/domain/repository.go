package domain

import (
	"context"

	"github.com/smallbiznis/servicedesk/internal/relation"
	"gorm.io/gorm"
)

type Repository interface {
	InsertMany(ctx context.Context, db *gorm.DB, links []*Link) error
	ListByParent(ctx context.Context, db *gorm.DB, parent relation.Ref) ([]*Link, error)
	DeleteByParent(ctx context.Context, db *gorm.DB, parent relation.Ref) error
}
