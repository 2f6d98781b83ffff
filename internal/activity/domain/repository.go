package domain

import (
	"context"

	"github.com/smallbiznis/servicedesk/internal/relation"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, activity *Activity) error
	ListByParent(ctx context.Context, db *gorm.DB, parent relation.Ref) ([]*Activity, error)
	DeleteByParent(ctx context.Context, db *gorm.DB, parent relation.Ref) error
}
