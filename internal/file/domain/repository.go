package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/servicedesk/internal/relation"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, file *File) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*File, error)
	SetLink(ctx context.Context, db *gorm.DB, id snowflake.ID, parent relation.Ref, at time.Time) error
	ListByParent(ctx context.Context, db *gorm.DB, parent relation.Ref) ([]*File, error)
	DeleteByParent(ctx context.Context, db *gorm.DB, parent relation.Ref) error
}
