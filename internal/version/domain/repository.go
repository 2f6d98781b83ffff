package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *Entry) error
	ListByRequest(ctx context.Context, db *gorm.DB, requestID snowflake.ID) ([]*Entry, error)
	CountByAction(ctx context.Context, db *gorm.DB, requestID snowflake.ID, action Action) (int64, error)
	// DeleteByRequest is reserved for the request delete cascade.
	DeleteByRequest(ctx context.Context, db *gorm.DB, requestID snowflake.ID) error
}
