package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertMany(ctx context.Context, db *gorm.DB, notifications []*Notification) error
	ListByRecipient(ctx context.Context, db *gorm.DB, recipientID snowflake.ID, unreadOnly bool, limit int) ([]*Notification, error)
	MarkRead(ctx context.Context, db *gorm.DB, id, recipientID snowflake.ID, at time.Time) (int64, error)
	DeleteByRequest(ctx context.Context, db *gorm.DB, requestID snowflake.ID) error
}
