package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/servicedesk/internal/notification/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertMany(ctx context.Context, db *gorm.DB, notifications []*domain.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&notifications).Error
}

func (r *repo) ListByRecipient(ctx context.Context, db *gorm.DB, recipientID snowflake.ID, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	stmt := db.WithContext(ctx).Where("recipient_id = ?", recipientID)
	if unreadOnly {
		stmt = stmt.Where("read_at IS NULL")
	}

	var notifications []*domain.Notification
	if err := stmt.Order("id DESC").Limit(limit).Find(&notifications).Error; err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *repo) MarkRead(ctx context.Context, db *gorm.DB, id, recipientID snowflake.ID, at time.Time) (int64, error) {
	result := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("id = ? AND recipient_id = ? AND read_at IS NULL", id, recipientID).
		Update("read_at", at)
	return result.RowsAffected, result.Error
}

func (r *repo) DeleteByRequest(ctx context.Context, db *gorm.DB, requestID snowflake.ID) error {
	return db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Delete(&domain.Notification{}).Error
}
