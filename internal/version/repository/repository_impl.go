package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/servicedesk/internal/version/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.Entry) error {
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repo) ListByRequest(ctx context.Context, db *gorm.DB, requestID snowflake.ID) ([]*domain.Entry, error) {
	var entries []*domain.Entry
	err := db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) CountByAction(ctx context.Context, db *gorm.DB, requestID snowflake.ID, action domain.Action) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Entry{}).
		Where("request_id = ? AND action = ?", requestID, action).
		Count(&count).Error
	return count, err
}

func (r *repo) DeleteByRequest(ctx context.Context, db *gorm.DB, requestID snowflake.ID) error {
	return db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Delete(&domain.Entry{}).Error
}
