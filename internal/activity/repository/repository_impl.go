package repository

import (
	"context"

	"github.com/smallbiznis/servicedesk/internal/activity/domain"
	"github.com/smallbiznis/servicedesk/internal/relation"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, activity *domain.Activity) error {
	return db.WithContext(ctx).Create(activity).Error
}

func (r *repo) ListByParent(ctx context.Context, db *gorm.DB, parent relation.Ref) ([]*domain.Activity, error) {
	var activities []*domain.Activity
	err := db.WithContext(ctx).
		Where("linked_kind = ? AND linked_id = ?", parent.Kind, parent.ID).
		Order("id DESC").
		Find(&activities).Error
	if err != nil {
		return nil, err
	}
	return activities, nil
}

func (r *repo) DeleteByParent(ctx context.Context, db *gorm.DB, parent relation.Ref) error {
	return db.WithContext(ctx).
		Where("linked_kind = ? AND linked_id = ?", parent.Kind, parent.ID).
		Delete(&domain.Activity{}).Error
}
