package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/servicedesk/internal/assignee/domain"
	"github.com/smallbiznis/servicedesk/internal/relation"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertMany(ctx context.Context, db *gorm.DB, assignees []*domain.Assignee) error {
	if len(assignees) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&assignees).Error
}

func (r *repo) ListByParent(ctx context.Context, db *gorm.DB, parent relation.Ref) ([]*domain.Assignee, error) {
	var assignees []*domain.Assignee
	err := db.WithContext(ctx).
		Where("linked_kind = ? AND linked_id = ?", parent.Kind, parent.ID).
		Order("id ASC").
		Find(&assignees).Error
	if err != nil {
		return nil, err
	}
	return assignees, nil
}

func (r *repo) ListByParents(ctx context.Context, db *gorm.DB, kind relation.Kind, ids []snowflake.ID) ([]*domain.Assignee, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var assignees []*domain.Assignee
	err := db.WithContext(ctx).
		Where("linked_kind = ? AND linked_id IN ?", kind, ids).
		Order("id ASC").
		Find(&assignees).Error
	if err != nil {
		return nil, err
	}
	return assignees, nil
}

func (r *repo) Exists(ctx context.Context, db *gorm.DB, parent relation.Ref, userID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Assignee{}).
		Where("linked_kind = ? AND linked_id = ? AND user_id = ?", parent.Kind, parent.ID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) DeleteByParent(ctx context.Context, db *gorm.DB, parent relation.Ref) error {
	return db.WithContext(ctx).
		Where("linked_kind = ? AND linked_id = ?", parent.Kind, parent.ID).
		Delete(&domain.Assignee{}).Error
}
