package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/servicedesk/internal/comment/domain"
	"github.com/smallbiznis/servicedesk/internal/relation"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, comment *domain.Comment) error {
	return db.WithContext(ctx).Create(comment).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Comment, error) {
	var comment domain.Comment
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&comment).Error
	if err != nil {
		return nil, err
	}
	if comment.ID == 0 {
		return nil, nil
	}
	return &comment, nil
}

func (r *repo) ListByParent(ctx context.Context, db *gorm.DB, parent relation.Ref) ([]*domain.Comment, error) {
	var comments []*domain.Comment
	err := db.WithContext(ctx).
		Where("linked_kind = ? AND linked_id = ?", parent.Kind, parent.ID).
		Order("id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *repo) DeleteThread(ctx context.Context, db *gorm.DB, parent relation.Ref) error {
	db = db.WithContext(ctx)
	replies := db.Model(&domain.Comment{}).
		Select("id").
		Where("linked_kind = ? AND linked_id = ?", parent.Kind, parent.ID)
	if err := db.
		Where("linked_kind = ? AND linked_id IN (?)", relation.KindComment, replies).
		Delete(&domain.Comment{}).Error; err != nil {
		return err
	}
	return db.
		Where("linked_kind = ? AND linked_id = ?", parent.Kind, parent.ID).
		Delete(&domain.Comment{}).Error
}
