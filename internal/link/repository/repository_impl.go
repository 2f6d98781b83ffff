package repository

import (
	"context"

	"github.com/smallbiznis/servicedesk/internal/link/domain"
	"github.com/smallbiznis/servicedesk/internal/relation"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertMany(ctx context.Context, db *gorm.DB, links []*domain.Link) error {
	if len(links) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&links).Error
}

func (r *repo) ListByParent(ctx context.Context, db *gorm.DB, parent relation.Ref) ([]*domain.Link, error) {
	var links []*domain.Link
	err := db.WithContext(ctx).
		Where("linked_kind = ? AND linked_id = ?", parent.Kind, parent.ID).
		Order("id ASC").
		Find(&links).Error
	if err != nil {
		return nil, err
	}
	return links, nil
}

func (r *repo) DeleteByParent(ctx context.Context, db *gorm.DB, parent relation.Ref) error {
	return db.WithContext(ctx).
		Where("linked_kind = ? AND linked_id = ?", parent.Kind, parent.ID).
		Delete(&domain.Link{}).Error
}
