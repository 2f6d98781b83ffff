package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/servicedesk/internal/file/domain"
	"github.com/smallbiznis/servicedesk/internal/relation"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, file *domain.File) error {
	return db.WithContext(ctx).Create(file).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.File, error) {
	var file domain.File
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&file).Error
	if err != nil {
		return nil, err
	}
	if file.ID == 0 {
		return nil, nil
	}
	return &file, nil
}

func (r *repo) SetLink(ctx context.Context, db *gorm.DB, id snowflake.ID, parent relation.Ref, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE files SET linked_id = ?, linked_kind = ?, updated_at = ? WHERE id = ?`,
		parent.ID,
		string(parent.Kind),
		at,
		id,
	).Error
}

func (r *repo) ListByParent(ctx context.Context, db *gorm.DB, parent relation.Ref) ([]*domain.File, error) {
	var files []*domain.File
	err := db.WithContext(ctx).
		Where("linked_kind = ? AND linked_id = ?", parent.Kind, parent.ID).
		Order("is_folder DESC").
		Order("name ASC").
		Find(&files).Error
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (r *repo) DeleteByParent(ctx context.Context, db *gorm.DB, parent relation.Ref) error {
	return db.WithContext(ctx).
		Where("linked_kind = ? AND linked_id = ?", parent.Kind, parent.ID).
		Delete(&domain.File{}).Error
}
