package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/servicedesk/internal/request/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, request *domain.Request) error {
	return db.WithContext(ctx).Create(request).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Request, error) {
	return r.find(db.WithContext(ctx), id)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Request, error) {
	return r.find(db.WithContext(ctx).Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}), id)
}

func (r *repo) find(stmt *gorm.DB, id snowflake.ID) (*domain.Request, error) {
	var request domain.Request
	err := stmt.
		Where("id = ?", id).
		Limit(1).
		Find(&request).Error
	if err != nil {
		return nil, err
	}
	if request.ID == 0 {
		return nil, nil
	}
	return &request, nil
}

// UpdateFields writes only the given columns. An empty map is a no-op.
func (r *repo) UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Model(&domain.Request{}).
		Where("id = ?", id).
		UpdateColumns(fields).Error
}

func (r *repo) CountByCreatorAndStatus(ctx context.Context, db *gorm.DB, workspaceID, userID snowflake.ID, statuses []domain.Status) (int64, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Request{}).
		Where("workspace_id = ? AND created_by = ? AND status IN ?", workspaceID, userID, statuses).
		Count(&count).Error
	return count, err
}

func (r *repo) DetachSubtasks(ctx context.Context, db *gorm.DB, parentID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE requests SET parent_request_id = NULL WHERE parent_request_id = ?`,
		parentID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	result := db.WithContext(ctx).Exec(`DELETE FROM requests WHERE id = ?`, id)
	return result.RowsAffected, result.Error
}
