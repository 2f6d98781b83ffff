package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/servicedesk/internal/workspace/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, workspace *domain.Workspace) error {
	return db.WithContext(ctx).Create(workspace).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Workspace, error) {
	return r.find(db.WithContext(ctx), id)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Workspace, error) {
	return r.find(db.WithContext(ctx).Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}), id)
}

func (r *repo) find(stmt *gorm.DB, id snowflake.ID) (*domain.Workspace, error) {
	var workspace domain.Workspace
	err := stmt.
		Where("id = ?", id).
		Limit(1).
		Find(&workspace).Error
	if err != nil {
		return nil, err
	}
	if workspace.ID == 0 {
		return nil, nil
	}
	return &workspace, nil
}

func (r *repo) UpdateBalance(ctx context.Context, db *gorm.DB, id snowflake.ID, balance int64) error {
	return db.WithContext(ctx).Exec(
		`UPDATE workspaces SET credit_balance = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		balance,
		id,
	).Error
}

func (r *repo) UpsertMember(ctx context.Context, db *gorm.DB, member *domain.Member) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "workspace_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role"}),
		}).
		Create(member).Error
}

func (r *repo) HasMemberRole(ctx context.Context, db *gorm.DB, workspaceID, userID snowflake.ID, role domain.MemberRole) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Member{}).
		Where("workspace_id = ? AND user_id = ? AND role = ?", workspaceID, userID, role).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) FindMember(ctx context.Context, db *gorm.DB, workspaceID, userID snowflake.ID) (*domain.Member, error) {
	var member domain.Member
	err := db.WithContext(ctx).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		Limit(1).
		Find(&member).Error
	if err != nil {
		return nil, err
	}
	if member.UserID == 0 {
		return nil, nil
	}
	return &member, nil
}
