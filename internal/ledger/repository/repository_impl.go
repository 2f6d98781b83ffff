package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/servicedesk/internal/ledger/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertEntry(ctx context.Context, db *gorm.DB, entry *domain.Entry) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO credit_ledger_entries (
			id, workspace_id, request_id, actor_id, direction, amount, balance_after, reason, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.WorkspaceID,
		entry.RequestID,
		entry.ActorID,
		entry.Direction,
		entry.Amount,
		entry.BalanceAfter,
		entry.Reason,
		entry.CreatedAt,
	).Error
}

func (r *repo) ListEntries(ctx context.Context, db *gorm.DB, workspaceID, beforeID snowflake.ID, limit int) ([]*domain.Entry, error) {
	stmt := db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID)
	if beforeID != 0 {
		stmt = stmt.Where("id < ?", beforeID)
	}

	var entries []*domain.Entry
	if err := stmt.Order("id DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
