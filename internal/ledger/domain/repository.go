package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertEntry(ctx context.Context, db *gorm.DB, entry *Entry) error
	// ListEntries returns entries older than beforeID, newest first. A zero
	// beforeID starts from the newest entry.
	ListEntries(ctx context.Context, db *gorm.DB, workspaceID, beforeID snowflake.ID, limit int) ([]*Entry, error)
}
