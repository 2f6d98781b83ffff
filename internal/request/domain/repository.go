package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, request *Request) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Request, error)
	// FindByIDForUpdate row-locks the request until db's transaction ends.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Request, error)
	UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	CountByCreatorAndStatus(ctx context.Context, db *gorm.DB, workspaceID, userID snowflake.ID, statuses []Status) (int64, error)
	DetachSubtasks(ctx context.Context, db *gorm.DB, parentID snowflake.ID) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
}
