package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, workspace *Workspace) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Workspace, error)
	// FindByIDForUpdate row-locks the workspace until db's transaction ends.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Workspace, error)
	UpdateBalance(ctx context.Context, db *gorm.DB, id snowflake.ID, balance int64) error
	UpsertMember(ctx context.Context, db *gorm.DB, member *Member) error
	HasMemberRole(ctx context.Context, db *gorm.DB, workspaceID, userID snowflake.ID, role MemberRole) (bool, error)
	FindMember(ctx context.Context, db *gorm.DB, workspaceID, userID snowflake.ID) (*Member, error)
}
