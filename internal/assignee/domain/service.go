package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/servicedesk/internal/relation"
	"gorm.io/gorm"
)

type Service interface {
	// Replace makes userIDs the exact assignee set of parent.
	Replace(ctx context.Context, tx *gorm.DB, parent relation.Ref, userIDs []snowflake.ID, actorID snowflake.ID) error
	// UserIDs lists the current assignees of parent on db, which may be a tx.
	UserIDs(ctx context.Context, db *gorm.DB, parent relation.Ref) ([]snowflake.ID, error)
	IsAssigned(ctx context.Context, db *gorm.DB, parent relation.Ref, userID snowflake.ID) (bool, error)
}

var (
	ErrInvalidParent = errors.New("invalid_parent")
	ErrInvalidUser   = errors.New("invalid_user")
)
