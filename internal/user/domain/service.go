package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	GetByID(ctx context.Context, id snowflake.ID) (*User, error)
	// PlatformAdminID returns the user that receives platform-wide
	// notifications, or 0 when none exists.
	PlatformAdminID(ctx context.Context) (snowflake.ID, error)
}

var (
	ErrNotFound  = errors.New("user_not_found")
	ErrInvalidID = errors.New("invalid_user_id")
)
