package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/servicedesk/internal/relation"
	"gorm.io/gorm"
)

type AppendInput struct {
	WorkspaceID snowflake.ID
	Parent      relation.Ref
	ActorID     snowflake.ID
	Message     string
}

type Service interface {
	Append(ctx context.Context, tx *gorm.DB, input AppendInput) (*Activity, error)
	List(ctx context.Context, parent relation.Ref) ([]*Activity, error)
}

var (
	ErrInvalidParent  = errors.New("invalid_parent")
	ErrEmptyMessage   = errors.New("empty_message")
	ErrMissingActorID = errors.New("missing_actor_id")
)
