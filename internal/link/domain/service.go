package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/servicedesk/internal/relation"
	"gorm.io/gorm"
)

type Service interface {
	// Create attaches urls to parent on tx.
	Create(ctx context.Context, tx *gorm.DB, parent relation.Ref, urls []string, actorID snowflake.ID) ([]*Link, error)
	// Replace drops every link of parent and attaches urls in their place.
	Replace(ctx context.Context, tx *gorm.DB, parent relation.Ref, urls []string, actorID snowflake.ID) ([]*Link, error)
	List(ctx context.Context, parent relation.Ref) ([]*Link, error)
}

var (
	ErrInvalidURL    = errors.New("invalid_url")
	ErrInvalidParent = errors.New("invalid_parent")
)
