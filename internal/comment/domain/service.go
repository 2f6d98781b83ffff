package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/servicedesk/internal/relation"
)

type CreateCommentRequest struct {
	Parent   relation.Ref
	AuthorID snowflake.ID
	Body     string
}

type Service interface {
	Create(ctx context.Context, req CreateCommentRequest) (*Comment, error)
	List(ctx context.Context, parent relation.Ref) ([]*Comment, error)
}

var (
	ErrNotFound      = errors.New("comment_not_found")
	ErrInvalidParent = errors.New("invalid_parent")
	ErrInvalidAuthor = errors.New("invalid_author")
	ErrEmptyBody     = errors.New("empty_body")
)
