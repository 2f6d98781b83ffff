package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/servicedesk/internal/relation"
	"gorm.io/gorm"
)

type RegisterFileRequest struct {
	WorkspaceID snowflake.ID
	Name        string
	IsFolder    bool
	StorageKey  string
	UploadedBy  snowflake.ID
}

type Service interface {
	Register(ctx context.Context, req RegisterFileRequest) (*File, error)
	// Relink points every file in ids at parent. Files must belong to
	// workspaceID.
	Relink(ctx context.Context, tx *gorm.DB, workspaceID snowflake.ID, ids []snowflake.ID, parent relation.Ref) error
	List(ctx context.Context, parent relation.Ref) ([]*File, error)
}

var (
	ErrNotFound         = errors.New("file_not_found")
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidWorkspace = errors.New("invalid_workspace")
	ErrInvalidParent    = errors.New("invalid_parent")
	ErrCrossWorkspace   = errors.New("file_in_other_workspace")
)
