package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateWorkspaceRequest struct {
	Name             string
	LogoURL          string
	PlanID           *snowflake.ID
	SuccessManagerID *snowflake.ID
	OpeningBalance   int64
}

type AddMemberRequest struct {
	WorkspaceID snowflake.ID
	UserID      snowflake.ID
	Role        MemberRole
}

type Service interface {
	Create(ctx context.Context, req CreateWorkspaceRequest) (*Workspace, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Workspace, error)
	AddMember(ctx context.Context, req AddMemberRequest) error
	IsWorkspaceAdmin(ctx context.Context, workspaceID, userID snowflake.ID) (bool, error)
	// MemberRole returns the roster role of userID, or "" when they are
	// not on the roster.
	MemberRole(ctx context.Context, workspaceID, userID snowflake.ID) (MemberRole, error)
}

var (
	ErrNotFound       = errors.New("workspace_not_found")
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidRole    = errors.New("invalid_role")
	ErrInvalidBalance = errors.New("invalid_balance")
	ErrSlugTaken      = errors.New("slug_taken")
)
