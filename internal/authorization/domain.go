package authorization

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Policy domains. Platform rules apply to a user's global role, workspace
// rules to the role they hold on a workspace roster.
const (
	DomainPlatform  = "platform"
	DomainWorkspace = "workspace"
)

const (
	ObjectRequest   = "request"
	ObjectWorkspace = "workspace"
)

const (
	ActionRequestViewAll     = "request.view.all"
	ActionRequestUpdateAny   = "request.update.any"
	ActionRequestDeleteAny   = "request.delete.any"
	ActionRequestDelete      = "request.delete"
	ActionRequestImpersonate = "request.impersonate"

	ActionWorkspaceCreditsView = "workspace.credits.view"
)

// Actor is a caller whose roles are already resolved. Role lookups happen
// on the caller's transaction so authorization itself never reads the
// database.
type Actor struct {
	UserID        snowflake.ID
	GlobalRole    string
	WorkspaceRole string
}

type Service interface {
	Authorize(ctx context.Context, actor Actor, object string, action string) error
	Can(ctx context.Context, actor Actor, object string, action string) (bool, error)
}

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
)
