package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/servicedesk/pkg/db/pagination"
)

// UpdatedMessage is the confirmation returned by Update and PatchFields.
const UpdatedMessage = "Request updated successfully"

// DeletedMessage is the confirmation returned by Delete.
const DeletedMessage = "Request deleted successfully"

// Caller identifies who is acting. ImpersonateUserID lets a global admin
// act on behalf of another user.
type Caller struct {
	UserID            snowflake.ID
	ImpersonateUserID snowflake.ID
}

type CreateRequest struct {
	WorkspaceID     snowflake.ID   `json:"workspace_id"`
	ServiceID       snowflake.ID   `json:"service_id"`
	Title           string         `json:"title"`
	Details         string         `json:"details"`
	Priority        Priority       `json:"priority"`
	DueDate         *time.Time     `json:"due_date"`
	InternalDueDate *time.Time     `json:"internal_due_date"`
	ParentRequestID *snowflake.ID  `json:"parent_request_id"`
	Links           []string       `json:"links"`
	FileIDs         []snowflake.ID `json:"file_ids"`
	AssigneeIDs     []snowflake.ID `json:"assignee_ids"`
}

// UpdateRequest applies only the non-nil fields. A non-nil empty slice
// clears links or assignees.
type UpdateRequest struct {
	Title           *string        `json:"title"`
	Details         *string        `json:"details"`
	Priority        *Priority      `json:"priority"`
	Status          *Status        `json:"status"`
	DueDate         *time.Time     `json:"due_date"`
	InternalDueDate *time.Time     `json:"internal_due_date"`
	ServiceID       *snowflake.ID  `json:"service_id"`
	Links           []string       `json:"links"`
	FileIDs         []snowflake.ID `json:"file_ids"`
	AssigneeIDs     []snowflake.ID `json:"assignee_ids"`
}

// FieldPatch is the narrow direct-edit path, e.g. dragging a card to a
// new column.
type FieldPatch struct {
	Status          *Status    `json:"status"`
	Priority        *Priority  `json:"priority"`
	DueDate         *time.Time `json:"due_date"`
	InternalDueDate *time.Time `json:"internal_due_date"`
	Title           *string    `json:"title"`
	Details         *string    `json:"details"`
}

func (p FieldPatch) Empty() bool {
	return p.Status == nil && p.Priority == nil && p.DueDate == nil &&
		p.InternalDueDate == nil && p.Title == nil && p.Details == nil
}

type Service interface {
	Create(ctx context.Context, req CreateRequest, caller Caller) (*Request, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateRequest, caller Caller) (string, error)
	PatchFields(ctx context.Context, id snowflake.ID, patch FieldPatch, caller Caller) (string, error)
	Archive(ctx context.Context, id snowflake.ID, caller Caller) (*Request, error)
	Delete(ctx context.Context, id snowflake.ID, caller Caller) (string, error)
}

// ArchiveFilter selects archived, unarchived or all requests.
type ArchiveFilter string

const (
	ArchiveFilterActive   ArchiveFilter = "active"
	ArchiveFilterArchived ArchiveFilter = "archived"
	ArchiveFilterAll      ArchiveFilter = "all"
)

type ListRequestsFilter struct {
	// Status is a status value or "pending". Empty excludes cancelled.
	Status      string        `form:"status"`
	WorkspaceID snowflake.ID  `form:"workspace_id"`
	Archived    ArchiveFilter `form:"archived"`
	// ParentRequestID limits the list to subtasks of one request.
	ParentRequestID snowflake.ID `form:"parent_request_id"`
	// TopLevelOnly hides subtasks.
	TopLevelOnly bool `form:"top_level_only"`
	pagination.Pagination
}

type ListRequestsResponse struct {
	Requests []*RequestView      `json:"requests"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

// QueryService builds read-only aggregated views.
type QueryService interface {
	GetRequestDetail(ctx context.Context, id snowflake.ID, viewer Caller) (*RequestView, error)
	ListRequests(ctx context.Context, filter ListRequestsFilter, viewer Caller) (ListRequestsResponse, error)
	GetSubtasks(ctx context.Context, parentID snowflake.ID, viewer Caller) ([]*RequestView, error)
}
