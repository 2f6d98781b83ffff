package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/servicedesk/pkg/db/pagination"
	"gorm.io/gorm"
)

// Service moves workspace credit balances. Every mutating call runs on the
// caller's transaction and locks the workspace row before reading the
// balance, so check and write cannot interleave with another movement.
type Service interface {
	Debit(ctx context.Context, tx *gorm.DB, workspaceID snowflake.ID, amount int64, ref Ref) (int64, error)
	Credit(ctx context.Context, tx *gorm.DB, workspaceID snowflake.ID, amount int64, ref Ref) (int64, error)
	// Adjust debits a positive delta and credits a negative one.
	Adjust(ctx context.Context, tx *gorm.DB, workspaceID snowflake.ID, delta int64, ref Ref) (int64, error)
	GetBalance(ctx context.Context, workspaceID snowflake.ID) (int64, error)
	ListEntries(ctx context.Context, req ListEntriesRequest) (ListEntriesResponse, error)
}

type ListEntriesRequest struct {
	WorkspaceID snowflake.ID
	pagination.Pagination
}

type ListEntriesResponse struct {
	Entries  []*Entry            `json:"entries"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

var (
	ErrInsufficientCredits = errors.New("insufficient_credits")
	ErrWorkspaceNotFound   = errors.New("workspace_not_found")
	ErrInvalidWorkspace    = errors.New("invalid_workspace")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrMissingTransaction  = errors.New("missing_transaction")
)

// InsufficientCreditsError carries the balance that rejected a debit.
type InsufficientCreditsError struct {
	WorkspaceID snowflake.ID
	Balance     int64
	Required    int64
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("%s: workspace %s has %d credits, %d required",
		ErrInsufficientCredits, e.WorkspaceID, e.Balance, e.Required)
}

func (e *InsufficientCreditsError) Unwrap() error { return ErrInsufficientCredits }
