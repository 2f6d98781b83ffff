package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// RecordInput is written as-is. Callers compute the changed labels and
// the snapshot; the recorder does not diff.
type RecordInput struct {
	RequestID     snowflake.ID
	ActorID       snowflake.ID
	Action        Action
	ChangedFields []string
	Snapshot      map[string]any
}

type Service interface {
	Record(ctx context.Context, tx *gorm.DB, input RecordInput) (*Entry, error)
	ListByRequest(ctx context.Context, requestID snowflake.ID) ([]*Entry, error)
}

var (
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrInvalidActor       = errors.New("invalid_actor")
	ErrInvalidAction      = errors.New("invalid_action")
	ErrMissingTransaction = errors.New("missing_transaction")
)
