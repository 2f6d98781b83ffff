package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type DispatchInput struct {
	Category    Category
	WorkspaceID snowflake.ID
	RequestID   snowflake.ID
	ActorID     snowflake.ID
	Recipients  []snowflake.ID
	Payload     map[string]any
}

type Service interface {
	// Dispatch writes one row per distinct recipient on tx. Nothing leaves
	// the process until Deliver is called with the returned batch.
	Dispatch(ctx context.Context, tx *gorm.DB, input DispatchInput) (*Batch, error)
	// Deliver fans committed batches out to email, the pub/sub channel and
	// the ops channel.
	Deliver(ctx context.Context, batches ...*Batch) error
	ListForRecipient(ctx context.Context, recipientID snowflake.ID, unreadOnly bool) ([]*Notification, error)
	MarkRead(ctx context.Context, id, recipientID snowflake.ID) error
}

var (
	ErrNotFound        = errors.New("notification_not_found")
	ErrInvalidCategory = errors.New("invalid_category")
	ErrNoRecipients    = errors.New("no_recipients")
)
