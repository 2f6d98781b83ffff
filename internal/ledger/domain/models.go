package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Direction tells whether a movement took credits out of or put credits
// back into a workspace balance.
type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

type Reason string

const (
	ReasonRequestCreated Reason = "request_created"
	ReasonServiceChanged Reason = "service_changed"
	ReasonTopUp          Reason = "top_up"
	ReasonManual         Reason = "manual_adjustment"
)

// Entry is one append-only movement of a workspace credit balance.
type Entry struct {
	ID           snowflake.ID  `gorm:"primaryKey" json:"id"`
	WorkspaceID  snowflake.ID  `gorm:"not null;index" json:"workspace_id"`
	RequestID    *snowflake.ID `gorm:"index" json:"request_id,omitempty"`
	ActorID      *snowflake.ID `json:"actor_id,omitempty"`
	Direction    Direction     `gorm:"type:varchar(16);not null" json:"direction"`
	Amount       int64         `gorm:"not null" json:"amount"`
	BalanceAfter int64         `gorm:"not null" json:"balance_after"`
	Reason       Reason        `gorm:"type:varchar(32);not null" json:"reason"`
	CreatedAt    time.Time     `gorm:"not null" json:"created_at"`
}

func (Entry) TableName() string { return "credit_ledger_entries" }

// Ref identifies what caused a movement.
type Ref struct {
	RequestID snowflake.ID
	ActorID   snowflake.ID
	Reason    Reason
}
