package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type OfferingStatus string

const (
	OfferingStatusActive   OfferingStatus = "active"
	OfferingStatusInactive OfferingStatus = "inactive"
	OfferingStatusArchived OfferingStatus = "archived"
)

// Offering is a bookable service with a fixed credit cost.
type Offering struct {
	ID        snowflake.ID   `gorm:"primaryKey" json:"id"`
	Title     string         `gorm:"not null" json:"title"`
	Category  string         `gorm:"not null;default:''" json:"category"`
	Status    OfferingStatus `gorm:"type:varchar(32);not null" json:"status"`
	Credits   int64          `gorm:"not null;default:0" json:"credits"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
}

func (Offering) TableName() string { return "services" }

func (o Offering) IsActive() bool {
	return o.Status == OfferingStatusActive
}

// Plan bounds how many requests a single user may keep open per workspace.
type Plan struct {
	ID                  snowflake.ID `gorm:"primaryKey" json:"id"`
	Name                string       `gorm:"not null" json:"name"`
	ActiveOrdersAllowed int64        `gorm:"column:active_orders_allowed;not null" json:"active_orders_allowed"`
	CreatedAt           time.Time    `gorm:"not null" json:"created_at"`
}

func (Plan) TableName() string { return "plans" }
