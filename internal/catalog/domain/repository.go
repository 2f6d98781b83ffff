package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertOffering(ctx context.Context, db *gorm.DB, offering *Offering) error
	FindOffering(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Offering, error)
	InsertPlan(ctx context.Context, db *gorm.DB, plan *Plan) error
	FindPlan(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Plan, error)
}
