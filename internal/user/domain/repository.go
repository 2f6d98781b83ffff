package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, user *User) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]User, error)
	FindOldestByRole(ctx context.Context, db *gorm.DB, role Role) (*User, error)
}
