package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/servicedesk/internal/user/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Create(user).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, nil
	}
	return &user, nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []domain.User
	err := db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repo) FindOldestByRole(ctx context.Context, db *gorm.DB, role domain.Role) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).
		Where("role = ?", role).
		Order("created_at asc, id asc").
		Limit(1).
		Find(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, nil
	}
	return &user, nil
}
