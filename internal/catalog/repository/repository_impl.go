package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/servicedesk/internal/catalog/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertOffering(ctx context.Context, db *gorm.DB, offering *domain.Offering) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO services (id, title, category, status, credits, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		offering.ID,
		offering.Title,
		offering.Category,
		offering.Status,
		offering.Credits,
		offering.CreatedAt,
		offering.UpdatedAt,
	).Error
}

func (r *repo) FindOffering(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Offering, error) {
	var offering domain.Offering
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&offering).Error
	if err != nil {
		return nil, err
	}
	if offering.ID == 0 {
		return nil, nil
	}
	return &offering, nil
}

func (r *repo) InsertPlan(ctx context.Context, db *gorm.DB, plan *domain.Plan) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO plans (id, name, active_orders_allowed, created_at) VALUES (?, ?, ?, ?)`,
		plan.ID,
		plan.Name,
		plan.ActiveOrdersAllowed,
		plan.CreatedAt,
	).Error
}

func (r *repo) FindPlan(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Plan, error) {
	var plan domain.Plan
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&plan).Error
	if err != nil {
		return nil, err
	}
	if plan.ID == 0 {
		return nil, nil
	}
	return &plan, nil
}
