package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateOfferingRequest struct {
	Title    string
	Category string
	Credits  int64
	Active   bool
}

type CreatePlanRequest struct {
	Name                string
	ActiveOrdersAllowed int64
}

type Service interface {
	CreateOffering(ctx context.Context, req CreateOfferingRequest) (*Offering, error)
	GetOffering(ctx context.Context, id snowflake.ID) (*Offering, error)
	CreatePlan(ctx context.Context, req CreatePlanRequest) (*Plan, error)
	GetPlan(ctx context.Context, id snowflake.ID) (*Plan, error)
}

var (
	ErrOfferingNotFound = errors.New("service_not_found")
	ErrPlanNotFound     = errors.New("plan_not_found")
	ErrInvalidTitle     = errors.New("invalid_title")
	ErrInvalidCredits   = errors.New("invalid_credits")
	ErrInvalidQuota     = errors.New("invalid_active_orders_allowed")
)
