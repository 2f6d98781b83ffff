package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/servicedesk/internal/catalog/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("catalog.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) CreateOffering(ctx context.Context, req domain.CreateOfferingRequest) (*domain.Offering, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}
	if req.Credits < 0 {
		return nil, domain.ErrInvalidCredits
	}

	status := domain.OfferingStatusInactive
	if req.Active {
		status = domain.OfferingStatusActive
	}

	now := time.Now().UTC()
	offering := domain.Offering{
		ID:        s.genID.Generate(),
		Title:     title,
		Category:  strings.TrimSpace(req.Category),
		Status:    status,
		Credits:   req.Credits,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.InsertOffering(ctx, s.db, &offering); err != nil {
		return nil, err
	}
	return &offering, nil
}

func (s *Service) GetOffering(ctx context.Context, id snowflake.ID) (*domain.Offering, error) {
	offering, err := s.repo.FindOffering(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if offering == nil {
		return nil, domain.ErrOfferingNotFound
	}
	return offering, nil
}

func (s *Service) CreatePlan(ctx context.Context, req domain.CreatePlanRequest) (*domain.Plan, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidTitle
	}
	if req.ActiveOrdersAllowed < 0 {
		return nil, domain.ErrInvalidQuota
	}

	plan := domain.Plan{
		ID:                  s.genID.Generate(),
		Name:                name,
		ActiveOrdersAllowed: req.ActiveOrdersAllowed,
		CreatedAt:           time.Now().UTC(),
	}
	if err := s.repo.InsertPlan(ctx, s.db, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

func (s *Service) GetPlan(ctx context.Context, id snowflake.ID) (*domain.Plan, error) {
	plan, err := s.repo.FindPlan(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, domain.ErrPlanNotFound
	}
	return plan, nil
}
