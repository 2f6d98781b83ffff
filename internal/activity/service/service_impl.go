package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/servicedesk/internal/activity/domain"
	"github.com/smallbiznis/servicedesk/internal/clock"
	"github.com/smallbiznis/servicedesk/internal/relation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("activity.service"),
		genID: p.GenID,
		clock: clk,
		repo:  p.Repo,
	}
}

func (s *Service) Append(ctx context.Context, tx *gorm.DB, input domain.AppendInput) (*domain.Activity, error) {
	if input.Parent.ID == 0 || !input.Parent.Kind.Valid() {
		return nil, domain.ErrInvalidParent
	}
	if input.ActorID == 0 {
		return nil, domain.ErrMissingActorID
	}
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, domain.ErrEmptyMessage
	}

	activity := domain.Activity{
		ID:          s.genID.Generate(),
		WorkspaceID: input.WorkspaceID,
		LinkedID:    input.Parent.ID,
		LinkedKind:  input.Parent.Kind,
		ActorID:     input.ActorID,
		Message:     message,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, tx, &activity); err != nil {
		return nil, err
	}
	return &activity, nil
}

func (s *Service) List(ctx context.Context, parent relation.Ref) ([]*domain.Activity, error) {
	if parent.ID == 0 || !parent.Kind.Valid() {
		return nil, domain.ErrInvalidParent
	}
	return s.repo.ListByParent(ctx, s.db, parent)
}
