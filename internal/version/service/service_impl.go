package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/servicedesk/internal/clock"
	obsmetrics "github.com/smallbiznis/servicedesk/internal/observability/metrics"
	"github.com/smallbiznis/servicedesk/internal/version/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("version.service"),
		genID:      p.GenID,
		clock:      clk,
		repo:       p.Repo,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Record(ctx context.Context, tx *gorm.DB, input domain.RecordInput) (*domain.Entry, error) {
	if tx == nil {
		return nil, domain.ErrMissingTransaction
	}
	if input.RequestID == 0 {
		return nil, domain.ErrInvalidRequest
	}
	if input.ActorID == 0 {
		return nil, domain.ErrInvalidActor
	}
	if !input.Action.Valid() {
		return nil, domain.ErrInvalidAction
	}

	labels := make([]string, len(input.ChangedFields))
	copy(labels, input.ChangedFields)
	snapshot := datatypes.JSONMap{}
	for key, value := range input.Snapshot {
		snapshot[key] = value
	}

	entry := domain.Entry{
		ID:            s.genID.Generate(),
		RequestID:     input.RequestID,
		ActorID:       input.ActorID,
		Action:        input.Action,
		ChangedFields: datatypes.NewJSONSlice(labels),
		Snapshot:      snapshot,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, tx, &entry); err != nil {
		return nil, err
	}

	s.obsMetrics.RecordVersion(ctx, string(entry.Action))
	return &entry, nil
}

func (s *Service) ListByRequest(ctx context.Context, requestID snowflake.ID) ([]*domain.Entry, error) {
	if requestID == 0 {
		return nil, domain.ErrInvalidRequest
	}
	return s.repo.ListByRequest(ctx, s.db, requestID)
}
