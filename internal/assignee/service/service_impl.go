package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/servicedesk/internal/assignee/domain"
	"github.com/smallbiznis/servicedesk/internal/clock"
	"github.com/smallbiznis/servicedesk/internal/relation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
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
		log:   p.Log.Named("assignee.service"),
		genID: p.GenID,
		clock: clk,
		repo:  p.Repo,
	}
}

func (s *Service) Replace(ctx context.Context, tx *gorm.DB, parent relation.Ref, userIDs []snowflake.ID, actorID snowflake.ID) error {
	if parent.ID == 0 || !parent.Kind.Valid() {
		return domain.ErrInvalidParent
	}

	now := s.clock.Now()
	seen := make(map[snowflake.ID]struct{}, len(userIDs))
	rows := make([]*domain.Assignee, 0, len(userIDs))
	for _, userID := range userIDs {
		if userID == 0 {
			return domain.ErrInvalidUser
		}
		if _, ok := seen[userID]; ok {
			continue
		}
		seen[userID] = struct{}{}
		rows = append(rows, &domain.Assignee{
			ID:         s.genID.Generate(),
			LinkedID:   parent.ID,
			LinkedKind: parent.Kind,
			UserID:     userID,
			AssignedBy: actorID,
			CreatedAt:  now,
		})
	}

	if err := s.repo.DeleteByParent(ctx, tx, parent); err != nil {
		return err
	}
	return s.repo.InsertMany(ctx, tx, rows)
}

func (s *Service) UserIDs(ctx context.Context, db *gorm.DB, parent relation.Ref) ([]snowflake.ID, error) {
	assignees, err := s.repo.ListByParent(ctx, db, parent)
	if err != nil {
		return nil, err
	}
	ids := make([]snowflake.ID, 0, len(assignees))
	for _, a := range assignees {
		ids = append(ids, a.UserID)
	}
	return ids, nil
}

func (s *Service) IsAssigned(ctx context.Context, db *gorm.DB, parent relation.Ref, userID snowflake.ID) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	return s.repo.Exists(ctx, db, parent, userID)
}
