package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/servicedesk/internal/clock"
	"github.com/smallbiznis/servicedesk/internal/comment/domain"
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
		log:   p.Log.Named("comment.service"),
		genID: p.GenID,
		clock: clk,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCommentRequest) (*domain.Comment, error) {
	if req.Parent.ID == 0 || !req.Parent.Kind.Valid() {
		return nil, domain.ErrInvalidParent
	}
	if req.AuthorID == 0 {
		return nil, domain.ErrInvalidAuthor
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, domain.ErrEmptyBody
	}

	if req.Parent.Kind == relation.KindComment {
		parent, err := s.repo.FindByID(ctx, s.db, req.Parent.ID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, domain.ErrNotFound
		}
	}

	comment := domain.Comment{
		ID:         s.genID.Generate(),
		LinkedID:   req.Parent.ID,
		LinkedKind: req.Parent.Kind,
		AuthorID:   req.AuthorID,
		Body:       body,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (s *Service) List(ctx context.Context, parent relation.Ref) ([]*domain.Comment, error) {
	if parent.ID == 0 || !parent.Kind.Valid() {
		return nil, domain.ErrInvalidParent
	}
	return s.repo.ListByParent(ctx, s.db, parent)
}
