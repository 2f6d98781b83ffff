package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/servicedesk/internal/clock"
	"github.com/smallbiznis/servicedesk/internal/file/domain"
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
		log:   p.Log.Named("file.service"),
		genID: p.GenID,
		clock: clk,
		repo:  p.Repo,
	}
}

func (s *Service) Register(ctx context.Context, req domain.RegisterFileRequest) (*domain.File, error) {
	if req.WorkspaceID == 0 {
		return nil, domain.ErrInvalidWorkspace
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	now := s.clock.Now()
	file := domain.File{
		ID:          s.genID.Generate(),
		WorkspaceID: req.WorkspaceID,
		Name:        name,
		IsFolder:    req.IsFolder,
		StorageKey:  strings.TrimSpace(req.StorageKey),
		UploadedBy:  req.UploadedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, s.db, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

// Relink runs the updates one after another: every statement shares the
// single connection that backs tx.
func (s *Service) Relink(ctx context.Context, tx *gorm.DB, workspaceID snowflake.ID, ids []snowflake.ID, parent relation.Ref) error {
	if parent.ID == 0 || !parent.Kind.Valid() {
		return domain.ErrInvalidParent
	}

	now := s.clock.Now()
	seen := make(map[snowflake.ID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		file, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if file == nil {
			return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
		}
		if file.WorkspaceID != workspaceID {
			return fmt.Errorf("%w: %s", domain.ErrCrossWorkspace, id)
		}
		if file.LinkedTo(parent) {
			continue
		}
		if err := s.repo.SetLink(ctx, tx, id, parent, now); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) List(ctx context.Context, parent relation.Ref) ([]*domain.File, error) {
	if parent.ID == 0 || !parent.Kind.Valid() {
		return nil, domain.ErrInvalidParent
	}
	return s.repo.ListByParent(ctx, s.db, parent)
}
