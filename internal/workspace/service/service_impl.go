package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/servicedesk/internal/workspace/domain"
	"github.com/smallbiznis/servicedesk/pkg/db"
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
		log:   p.Log.Named("workspace.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateWorkspaceRequest) (*domain.Workspace, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.OpeningBalance < 0 {
		return nil, domain.ErrInvalidBalance
	}

	now := time.Now().UTC()
	workspace := domain.Workspace{
		ID:               s.genID.Generate(),
		Name:             name,
		Slug:             slug.Make(name),
		LogoURL:          strings.TrimSpace(req.LogoURL),
		CreditBalance:    req.OpeningBalance,
		PlanID:           req.PlanID,
		SuccessManagerID: req.SuccessManagerID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Insert(ctx, s.db, &workspace); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrSlugTaken
		}
		return nil, err
	}

	s.log.Info("workspace created",
		zap.String("workspace_id", workspace.ID.String()),
		zap.String("slug", workspace.Slug),
	)
	return &workspace, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Workspace, error) {
	workspace, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if workspace == nil {
		return nil, domain.ErrNotFound
	}
	return workspace, nil
}

func (s *Service) AddMember(ctx context.Context, req domain.AddMemberRequest) error {
	switch req.Role {
	case domain.MemberRoleAdmin, domain.MemberRoleMember, domain.MemberRoleSuccessManager:
	default:
		return domain.ErrInvalidRole
	}
	if _, err := s.GetByID(ctx, req.WorkspaceID); err != nil {
		return err
	}
	return s.repo.UpsertMember(ctx, s.db, &domain.Member{
		WorkspaceID: req.WorkspaceID,
		UserID:      req.UserID,
		Role:        req.Role,
		CreatedAt:   time.Now().UTC(),
	})
}

func (s *Service) IsWorkspaceAdmin(ctx context.Context, workspaceID, userID snowflake.ID) (bool, error) {
	return s.repo.HasMemberRole(ctx, s.db, workspaceID, userID, domain.MemberRoleAdmin)
}

func (s *Service) MemberRole(ctx context.Context, workspaceID, userID snowflake.ID) (domain.MemberRole, error) {
	member, err := s.repo.FindMember(ctx, s.db, workspaceID, userID)
	if err != nil || member == nil {
		return "", err
	}
	return member.Role, nil
}
