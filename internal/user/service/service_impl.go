package service

import (
	"context"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/servicedesk/internal/config"
	"github.com/smallbiznis/servicedesk/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Cfg  config.Config
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository

	mu         sync.RWMutex
	platformID snowflake.ID
	pinned     bool
}

func New(p Params) domain.Service {
	s := &Service{
		db:   p.DB,
		log:  p.Log.Named("user.service"),
		repo: p.Repo,
	}
	if p.Cfg.PlatformAdminID != 0 {
		s.platformID = snowflake.ID(p.Cfg.PlatformAdminID)
		s.pinned = true
	}
	return s
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	if id == 0 {
		return nil, domain.ErrInvalidID
	}
	user, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

// PlatformAdminID is either pinned by configuration or resolved once from
// the oldest global admin and cached for the life of the process.
func (s *Service) PlatformAdminID(ctx context.Context) (snowflake.ID, error) {
	s.mu.RLock()
	id, pinned := s.platformID, s.pinned
	s.mu.RUnlock()
	if pinned || id != 0 {
		return id, nil
	}

	admin, err := s.repo.FindOldestByRole(ctx, s.db, domain.RoleAdmin)
	if err != nil {
		return 0, err
	}
	if admin == nil {
		s.log.Warn("no platform admin available")
		return 0, nil
	}

	s.mu.Lock()
	s.platformID = admin.ID
	s.mu.Unlock()
	return admin.ID, nil
}
