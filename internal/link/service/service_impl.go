package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/servicedesk/internal/clock"
	"github.com/smallbiznis/servicedesk/internal/link/domain"
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
		log:   p.Log.Named("link.service"),
		genID: p.GenID,
		clock: clk,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, tx *gorm.DB, parent relation.Ref, urls []string, actorID snowflake.ID) ([]*domain.Link, error) {
	if parent.ID == 0 || !parent.Kind.Valid() {
		return nil, domain.ErrInvalidParent
	}

	normalized, err := normalizeURLs(urls)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	links := make([]*domain.Link, 0, len(normalized))
	for _, raw := range normalized {
		links = append(links, &domain.Link{
			ID:         s.genID.Generate(),
			LinkedID:   parent.ID,
			LinkedKind: parent.Kind,
			URL:        raw,
			CreatedBy:  actorID,
			CreatedAt:  now,
		})
	}
	if err := s.repo.InsertMany(ctx, tx, links); err != nil {
		return nil, err
	}
	return links, nil
}

func (s *Service) Replace(ctx context.Context, tx *gorm.DB, parent relation.Ref, urls []string, actorID snowflake.ID) ([]*domain.Link, error) {
	if parent.ID == 0 || !parent.Kind.Valid() {
		return nil, domain.ErrInvalidParent
	}
	// Validate before deleting so a bad url leaves the old set intact.
	if _, err := normalizeURLs(urls); err != nil {
		return nil, err
	}
	if err := s.repo.DeleteByParent(ctx, tx, parent); err != nil {
		return nil, err
	}
	return s.Create(ctx, tx, parent, urls, actorID)
}

func (s *Service) List(ctx context.Context, parent relation.Ref) ([]*domain.Link, error) {
	if parent.ID == 0 || !parent.Kind.Valid() {
		return nil, domain.ErrInvalidParent
	}
	return s.repo.ListByParent(ctx, s.db, parent)
}

// normalizeURLs trims, drops blanks and duplicates, and requires an
// absolute http(s) url.
func normalizeURLs(urls []string) ([]string, error) {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, raw := range urls {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidURL, raw)
		}
		if _, ok := seen[raw]; ok {
			continue
		}
		seen[raw] = struct{}{}
		out = append(out, raw)
	}
	return out, nil
}
