package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/servicedesk/internal/authorization"
	"github.com/smallbiznis/servicedesk/internal/config"
	"github.com/smallbiznis/servicedesk/internal/request/domain"
	userdomain "github.com/smallbiznis/servicedesk/internal/user/domain"
	"github.com/smallbiznis/servicedesk/pkg/db/pagination"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Policy   *config.RequestPolicyHolder `optional:"true"`
	UserRepo userdomain.Repository
	Authz    authorization.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	policy   *config.RequestPolicyHolder
	userRepo userdomain.Repository
	authz    authorization.Service
	tracer   trace.Tracer
}

func New(p Params) domain.QueryService {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("request.query"),
		policy:   p.Policy,
		userRepo: p.UserRepo,
		authz:    p.Authz,
		tracer:   otel.Tracer("servicedesk/request"),
	}
}

// GetRequestDetail returns one request the viewer may see. A request that
// exists but is hidden from the viewer is reported as not found.
func (s *Service) GetRequestDetail(ctx context.Context, id snowflake.ID, viewer domain.Caller) (*domain.RequestView, error) {
	ctx, span := s.tracer.Start(ctx, "request.detail", trace.WithAttributes(attribute.String("request.id", id.String())))
	defer span.End()

	b, err := s.visibleTo(ctx, viewer)
	if err != nil {
		return nil, err
	}
	views, err := b.ID(id).Rows(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, domain.NotFound("request", id)
	}
	return views[0], nil
}

func (s *Service) ListRequests(ctx context.Context, filter domain.ListRequestsFilter, viewer domain.Caller) (domain.ListRequestsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "request.list")
	defer span.End()

	b, err := s.visibleTo(ctx, viewer)
	if err != nil {
		return domain.ListRequestsResponse{}, err
	}
	if err := b.Status(filter.Status, s.pendingStatuses()); err != nil {
		return domain.ListRequestsResponse{}, err
	}
	if err := b.Archived(filter.Archived); err != nil {
		return domain.ListRequestsResponse{}, err
	}
	b.Workspace(filter.WorkspaceID).Parent(filter.ParentRequestID)
	if filter.TopLevelOnly {
		b.TopLevel()
	}

	cursor, err := pagination.DecodeCursor(filter.PageToken)
	if err != nil {
		return domain.ListRequestsResponse{}, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if cursor != nil {
		createdAt, id, err := parseCursor(cursor)
		if err != nil {
			return domain.ListRequestsResponse{}, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
		}
		b.After(createdAt, id)
	}

	limit := filter.Limit()
	views, err := b.Rows(ctx, limit+1)
	if err != nil {
		return domain.ListRequestsResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(views, limit, func(v *domain.RequestView) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        v.ID.String(),
			CreatedAt: v.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if len(views) > limit {
		views = views[:limit]
	}

	s.log.Debug("requests listed",
		zap.String("viewer_id", viewer.UserID.String()),
		zap.String("status", filter.Status),
		zap.Int("count", len(views)),
	)
	return domain.ListRequestsResponse{Requests: views, PageInfo: *pageInfo}, nil
}

// GetSubtasks lists the unarchived children of a visible parent, oldest
// first.
func (s *Service) GetSubtasks(ctx context.Context, parentID snowflake.ID, viewer domain.Caller) ([]*domain.RequestView, error) {
	ctx, span := s.tracer.Start(ctx, "request.subtasks", trace.WithAttributes(attribute.String("request.id", parentID.String())))
	defer span.End()

	if _, err := s.GetRequestDetail(ctx, parentID, viewer); err != nil {
		return nil, err
	}
	b, err := s.visibleTo(ctx, viewer)
	if err != nil {
		return nil, err
	}
	if err := b.Archived(domain.ArchiveFilterActive); err != nil {
		return nil, err
	}
	return b.Parent(parentID).OldestFirst().Rows(ctx, 0)
}

// visibleTo starts a builder already narrowed to what viewer may read.
func (s *Service) visibleTo(ctx context.Context, viewer domain.Caller) (*Builder, error) {
	user, err := s.resolveViewer(ctx, viewer)
	if err != nil {
		return nil, err
	}
	b := NewBuilder(s.db)

	seeAll, err := s.authz.Can(ctx, authorization.Actor{UserID: user.ID, GlobalRole: string(user.Role)},
		authorization.ObjectRequest, authorization.ActionRequestViewAll)
	if err != nil {
		return nil, err
	}
	switch {
	case seeAll:
	case user.Role == userdomain.RoleTeamMember:
		b.AssignedTo(user.ID)
	case user.Role == userdomain.RoleSuccessManager:
		b.ManagedBy(user.ID)
	default:
		b.MemberOf(user.ID)
	}
	return b, nil
}

func (s *Service) resolveViewer(ctx context.Context, viewer domain.Caller) (*userdomain.User, error) {
	if viewer.UserID == 0 {
		return nil, domain.InvalidInput("caller identity is required")
	}
	user, err := s.userRepo.FindByID(ctx, s.db.WithContext(ctx), viewer.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.NotFound("user", viewer.UserID)
	}
	if viewer.ImpersonateUserID == 0 || viewer.ImpersonateUserID == viewer.UserID {
		return user, nil
	}

	err = s.authz.Authorize(ctx, authorization.Actor{UserID: user.ID, GlobalRole: string(user.Role)},
		authorization.ObjectRequest, authorization.ActionRequestImpersonate)
	if errors.Is(err, authorization.ErrForbidden) {
		return nil, fmt.Errorf("%w: %w", domain.ErrForbidden, err)
	}
	if err != nil {
		return nil, err
	}
	target, err := s.userRepo.FindByID(ctx, s.db.WithContext(ctx), viewer.ImpersonateUserID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, domain.NotFound("user", viewer.ImpersonateUserID)
	}
	return target, nil
}

func (s *Service) pendingStatuses() []domain.Status {
	statuses := make([]domain.Status, 0)
	for _, raw := range s.policy.Get().PendingStatuses {
		status, err := domain.ParseStatus(raw)
		if err != nil {
			s.log.Warn("ignoring unknown pending status", zap.String("status", raw))
			continue
		}
		statuses = append(statuses, status)
	}
	if len(statuses) == 0 {
		return domain.DefaultPendingStatuses()
	}
	return statuses
}

func parseCursor(cursor *pagination.Cursor) (time.Time, snowflake.ID, error) {
	id, err := snowflake.ParseString(cursor.ID)
	if err != nil {
		return time.Time{}, 0, pagination.ErrInvalidPageToken
	}
	createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
	if err != nil {
		return time.Time{}, 0, pagination.ErrInvalidPageToken
	}
	return createdAt.UTC(), id, nil
}
