package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/smallbiznis/servicedesk/internal/activity/domain"
	assigneedomain "github.com/smallbiznis/servicedesk/internal/assignee/domain"
	"github.com/smallbiznis/servicedesk/internal/authorization"
	catalogdomain "github.com/smallbiznis/servicedesk/internal/catalog/domain"
	"github.com/smallbiznis/servicedesk/internal/clock"
	"github.com/smallbiznis/servicedesk/internal/config"
	filedomain "github.com/smallbiznis/servicedesk/internal/file/domain"
	ledgerdomain "github.com/smallbiznis/servicedesk/internal/ledger/domain"
	linkdomain "github.com/smallbiznis/servicedesk/internal/link/domain"
	notificationdomain "github.com/smallbiznis/servicedesk/internal/notification/domain"
	obsmetrics "github.com/smallbiznis/servicedesk/internal/observability/metrics"
	"github.com/smallbiznis/servicedesk/internal/observability/tracing"
	"github.com/smallbiznis/servicedesk/internal/relation"
	"github.com/smallbiznis/servicedesk/internal/request/cascade"
	"github.com/smallbiznis/servicedesk/internal/request/domain"
	userdomain "github.com/smallbiznis/servicedesk/internal/user/domain"
	versiondomain "github.com/smallbiznis/servicedesk/internal/version/domain"
	workspacedomain "github.com/smallbiznis/servicedesk/internal/workspace/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	opCreate  = "create"
	opUpdate  = "update"
	opPatch   = "patch_fields"
	opArchive = "archive"
	opDelete  = "delete"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Policy        *config.RequestPolicyHolder `optional:"true"`
	Repo          domain.Repository
	WorkspaceRepo workspacedomain.Repository
	CatalogRepo   catalogdomain.Repository
	UserRepo      userdomain.Repository
	Users         userdomain.Service
	Authz         authorization.Service
	Ledger        ledgerdomain.Service
	Versions      versiondomain.Service
	Links         linkdomain.Service
	Files         filedomain.Service
	Assignees     assigneedomain.Service
	Activities    activitydomain.Service
	Notifications notificationdomain.Service
	Sweeper       *cascade.Sweeper
	ObsMetrics    *obsmetrics.Metrics       `optional:"true"`
	EngineMetrics *obsmetrics.EngineMetrics `optional:"true"`
}

// Service runs every lifecycle operation of a request as one unit of
// work. Collaborators receive the same tx; delivery of notifications
// waits for the commit.
type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	policy        *config.RequestPolicyHolder
	repo          domain.Repository
	workspaceRepo workspacedomain.Repository
	catalogRepo   catalogdomain.Repository
	userRepo      userdomain.Repository
	users         userdomain.Service
	authz         authorization.Service
	ledger        ledgerdomain.Service
	versions      versiondomain.Service
	links         linkdomain.Service
	files         filedomain.Service
	assignees     assigneedomain.Service
	activities    activitydomain.Service
	notifications notificationdomain.Service
	sweeper       *cascade.Sweeper
	obsMetrics    *obsmetrics.Metrics
	engineMetrics *obsmetrics.EngineMetrics
	tracer        trace.Tracer
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("request.service"),
		genID:         p.GenID,
		clock:         clk,
		policy:        p.Policy,
		repo:          p.Repo,
		workspaceRepo: p.WorkspaceRepo,
		catalogRepo:   p.CatalogRepo,
		userRepo:      p.UserRepo,
		users:         p.Users,
		authz:         p.Authz,
		ledger:        p.Ledger,
		versions:      p.Versions,
		links:         p.Links,
		files:         p.Files,
		assignees:     p.Assignees,
		activities:    p.Activities,
		notifications: p.Notifications,
		sweeper:       p.Sweeper,
		obsMetrics:    p.ObsMetrics,
		engineMetrics: p.EngineMetrics,
		tracer:        otel.Tracer("servicedesk/request"),
	}
}

// unit is the body of one transaction. It returns the outcome label to
// report, or "" to derive it from the error.
type unit func(ctx context.Context, tx *gorm.DB) (string, error)

// execute wraps fn in a transaction, a span and the outcome metrics.
// Nothing fn wrote survives a returned error.
func (s *Service) execute(ctx context.Context, op string, requestID snowflake.ID, fn unit) error {
	ctx, span := s.tracer.Start(ctx, "request."+op, trace.WithAttributes(tracing.SafeAttributes(
		attribute.String("request.operation", op),
		attribute.String("request.id", requestID.String()),
	)...))
	defer span.End()

	start := time.Now()
	var outcome string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		outcome, err = fn(ctx, tx)
		return err
	})
	err = translate(err)
	elapsed := time.Since(start)

	if outcome == "" || err != nil {
		outcome = obsmetrics.EngineOutcomeFor(err)
	}
	s.engineMetrics.ObserveOperation(op, outcome, elapsed, err)
	s.obsMetrics.RecordRequestMutation(ctx, op, outcome)

	if err != nil {
		span.RecordError(tracing.SafeError(err))
		span.SetStatus(codes.Error, string(domain.KindOf(err)))
		log := s.log.With(
			zap.String("operation", op),
			zap.String("request_id", requestID.String()),
			zap.String("kind", string(domain.KindOf(err))),
			zap.Error(err),
		)
		if domain.KindOf(err) == domain.KindInternal {
			log.Error("request operation failed")
		} else {
			log.Info("request operation rejected")
		}
		return err
	}

	s.log.Debug("request operation committed",
		zap.String("operation", op),
		zap.String("request_id", requestID.String()),
		zap.String("outcome", outcome),
		zap.Duration("elapsed", elapsed),
	)
	return nil
}

// deliver pushes committed batches out of process. The rows are already
// committed, so a failure here is logged and never fails the operation.
func (s *Service) deliver(ctx context.Context, batches ...*notificationdomain.Batch) {
	pending := make([]*notificationdomain.Batch, 0, len(batches))
	for _, batch := range batches {
		if batch != nil {
			pending = append(pending, batch)
		}
	}
	if len(pending) == 0 {
		return
	}
	if err := s.notifications.Deliver(context.WithoutCancel(ctx), pending...); err != nil {
		s.log.Warn("notification delivery failed", zap.Error(err))
	}
}

// actor is the user an operation is attributed to. impersonatorID is set
// when a global admin acts on someone else's behalf.
type actor struct {
	user           *userdomain.User
	impersonatorID snowflake.ID
}

func (a actor) id() snowflake.ID {
	return a.user.ID
}

func (a actor) authzActor(workspaceRole string) authorization.Actor {
	return authorization.Actor{
		UserID:        a.user.ID,
		GlobalRole:    string(a.user.Role),
		WorkspaceRole: workspaceRole,
	}
}

func (s *Service) resolveActor(ctx context.Context, tx *gorm.DB, caller domain.Caller) (actor, error) {
	if caller.UserID == 0 {
		return actor{}, domain.InvalidInput("caller identity is required")
	}
	user, err := s.userRepo.FindByID(ctx, tx, caller.UserID)
	if err != nil {
		return actor{}, err
	}
	if user == nil {
		return actor{}, domain.NotFound("user", caller.UserID)
	}
	if caller.ImpersonateUserID == 0 || caller.ImpersonateUserID == caller.UserID {
		return actor{user: user}, nil
	}

	caps := authorization.Actor{UserID: user.ID, GlobalRole: string(user.Role)}
	if err := s.authz.Authorize(ctx, caps, authorization.ObjectRequest, authorization.ActionRequestImpersonate); err != nil {
		return actor{}, err
	}
	target, err := s.userRepo.FindByID(ctx, tx, caller.ImpersonateUserID)
	if err != nil {
		return actor{}, err
	}
	if target == nil {
		return actor{}, domain.NotFound("user", caller.ImpersonateUserID)
	}
	s.log.Info("acting on behalf of user",
		zap.String("impersonator_id", user.ID.String()),
		zap.String("user_id", target.ID.String()),
	)
	return actor{user: target, impersonatorID: user.ID}, nil
}

// authorizeModify lets the creator, a global admin or a current assignee
// change a request.
func (s *Service) authorizeModify(ctx context.Context, tx *gorm.DB, a actor, request *domain.Request) error {
	if a.id() == request.CreatedBy {
		return nil
	}
	allowed, err := s.authz.Can(ctx, a.authzActor(""), authorization.ObjectRequest, authorization.ActionRequestUpdateAny)
	if err != nil {
		return err
	}
	if allowed {
		return nil
	}
	assigned, err := s.assignees.IsAssigned(ctx, tx, relation.Request(request.ID), a.id())
	if err != nil {
		return err
	}
	if assigned {
		return nil
	}
	return domain.Forbidden("user %s may not modify request %s", a.id(), request.ID)
}

func (s *Service) lockRequest(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Request, error) {
	start := time.Now()
	request, err := s.repo.FindByIDForUpdate(ctx, tx, id)
	s.engineMetrics.ObserveLockWait("request", time.Since(start))
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, domain.NotFound("request", id)
	}
	return request, nil
}

func (s *Service) lockWorkspace(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*workspacedomain.Workspace, error) {
	start := time.Now()
	workspace, err := s.workspaceRepo.FindByIDForUpdate(ctx, tx, id)
	s.engineMetrics.ObserveLockWait("workspace", time.Since(start))
	if err != nil {
		return nil, err
	}
	if workspace == nil {
		return nil, domain.NotFound("workspace", id)
	}
	return workspace, nil
}

func (s *Service) loadWorkspace(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*workspacedomain.Workspace, error) {
	workspace, err := s.workspaceRepo.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if workspace == nil {
		return nil, domain.NotFound("workspace", id)
	}
	return workspace, nil
}

// activeOffering loads a service that can be booked right now.
func (s *Service) activeOffering(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*catalogdomain.Offering, error) {
	offering, err := s.catalogRepo.FindOffering(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if offering == nil {
		return nil, domain.NotFound("service", id)
	}
	if !offering.IsActive() {
		return nil, domain.InvalidState("service %s is %s", id, offering.Status)
	}
	return offering, nil
}

func (s *Service) strictTransitions() bool {
	return s.policy.Get().StrictTransitions
}

func (s *Service) checkTransition(from, to domain.Status) error {
	if !to.Valid() {
		return domain.InvalidState("unknown status %q", to)
	}
	if s.strictTransitions() && !domain.CanTransition(from, to) {
		return domain.InvalidState("cannot move request from %s to %s", from, to)
	}
	return nil
}

func (s *Service) activeStatuses() []domain.Status {
	statuses := make([]domain.Status, 0)
	for _, raw := range s.policy.Get().ActiveStatuses {
		status, err := domain.ParseStatus(raw)
		if err != nil {
			s.log.Warn("ignoring unknown active status", zap.String("status", raw))
			continue
		}
		statuses = append(statuses, status)
	}
	if len(statuses) == 0 {
		return domain.DefaultActiveStatuses()
	}
	return statuses
}

func recipients(ids ...*snowflake.ID) []snowflake.ID {
	out := make([]snowflake.ID, 0, len(ids))
	for _, id := range ids {
		if id != nil && *id != 0 {
			out = append(out, *id)
		}
	}
	return out
}

// translate maps collaborator failures onto the request error kinds.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if domain.KindOf(err) != domain.KindInternal {
		return err
	}
	switch {
	case errors.Is(err, authorization.ErrForbidden):
		return fmt.Errorf("%w: %w", domain.ErrForbidden, err)
	case errors.Is(err, ledgerdomain.ErrWorkspaceNotFound),
		errors.Is(err, filedomain.ErrNotFound):
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	case errors.Is(err, linkdomain.ErrInvalidURL),
		errors.Is(err, filedomain.ErrCrossWorkspace),
		errors.Is(err, assigneedomain.ErrInvalidUser),
		errors.Is(err, ledgerdomain.ErrInvalidAmount):
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return err
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.UTC()
	return &v
}
