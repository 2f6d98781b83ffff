package authorization

import (
	"context"
	_ "embed"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer loads policies stored through the gorm adapter and makes
// sure the built-in capability set is present.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor Actor, object string, action string) error {
	allowed, err := s.Can(ctx, actor, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("user_id", actor.UserID.String()),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) Can(ctx context.Context, actor Actor, object string, action string) (bool, error) {
	if actor.UserID == 0 {
		return false, ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return false, ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return false, ErrInvalidAction
	}

	if role := roleSubject(actor.GlobalRole); role != "" {
		allowed, err := s.enforcer.Enforce(role, DomainPlatform, object, action)
		if err != nil || allowed {
			return allowed, err
		}
	}
	if role := roleSubject(actor.WorkspaceRole); role != "" {
		return s.enforcer.Enforce(role, DomainWorkspace, object, action)
	}
	return false, nil
}

func roleSubject(role string) string {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return ""
	}
	return "role:" + role
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Global admins
		{"role:admin", DomainPlatform, ObjectRequest, ActionRequestViewAll},
		{"role:admin", DomainPlatform, ObjectRequest, ActionRequestUpdateAny},
		{"role:admin", DomainPlatform, ObjectRequest, ActionRequestDeleteAny},
		{"role:admin", DomainPlatform, ObjectRequest, ActionRequestDelete},
		{"role:admin", DomainPlatform, ObjectRequest, ActionRequestImpersonate},
		{"role:admin", DomainPlatform, ObjectWorkspace, ActionWorkspaceCreditsView},

		// Workspace roster
		{"role:admin", DomainWorkspace, ObjectRequest, ActionRequestDelete},
		{"role:admin", DomainWorkspace, ObjectWorkspace, ActionWorkspaceCreditsView},
		{"role:success_manager", DomainWorkspace, ObjectWorkspace, ActionWorkspaceCreditsView},
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
