// Package cascade removes a request together with every record that
// references it.
package cascade

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/smallbiznis/servicedesk/internal/activity/domain"
	assigneedomain "github.com/smallbiznis/servicedesk/internal/assignee/domain"
	commentdomain "github.com/smallbiznis/servicedesk/internal/comment/domain"
	filedomain "github.com/smallbiznis/servicedesk/internal/file/domain"
	linkdomain "github.com/smallbiznis/servicedesk/internal/link/domain"
	notificationdomain "github.com/smallbiznis/servicedesk/internal/notification/domain"
	"github.com/smallbiznis/servicedesk/internal/relation"
	"github.com/smallbiznis/servicedesk/internal/request/domain"
	versiondomain "github.com/smallbiznis/servicedesk/internal/version/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log           *zap.Logger
	Requests      domain.Repository
	Versions      versiondomain.Repository
	Activities    activitydomain.Repository
	Comments      commentdomain.Repository
	Assignees     assigneedomain.Repository
	Links         linkdomain.Repository
	Files         filedomain.Repository
	Notifications notificationdomain.Repository
}

// Sweeper deletes a request and its dependents on the caller's
// transaction.
type Sweeper struct {
	log           *zap.Logger
	requests      domain.Repository
	versions      versiondomain.Repository
	activities    activitydomain.Repository
	comments      commentdomain.Repository
	assignees     assigneedomain.Repository
	links         linkdomain.Repository
	files         filedomain.Repository
	notifications notificationdomain.Repository
}

func New(p Params) *Sweeper {
	return &Sweeper{
		log:           p.Log.Named("request.cascade"),
		requests:      p.Requests,
		versions:      p.Versions,
		activities:    p.Activities,
		comments:      p.Comments,
		assignees:     p.Assignees,
		links:         p.Links,
		files:         p.Files,
		notifications: p.Notifications,
	}
}

type step struct {
	name string
	run  func(ctx context.Context, tx *gorm.DB, id snowflake.ID) error
}

func (s *Sweeper) steps() []step {
	byParent := func(del func(context.Context, *gorm.DB, relation.Ref) error) func(context.Context, *gorm.DB, snowflake.ID) error {
		return func(ctx context.Context, tx *gorm.DB, id snowflake.ID) error {
			return del(ctx, tx, relation.Request(id))
		}
	}
	return []step{
		{name: "versions", run: s.versions.DeleteByRequest},
		{name: "activities", run: byParent(s.activities.DeleteByParent)},
		{name: "comments", run: byParent(s.comments.DeleteThread)},
		{name: "assignees", run: byParent(s.assignees.DeleteByParent)},
		{name: "links", run: byParent(s.links.DeleteByParent)},
		{name: "files", run: byParent(s.files.DeleteByParent)},
		{name: "notifications", run: s.notifications.DeleteByRequest},
		{name: "subtasks", run: s.requests.DetachSubtasks},
	}
}

// DeleteRequest sweeps the dependents of id, detaches its subtasks and
// deletes the row. It returns ErrNotFound when the row is already gone.
// tx must be an open transaction; any failure leaves it for the caller to
// roll back.
func (s *Sweeper) DeleteRequest(ctx context.Context, tx *gorm.DB, id snowflake.ID) error {
	if tx == nil {
		return fmt.Errorf("cascade: %w", gorm.ErrInvalidTransaction)
	}
	for _, st := range s.steps() {
		if err := st.run(ctx, tx, id); err != nil {
			return fmt.Errorf("cascade %s: %w", st.name, err)
		}
	}

	affected, err := s.requests.Delete(ctx, tx, id)
	if err != nil {
		return fmt.Errorf("cascade request: %w", err)
	}
	if affected == 0 {
		return domain.NotFound("request", id)
	}

	s.log.Debug("request swept", zap.String("request_id", id.String()))
	return nil
}
