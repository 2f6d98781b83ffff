package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/servicedesk/internal/clock"
	"github.com/smallbiznis/servicedesk/internal/config"
	"github.com/smallbiznis/servicedesk/internal/notification/domain"
	"github.com/smallbiznis/servicedesk/internal/notification/publisher"
	obsmetrics "github.com/smallbiznis/servicedesk/internal/observability/metrics"
	"github.com/smallbiznis/servicedesk/internal/providers/email"
	"github.com/smallbiznis/servicedesk/internal/providers/slack"
	userdomain "github.com/smallbiznis/servicedesk/internal/user/domain"
	"github.com/smallbiznis/servicedesk/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const inboxPageSize = 100

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Cfg        config.Config
	Repo       domain.Repository
	UserRepo   userdomain.Repository
	Email      email.Provider      `optional:"true"`
	Slack      slack.Provider      `optional:"true"`
	Publisher  publisher.Publisher `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	userRepo   userdomain.Repository
	email      email.Provider
	slack      slack.Provider
	publisher  publisher.Publisher
	opsChannel string
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	svc := &Service{
		db:         p.DB,
		log:        p.Log.Named("notification.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		userRepo:   p.UserRepo,
		email:      p.Email,
		slack:      p.Slack,
		publisher:  p.Publisher,
		opsChannel: p.Cfg.Slack.OpsChannel,
		obsMetrics: p.ObsMetrics,
	}
	if svc.clock == nil {
		svc.clock = clock.New()
	}
	if svc.email == nil {
		svc.email = &email.NoOpProvider{}
	}
	if svc.slack == nil {
		svc.slack = &slack.NoOpProvider{}
	}
	if svc.publisher == nil {
		svc.publisher = publisher.NoOpPublisher{}
	}
	return svc
}

func (s *Service) Dispatch(ctx context.Context, tx *gorm.DB, input domain.DispatchInput) (*domain.Batch, error) {
	switch input.Category {
	case domain.CategoryRequestCreated, domain.CategoryRequestUpdated, domain.CategoryRequestStatusChanged:
	default:
		return nil, domain.ErrInvalidCategory
	}

	recipients := uniqueRecipients(input.Recipients)
	if len(recipients) == 0 {
		return nil, domain.ErrNoRecipients
	}

	batch := &domain.Batch{
		ID:          uuid.NewString(),
		Category:    input.Category,
		WorkspaceID: input.WorkspaceID,
		RequestID:   input.RequestID,
		ActorID:     input.ActorID,
		Payload:     input.Payload,
	}

	var requestID *snowflake.ID
	if input.RequestID != 0 {
		id := input.RequestID
		requestID = &id
	}

	now := s.clock.Now()
	for _, recipientID := range recipients {
		var payload datatypes.JSONMap
		if len(input.Payload) > 0 {
			payload = datatypes.JSONMap{}
			for k, v := range input.Payload {
				payload[k] = v
			}
		}
		batch.Notifications = append(batch.Notifications, &domain.Notification{
			ID:          s.genID.Generate(),
			BatchID:     batch.ID,
			RecipientID: recipientID,
			WorkspaceID: input.WorkspaceID,
			RequestID:   requestID,
			ActorID:     input.ActorID,
			Category:    input.Category,
			Payload:     payload,
			CreatedAt:   now,
		})
	}

	if err := s.repo.InsertMany(ctx, tx, batch.Notifications); err != nil {
		return nil, err
	}
	return batch, nil
}

type event struct {
	BatchID      string            `json:"batch_id"`
	Category     domain.Category   `json:"category"`
	WorkspaceID  string            `json:"workspace_id"`
	RequestID    string            `json:"request_id,omitempty"`
	ActorID      string            `json:"actor_id"`
	RecipientIDs []string          `json:"recipient_ids"`
	Payload      map[string]any    `json:"payload,omitempty"`
	Meta         map[string]string `json:"meta"`
}

func (s *Service) Deliver(ctx context.Context, batches ...*domain.Batch) error {
	var errs []error
	for _, batch := range batches {
		if batch == nil || len(batch.Notifications) == 0 {
			continue
		}
		log := s.log.With(
			zap.String("batch_id", batch.ID),
			zap.String("category", string(batch.Category)),
		)

		if err := s.publish(ctx, batch); err != nil {
			log.Warn("failed to publish notification event", zap.Error(err))
			errs = append(errs, fmt.Errorf("publish %s: %w", batch.ID, err))
		}
		if err := s.sendEmails(ctx, batch); err != nil {
			log.Warn("failed to send notification emails", zap.Error(err))
			errs = append(errs, fmt.Errorf("email %s: %w", batch.ID, err))
		}
		if batch.Category == domain.CategoryRequestCreated && s.opsChannel != "" {
			title, _ := batch.Payload["title"].(string)
			message := fmt.Sprintf("New request %q in workspace %s", title, batch.WorkspaceID)
			if err := s.slack.PostMessage(ctx, s.opsChannel, message); err != nil {
				log.Warn("failed to post ops message", zap.Error(err))
				errs = append(errs, fmt.Errorf("slack %s: %w", batch.ID, err))
			}
		}

		s.obsMetrics.RecordNotification(ctx, string(batch.Category), len(batch.Notifications))
	}
	return errors.Join(errs...)
}

func (s *Service) publish(ctx context.Context, batch *domain.Batch) error {
	recipients := batch.RecipientIDs()
	evt := event{
		BatchID:      batch.ID,
		Category:     batch.Category,
		WorkspaceID:  batch.WorkspaceID.String(),
		ActorID:      batch.ActorID.String(),
		RecipientIDs: make([]string, 0, len(recipients)),
		Payload:      batch.Payload,
		Meta:         correlation.Stamp(ctx, s.clock.Now()),
	}
	if batch.RequestID != 0 {
		evt.RequestID = batch.RequestID.String()
	}
	for _, id := range recipients {
		evt.RecipientIDs = append(evt.RecipientIDs, id.String())
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return s.publisher.Publish(ctx, payload)
}

func (s *Service) sendEmails(ctx context.Context, batch *domain.Batch) error {
	users, err := s.userRepo.FindByIDs(ctx, s.db, batch.RecipientIDs())
	if err != nil {
		return err
	}

	var errs []error
	for _, user := range users {
		if user.Email == "" {
			continue
		}
		data := make(map[string]any, len(batch.Payload)+1)
		for k, v := range batch.Payload {
			data[k] = v
		}
		data["recipient_name"] = user.DisplayName()
		if err := s.email.SendTemplate(ctx, []string{user.Email}, email.Template(batch.Category), data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) ListForRecipient(ctx context.Context, recipientID snowflake.ID, unreadOnly bool) ([]*domain.Notification, error) {
	return s.repo.ListByRecipient(ctx, s.db, recipientID, unreadOnly, inboxPageSize)
}

func (s *Service) MarkRead(ctx context.Context, id, recipientID snowflake.ID) error {
	affected, err := s.repo.MarkRead(ctx, s.db, id, recipientID, s.clock.Now())
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func uniqueRecipients(ids []snowflake.ID) []snowflake.ID {
	seen := make(map[snowflake.ID]struct{}, len(ids))
	out := make([]snowflake.ID, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
