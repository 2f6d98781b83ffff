package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/smallbiznis/servicedesk/internal/activity/domain"
	ledgerdomain "github.com/smallbiznis/servicedesk/internal/ledger/domain"
	notificationdomain "github.com/smallbiznis/servicedesk/internal/notification/domain"
	"github.com/smallbiznis/servicedesk/internal/relation"
	"github.com/smallbiznis/servicedesk/internal/request/domain"
	versiondomain "github.com/smallbiznis/servicedesk/internal/version/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Service) Create(ctx context.Context, req domain.CreateRequest, caller domain.Caller) (*domain.Request, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.InvalidInput("title is required")
	}
	if req.WorkspaceID == 0 {
		return nil, domain.InvalidInput("workspace_id is required")
	}
	if req.ServiceID == 0 {
		return nil, domain.InvalidInput("service_id is required")
	}
	priority := domain.PriorityMedium
	if strings.TrimSpace(string(req.Priority)) != "" {
		parsed, err := domain.ParsePriority(string(req.Priority))
		if err != nil {
			return nil, err
		}
		priority = parsed
	}

	// Resolved outside the unit of work; the lookup is cached after the
	// first call.
	platformAdminID, err := s.users.PlatformAdminID(ctx)
	if err != nil {
		return nil, err
	}

	var (
		created *domain.Request
		batch   *notificationdomain.Batch
	)
	err = s.execute(ctx, opCreate, 0, func(ctx context.Context, tx *gorm.DB) (string, error) {
		workspace, err := s.lockWorkspace(ctx, tx, req.WorkspaceID)
		if err != nil {
			return "", err
		}
		a, err := s.resolveActor(ctx, tx, caller)
		if err != nil {
			return "", err
		}
		if workspace.CreditBalance <= 0 {
			return "", fmt.Errorf("%w: workspace %s has no credits left", domain.ErrInsufficientCredits, workspace.ID)
		}
		offering, err := s.activeOffering(ctx, tx, req.ServiceID)
		if err != nil {
			return "", err
		}
		if workspace.CreditBalance < offering.Credits {
			return "", &ledgerdomain.InsufficientCreditsError{
				WorkspaceID: workspace.ID,
				Balance:     workspace.CreditBalance,
				Required:    offering.Credits,
			}
		}
		if err := s.checkQuota(ctx, tx, workspace.ID, workspace.PlanID, a.id()); err != nil {
			return "", err
		}
		if req.ParentRequestID != nil && *req.ParentRequestID != 0 {
			parent, err := s.repo.FindByID(ctx, tx, *req.ParentRequestID)
			if err != nil {
				return "", err
			}
			if parent == nil {
				return "", domain.NotFound("parent request", *req.ParentRequestID)
			}
			if parent.WorkspaceID != workspace.ID {
				return "", domain.InvalidInput("parent request %s belongs to another workspace", parent.ID)
			}
		}

		now := s.clock.Now()
		request := &domain.Request{
			ID:              s.genID.Generate(),
			WorkspaceID:     workspace.ID,
			CreatedBy:       a.id(),
			Title:           title,
			Details:         strings.TrimSpace(req.Details),
			ServiceID:       offering.ID,
			Credits:         offering.Credits,
			Status:          domain.StatusQueued,
			Priority:        priority,
			DueDate:         utcPtr(req.DueDate),
			InternalDueDate: utcPtr(req.InternalDueDate),
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if req.ParentRequestID != nil && *req.ParentRequestID != 0 {
			parentID := *req.ParentRequestID
			request.ParentRequestID = &parentID
		}
		if err := s.repo.Insert(ctx, tx, request); err != nil {
			return "", err
		}

		parent := relation.Request(request.ID)
		if len(req.Links) > 0 {
			if _, err := s.links.Create(ctx, tx, parent, req.Links, a.id()); err != nil {
				return "", err
			}
		}
		if len(req.FileIDs) > 0 {
			if err := s.files.Relink(ctx, tx, workspace.ID, req.FileIDs, parent); err != nil {
				return "", err
			}
		}
		if len(req.AssigneeIDs) > 0 {
			if err := s.assignees.Replace(ctx, tx, parent, req.AssigneeIDs, a.id()); err != nil {
				return "", err
			}
		}

		if _, err := s.ledger.Debit(ctx, tx, workspace.ID, offering.Credits, ledgerdomain.Ref{
			RequestID: request.ID,
			ActorID:   a.id(),
			Reason:    ledgerdomain.ReasonRequestCreated,
		}); err != nil {
			return "", err
		}

		change := request.CreationChange(req.AssigneeIDs)
		if _, err := s.versions.Record(ctx, tx, versiondomain.RecordInput{
			RequestID:     request.ID,
			ActorID:       a.id(),
			Action:        versiondomain.ActionCreation,
			ChangedFields: change.Labels,
			Snapshot:      change.Snapshot,
		}); err != nil {
			return "", err
		}

		if _, err := s.activities.Append(ctx, tx, activitydomain.AppendInput{
			WorkspaceID: workspace.ID,
			Parent:      parent,
			ActorID:     a.id(),
			Message:     fmt.Sprintf("%s created request %q", a.user.DisplayName(), request.Title),
		}); err != nil {
			return "", err
		}

		creatorID := a.id()
		batch, err = s.notifications.Dispatch(ctx, tx, notificationdomain.DispatchInput{
			Category:    notificationdomain.CategoryRequestCreated,
			WorkspaceID: workspace.ID,
			RequestID:   request.ID,
			ActorID:     a.id(),
			Recipients:  recipients(&platformAdminID, workspace.SuccessManagerID, &creatorID),
			Payload: map[string]any{
				"title":   request.Title,
				"status":  string(request.Status),
				"credits": request.Credits,
			},
		})
		if err != nil {
			return "", err
		}

		created = request
		s.log.Info("request created",
			zap.String("request_id", request.ID.String()),
			zap.String("workspace_id", workspace.ID.String()),
			zap.String("actor_id", a.id().String()),
			zap.Int64("credits", request.Credits),
		)
		return "", nil
	})
	if err != nil {
		return nil, err
	}

	s.deliver(ctx, batch)
	return created, nil
}

// checkQuota rejects a create once the actor already holds as many open
// requests in the workspace as its plan allows.
func (s *Service) checkQuota(ctx context.Context, tx *gorm.DB, workspaceID snowflake.ID, planID *snowflake.ID, userID snowflake.ID) error {
	if planID == nil || *planID == 0 {
		return domain.InvalidState("workspace %s has no plan", workspaceID)
	}
	plan, err := s.catalogRepo.FindPlan(ctx, tx, *planID)
	if err != nil {
		return err
	}
	if plan == nil {
		return domain.InvalidState("plan %s does not exist", *planID)
	}
	open, err := s.repo.CountByCreatorAndStatus(ctx, tx, workspaceID, userID, s.activeStatuses())
	if err != nil {
		return err
	}
	if open >= plan.ActiveOrdersAllowed {
		return domain.InvalidState("active request quota of %d reached", plan.ActiveOrdersAllowed)
	}
	return nil
}
