package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/smallbiznis/servicedesk/internal/activity/domain"
	ledgerdomain "github.com/smallbiznis/servicedesk/internal/ledger/domain"
	notificationdomain "github.com/smallbiznis/servicedesk/internal/notification/domain"
	obsmetrics "github.com/smallbiznis/servicedesk/internal/observability/metrics"
	"github.com/smallbiznis/servicedesk/internal/relation"
	"github.com/smallbiznis/servicedesk/internal/request/domain"
	versiondomain "github.com/smallbiznis/servicedesk/internal/version/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Service) Update(ctx context.Context, id snowflake.ID, req domain.UpdateRequest, caller domain.Caller) (string, error) {
	if err := validateUpdate(&req); err != nil {
		return "", err
	}
	platformAdminID, err := s.users.PlatformAdminID(ctx)
	if err != nil {
		return "", err
	}

	var batch *notificationdomain.Batch
	err = s.execute(ctx, opUpdate, id, func(ctx context.Context, tx *gorm.DB) (string, error) {
		request, err := s.lockRequest(ctx, tx, id)
		if err != nil {
			return "", err
		}
		a, err := s.resolveActor(ctx, tx, caller)
		if err != nil {
			return "", err
		}
		if err := s.authorizeModify(ctx, tx, a, request); err != nil {
			return "", err
		}
		if request.Archived() {
			return "", domain.InvalidState("request %s is archived", request.ID)
		}
		if req.Status != nil {
			if err := s.checkTransition(request.Status, *req.Status); err != nil {
				return "", err
			}
		}

		parent := relation.Request(request.ID)
		var beforeAssignees []snowflake.ID
		if req.AssigneeIDs != nil {
			beforeAssignees, err = s.assignees.UserIDs(ctx, tx, parent)
			if err != nil {
				return "", err
			}
		}
		// Captured before any write so the diff sees original values.
		before := request.TrackedValues(beforeAssignees)
		after := domain.FieldValues{}
		updates := map[string]any{}
		var extra []string

		if req.ServiceID != nil && *req.ServiceID != request.ServiceID {
			credits, err := s.changeService(ctx, tx, a, request, *req.ServiceID)
			if err != nil {
				return "", err
			}
			updates["service_id"] = *req.ServiceID
			updates["credits"] = credits
			extra = append(extra, "Service")
		}

		now := s.clock.Now()
		if req.Title != nil {
			updates["title"] = *req.Title
			after[domain.FieldTitle] = *req.Title
		}
		if req.Details != nil {
			updates["details"] = *req.Details
			after[domain.FieldDetails] = *req.Details
		}
		if req.Priority != nil {
			updates["priority"] = *req.Priority
			after[domain.FieldPriority] = *req.Priority
		}
		if req.DueDate != nil {
			updates["due_date"] = utcPtr(req.DueDate)
			after[domain.FieldDueDate] = req.DueDate
		}
		if req.InternalDueDate != nil {
			updates["internal_due_date"] = utcPtr(req.InternalDueDate)
		}
		if req.Status != nil {
			updates["status"] = *req.Status
			after[domain.FieldStatus] = *req.Status
			stampCompletion(updates, request.Status, *req.Status, now)
		}
		if req.AssigneeIDs != nil {
			after[domain.FieldAssignees] = req.AssigneeIDs
		}
		if len(updates) > 0 {
			updates["updated_at"] = now
			if err := s.repo.UpdateFields(ctx, tx, request.ID, updates); err != nil {
				return "", err
			}
		}

		if req.Links != nil {
			if _, err := s.links.Replace(ctx, tx, parent, req.Links, a.id()); err != nil {
				return "", err
			}
			extra = append(extra, "Links")
		}
		if len(req.FileIDs) > 0 {
			if err := s.files.Relink(ctx, tx, request.WorkspaceID, req.FileIDs, parent); err != nil {
				return "", err
			}
			extra = append(extra, "Files")
		}
		if req.AssigneeIDs != nil {
			if err := s.assignees.Replace(ctx, tx, parent, req.AssigneeIDs, a.id()); err != nil {
				return "", err
			}
		}

		change := domain.Diff(domain.TrackedFields, before, after)
		if _, err := s.activities.Append(ctx, tx, activitydomain.AppendInput{
			WorkspaceID: request.WorkspaceID,
			Parent:      parent,
			ActorID:     a.id(),
			Message:     describeUpdate(a.user.DisplayName(), append(change.Labels, extra...)),
		}); err != nil {
			return "", err
		}
		if !change.Empty() {
			if _, err := s.versions.Record(ctx, tx, versiondomain.RecordInput{
				RequestID:     request.ID,
				ActorID:       a.id(),
				Action:        versiondomain.ActionUpdate,
				ChangedFields: change.Labels,
				Snapshot:      change.Snapshot,
			}); err != nil {
				return "", err
			}
		}

		workspace, err := s.loadWorkspace(ctx, tx, request.WorkspaceID)
		if err != nil {
			return "", err
		}
		actorID := a.id()
		batch, err = s.notifications.Dispatch(ctx, tx, notificationdomain.DispatchInput{
			Category:    notificationdomain.CategoryRequestUpdated,
			WorkspaceID: request.WorkspaceID,
			RequestID:   request.ID,
			ActorID:     actorID,
			Recipients:  recipients(&platformAdminID, workspace.SuccessManagerID, &actorID),
			Payload: map[string]any{
				"title":          titleAfter(request, req.Title),
				"changed_fields": change.Labels,
			},
		})
		if err != nil {
			return "", err
		}

		if change.Empty() && len(extra) == 0 {
			return obsmetrics.EngineOutcomeNoop, nil
		}
		return "", nil
	})
	if err != nil {
		return "", err
	}

	s.deliver(ctx, batch)
	return domain.UpdatedMessage, nil
}

// changeService rebooks request onto a new service and settles the cost
// difference with the ledger. It returns the new credits value.
func (s *Service) changeService(ctx context.Context, tx *gorm.DB, a actor, request *domain.Request, serviceID snowflake.ID) (int64, error) {
	offering, err := s.activeOffering(ctx, tx, serviceID)
	if err != nil {
		return 0, err
	}
	difference := offering.Credits - request.Credits
	if _, err := s.ledger.Adjust(ctx, tx, request.WorkspaceID, difference, ledgerdomain.Ref{
		RequestID: request.ID,
		ActorID:   a.id(),
		Reason:    ledgerdomain.ReasonServiceChanged,
	}); err != nil {
		return 0, err
	}
	s.log.Info("request service changed",
		zap.String("request_id", request.ID.String()),
		zap.String("service_id", serviceID.String()),
		zap.Int64("credits_difference", difference),
	)
	return request.Credits + difference, nil
}

func (s *Service) PatchFields(ctx context.Context, id snowflake.ID, patch domain.FieldPatch, caller domain.Caller) (string, error) {
	if patch.Empty() {
		return "", domain.InvalidInput("no fields to patch")
	}
	if err := validatePatch(&patch); err != nil {
		return "", err
	}

	var batch *notificationdomain.Batch
	err := s.execute(ctx, opPatch, id, func(ctx context.Context, tx *gorm.DB) (string, error) {
		request, err := s.lockRequest(ctx, tx, id)
		if err != nil {
			return "", err
		}
		a, err := s.resolveActor(ctx, tx, caller)
		if err != nil {
			return "", err
		}
		if err := s.authorizeModify(ctx, tx, a, request); err != nil {
			return "", err
		}
		if request.Archived() {
			return "", domain.InvalidState("request %s is archived", request.ID)
		}
		if patch.Status != nil {
			if err := s.checkTransition(request.Status, *patch.Status); err != nil {
				return "", err
			}
		}

		before := request.TrackedValues(nil)
		after := domain.FieldValues{}
		updates := map[string]any{}
		if patch.Title != nil {
			after[domain.FieldTitle] = *patch.Title
		}
		if patch.Details != nil {
			after[domain.FieldDetails] = *patch.Details
		}
		if patch.Priority != nil {
			after[domain.FieldPriority] = *patch.Priority
		}
		if patch.DueDate != nil {
			after[domain.FieldDueDate] = patch.DueDate
		}
		if patch.Status != nil {
			after[domain.FieldStatus] = *patch.Status
		}
		change := domain.Diff(domain.TrackedFields, before, after)

		now := s.clock.Now()
		for _, key := range change.Keys {
			switch key {
			case domain.FieldTitle:
				updates["title"] = *patch.Title
			case domain.FieldDetails:
				updates["details"] = *patch.Details
			case domain.FieldPriority:
				updates["priority"] = *patch.Priority
			case domain.FieldDueDate:
				updates["due_date"] = utcPtr(patch.DueDate)
			case domain.FieldStatus:
				updates["status"] = *patch.Status
				stampCompletion(updates, request.Status, *patch.Status, now)
			}
		}
		if patch.InternalDueDate != nil && !domain.EqualInstant(request.InternalDueDate, patch.InternalDueDate) {
			updates["internal_due_date"] = utcPtr(patch.InternalDueDate)
		}
		if len(updates) == 0 {
			return obsmetrics.EngineOutcomeNoop, nil
		}
		updates["updated_at"] = now
		if err := s.repo.UpdateFields(ctx, tx, request.ID, updates); err != nil {
			return "", err
		}

		parent := relation.Request(request.ID)
		labels := change.Labels
		if _, ok := updates["internal_due_date"]; ok {
			labels = append(append([]string{}, labels...), "Internal Due Date")
		}
		if _, err := s.activities.Append(ctx, tx, activitydomain.AppendInput{
			WorkspaceID: request.WorkspaceID,
			Parent:      parent,
			ActorID:     a.id(),
			Message:     describeUpdate(a.user.DisplayName(), labels),
		}); err != nil {
			return "", err
		}

		if !change.Empty() {
			if _, err := s.versions.Record(ctx, tx, versiondomain.RecordInput{
				RequestID:     request.ID,
				ActorID:       a.id(),
				Action:        patchAction(change),
				ChangedFields: change.Labels,
				Snapshot:      change.Snapshot,
			}); err != nil {
				return "", err
			}
		}

		if change.Has(domain.FieldStatus) {
			assigned, err := s.assignees.UserIDs(ctx, tx, parent)
			if err != nil {
				return "", err
			}
			targets := append([]snowflake.ID{request.CreatedBy}, assigned...)
			batch, err = s.notifications.Dispatch(ctx, tx, notificationdomain.DispatchInput{
				Category:    notificationdomain.CategoryRequestStatusChanged,
				WorkspaceID: request.WorkspaceID,
				RequestID:   request.ID,
				ActorID:     a.id(),
				Recipients:  targets,
				Payload: map[string]any{
					"title":           titleAfter(request, patch.Title),
					"status":          string(*patch.Status),
					"previous_status": string(request.Status),
				},
			})
			if err != nil {
				return "", err
			}
		}
		return "", nil
	})
	if err != nil {
		return "", err
	}

	s.deliver(ctx, batch)
	return domain.UpdatedMessage, nil
}

// patchAction ranks status over priority over everything else.
func patchAction(change domain.Change) versiondomain.Action {
	switch {
	case change.Has(domain.FieldStatus):
		return versiondomain.ActionStatusChange
	case change.Has(domain.FieldPriority):
		return versiondomain.ActionPriorityChange
	default:
		return versiondomain.ActionUpdate
	}
}

// stampCompletion sets completed_at when a request enters completed and
// clears it when a request leaves it.
func stampCompletion(updates map[string]any, from, to domain.Status, now time.Time) {
	switch {
	case to == domain.StatusCompleted && from != domain.StatusCompleted:
		updates["completed_at"] = now
	case from == domain.StatusCompleted && to != domain.StatusCompleted:
		updates["completed_at"] = nil
	}
}

func describeUpdate(name string, labels []string) string {
	if len(labels) == 0 {
		return fmt.Sprintf("%s saved the request without changes", name)
	}
	return fmt.Sprintf("%s updated %s", name, strings.Join(labels, ", "))
}

func titleAfter(request *domain.Request, title *string) string {
	if title != nil {
		return *title
	}
	return request.Title
}

func validateUpdate(req *domain.UpdateRequest) error {
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return domain.InvalidInput("title cannot be empty")
		}
		req.Title = &title
	}
	if req.Details != nil {
		details := strings.TrimSpace(*req.Details)
		req.Details = &details
	}
	if req.Priority != nil {
		priority, err := domain.ParsePriority(string(*req.Priority))
		if err != nil {
			return err
		}
		req.Priority = &priority
	}
	if req.Status != nil {
		status, err := domain.ParseStatus(string(*req.Status))
		if err != nil {
			return err
		}
		req.Status = &status
	}
	if req.ServiceID != nil && *req.ServiceID == 0 {
		return domain.InvalidInput("service_id cannot be zero")
	}
	return nil
}

func validatePatch(patch *domain.FieldPatch) error {
	req := domain.UpdateRequest{
		Title:    patch.Title,
		Details:  patch.Details,
		Priority: patch.Priority,
		Status:   patch.Status,
	}
	if err := validateUpdate(&req); err != nil {
		return err
	}
	patch.Title = req.Title
	patch.Details = req.Details
	patch.Priority = req.Priority
	patch.Status = req.Status
	return nil
}
