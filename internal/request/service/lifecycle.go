package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/smallbiznis/servicedesk/internal/activity/domain"
	"github.com/smallbiznis/servicedesk/internal/authorization"
	obsmetrics "github.com/smallbiznis/servicedesk/internal/observability/metrics"
	"github.com/smallbiznis/servicedesk/internal/relation"
	"github.com/smallbiznis/servicedesk/internal/request/domain"
	versiondomain "github.com/smallbiznis/servicedesk/internal/version/domain"
	workspacedomain "github.com/smallbiznis/servicedesk/internal/workspace/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Archive is idempotent: an archived request is returned as is, without a
// second version entry.
func (s *Service) Archive(ctx context.Context, id snowflake.ID, caller domain.Caller) (*domain.Request, error) {
	var archived *domain.Request
	err := s.execute(ctx, opArchive, id, func(ctx context.Context, tx *gorm.DB) (string, error) {
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
			archived = request
			return obsmetrics.EngineOutcomeNoop, nil
		}

		now := s.clock.Now()
		if err := s.repo.UpdateFields(ctx, tx, request.ID, map[string]any{
			"archived_at": now,
			"updated_at":  now,
		}); err != nil {
			return "", err
		}
		request.ArchivedAt = &now
		request.UpdatedAt = now

		if _, err := s.versions.Record(ctx, tx, versiondomain.RecordInput{
			RequestID:     request.ID,
			ActorID:       a.id(),
			Action:        versiondomain.ActionArchived,
			ChangedFields: []string{"Archived"},
			Snapshot:      request.TerminalSnapshot(),
		}); err != nil {
			return "", err
		}
		if _, err := s.activities.Append(ctx, tx, activitydomain.AppendInput{
			WorkspaceID: request.WorkspaceID,
			Parent:      relation.Request(request.ID),
			ActorID:     a.id(),
			Message:     fmt.Sprintf("%s archived request %q", a.user.DisplayName(), request.Title),
		}); err != nil {
			return "", err
		}

		archived = request
		return "", nil
	})
	if err != nil {
		return nil, err
	}
	return archived, nil
}

// Delete hard-deletes a request together with its dependents. Only a
// global admin or an admin of the request's workspace may do so.
func (s *Service) Delete(ctx context.Context, id snowflake.ID, caller domain.Caller) (string, error) {
	err := s.execute(ctx, opDelete, id, func(ctx context.Context, tx *gorm.DB) (string, error) {
		request, err := s.lockRequest(ctx, tx, id)
		if err != nil {
			return "", err
		}
		a, err := s.resolveActor(ctx, tx, caller)
		if err != nil {
			return "", err
		}

		var workspaceRole string
		isAdmin, err := s.workspaceRepo.HasMemberRole(ctx, tx, request.WorkspaceID, a.id(), workspacedomain.MemberRoleAdmin)
		if err != nil {
			return "", err
		}
		if isAdmin {
			workspaceRole = string(workspacedomain.MemberRoleAdmin)
		}
		if err := s.authz.Authorize(ctx, a.authzActor(workspaceRole), authorization.ObjectRequest, authorization.ActionRequestDelete); err != nil {
			return "", err
		}

		if err := s.sweeper.DeleteRequest(ctx, tx, request.ID); err != nil {
			return "", err
		}
		s.log.Info("request deleted",
			zap.String("request_id", request.ID.String()),
			zap.String("workspace_id", request.WorkspaceID.String()),
			zap.String("actor_id", a.id().String()),
		)
		return "", nil
	})
	if err != nil {
		return "", err
	}
	return domain.DeletedMessage, nil
}
