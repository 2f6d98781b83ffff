package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/servicedesk/internal/authorization"
	ledgerdomain "github.com/smallbiznis/servicedesk/internal/ledger/domain"
	obscontext "github.com/smallbiznis/servicedesk/internal/observability/context"
	"github.com/smallbiznis/servicedesk/pkg/db/pagination"
)

type workspaceCreditsResponse struct {
	WorkspaceID string                `json:"workspace_id"`
	Balance     int64                 `json:"balance"`
	Entries     []*ledgerdomain.Entry `json:"entries"`
	PageInfo    pagination.PageInfo   `json:"page_info"`
}

// GetWorkspaceCredits returns the balance of a workspace together with a
// page of its ledger statement, newest movement first.
func (s *Server) GetWorkspaceCredits(c *gin.Context) {
	workspaceID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := obscontext.WithWorkspaceID(c.Request.Context(), workspaceID.String())
	if _, err := s.workspaceSvc.GetByID(ctx, workspaceID); err != nil {
		AbortWithError(c, err)
		return
	}

	caller := callerFrom(c)
	user, err := s.userSvc.GetByID(ctx, caller.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	role, err := s.workspaceSvc.MemberRole(ctx, workspaceID, user.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	actor := authorization.Actor{
		UserID:        user.ID,
		GlobalRole:    string(user.Role),
		WorkspaceRole: string(role),
	}
	if err := s.authzSvc.Authorize(ctx, actor, authorization.ObjectWorkspace, authorization.ActionWorkspaceCreditsView); err != nil {
		AbortWithError(c, err)
		return
	}

	balance, err := s.ledgerSvc.GetBalance(ctx, workspaceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	statement, err := s.ledgerSvc.ListEntries(ctx, ledgerdomain.ListEntriesRequest{
		WorkspaceID: workspaceID,
		Pagination:  page,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": workspaceCreditsResponse{
		WorkspaceID: workspaceID.String(),
		Balance:     balance,
		Entries:     statement.Entries,
		PageInfo:    statement.PageInfo,
	}})
}
