package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/servicedesk/internal/observability/context"
	requestdomain "github.com/smallbiznis/servicedesk/internal/request/domain"
)

func (s *Server) CreateRequest(c *gin.Context) {
	var req requestdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.Title = strings.TrimSpace(req.Title)

	ctx := obscontext.WithWorkspaceID(c.Request.Context(), req.WorkspaceID.String())
	resp, err := s.requestSvc.Create(ctx, req, callerFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) UpdateRequest(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req requestdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	message, err := s.requestSvc.Update(c.Request.Context(), id, req, callerFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": message})
}

func (s *Server) PatchRequestFields(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var patch requestdomain.FieldPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	message, err := s.requestSvc.PatchFields(c.Request.Context(), id, patch, callerFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": message})
}

func (s *Server) ArchiveRequest(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.requestSvc.Archive(c.Request.Context(), id, callerFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteRequest(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	message, err := s.requestSvc.Delete(c.Request.Context(), id, callerFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": message})
}

func (s *Server) GetRequestDetail(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.querySvc.GetRequestDetail(c.Request.Context(), id, callerFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListRequests(c *gin.Context) {
	var filter requestdomain.ListRequestsFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	filter.Status = strings.TrimSpace(filter.Status)

	resp, err := s.querySvc.ListRequests(c.Request.Context(), filter, callerFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Requests, "page_info": resp.PageInfo})
}

func (s *Server) GetSubtasks(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.querySvc.GetSubtasks(c.Request.Context(), id, callerFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ListRequestVersions returns the timeline of a request the caller can
// see, oldest entry first.
func (s *Server) ListRequestVersions(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	if _, err := s.querySvc.GetRequestDetail(ctx, id, callerFrom(c)); err != nil {
		AbortWithError(c, err)
		return
	}

	entries, err := s.versionSvc.ListByRequest(ctx, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}
