package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/smallbiznis/servicedesk/internal/ledger/domain"
	requestdomain "github.com/smallbiznis/servicedesk/internal/request/domain"
	versiondomain "github.com/smallbiznis/servicedesk/internal/version/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeRequestService struct {
	err        error
	lastCaller requestdomain.Caller
	lastCreate requestdomain.CreateRequest
	lastPatch  requestdomain.FieldPatch
	lastID     snowflake.ID
}

func (f *fakeRequestService) Create(ctx context.Context, req requestdomain.CreateRequest, caller requestdomain.Caller) (*requestdomain.Request, error) {
	f.lastCreate = req
	f.lastCaller = caller
	if f.err != nil {
		return nil, f.err
	}
	return &requestdomain.Request{
		ID:          snowflake.ID(900),
		WorkspaceID: req.WorkspaceID,
		Title:       req.Title,
		Status:      requestdomain.StatusQueued,
	}, nil
}

func (f *fakeRequestService) Update(ctx context.Context, id snowflake.ID, req requestdomain.UpdateRequest, caller requestdomain.Caller) (string, error) {
	f.lastID = id
	f.lastCaller = caller
	if f.err != nil {
		return "", f.err
	}
	return requestdomain.UpdatedMessage, nil
}

func (f *fakeRequestService) PatchFields(ctx context.Context, id snowflake.ID, patch requestdomain.FieldPatch, caller requestdomain.Caller) (string, error) {
	f.lastID = id
	f.lastPatch = patch
	f.lastCaller = caller
	if f.err != nil {
		return "", f.err
	}
	return requestdomain.UpdatedMessage, nil
}

func (f *fakeRequestService) Archive(ctx context.Context, id snowflake.ID, caller requestdomain.Caller) (*requestdomain.Request, error) {
	f.lastID = id
	f.lastCaller = caller
	if f.err != nil {
		return nil, f.err
	}
	now := time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC)
	return &requestdomain.Request{ID: id, ArchivedAt: &now}, nil
}

func (f *fakeRequestService) Delete(ctx context.Context, id snowflake.ID, caller requestdomain.Caller) (string, error) {
	f.lastID = id
	f.lastCaller = caller
	if f.err != nil {
		return "", f.err
	}
	return requestdomain.DeletedMessage, nil
}

type fakeQueryService struct {
	err        error
	lastFilter requestdomain.ListRequestsFilter
	lastViewer requestdomain.Caller
}

func (f *fakeQueryService) GetRequestDetail(ctx context.Context, id snowflake.ID, viewer requestdomain.Caller) (*requestdomain.RequestView, error) {
	f.lastViewer = viewer
	if f.err != nil {
		return nil, f.err
	}
	return &requestdomain.RequestView{Request: requestdomain.Request{ID: id}, ServiceTitle: "Landing page"}, nil
}

func (f *fakeQueryService) ListRequests(ctx context.Context, filter requestdomain.ListRequestsFilter, viewer requestdomain.Caller) (requestdomain.ListRequestsResponse, error) {
	f.lastFilter = filter
	f.lastViewer = viewer
	if f.err != nil {
		return requestdomain.ListRequestsResponse{}, f.err
	}
	return requestdomain.ListRequestsResponse{Requests: []*requestdomain.RequestView{}}, nil
}

func (f *fakeQueryService) GetSubtasks(ctx context.Context, parentID snowflake.ID, viewer requestdomain.Caller) ([]*requestdomain.RequestView, error) {
	f.lastViewer = viewer
	return []*requestdomain.RequestView{}, f.err
}

type fakeVersionService struct {
	listed bool
}

func (f *fakeVersionService) Record(ctx context.Context, tx *gorm.DB, input versiondomain.RecordInput) (*versiondomain.Entry, error) {
	return nil, nil
}

func (f *fakeVersionService) ListByRequest(ctx context.Context, requestID snowflake.ID) ([]*versiondomain.Entry, error) {
	f.listed = true
	return []*versiondomain.Entry{
		{ID: 1, RequestID: requestID, Action: versiondomain.ActionCreation},
	}, nil
}

func newTestRouter(s *Server) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	s.engine = router
	s.registerAPIRoutes()
	return router
}

func doRequest(t *testing.T, router *gin.Engine, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	var decoded map[string]any
	if resp.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &decoded))
	}
	return resp, decoded
}

func asUser(id int64) map[string]string {
	return map[string]string{HeaderUserID: fmt.Sprint(id)}
}

func errorType(body map[string]any) string {
	payload, _ := body["error"].(map[string]any)
	kind, _ := payload["type"].(string)
	return kind
}

func TestAPIRequiresCaller(t *testing.T) {
	router := newTestRouter(&Server{requestSvc: &fakeRequestService{}, querySvc: &fakeQueryService{}})

	resp, body := doRequest(t, router, http.MethodGet, "/api/v1/requests", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "unauthorized", errorType(body))

	resp, _ = doRequest(t, router, http.MethodGet, "/api/v1/requests", "", asUser(0))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp, body = doRequest(t, router, http.MethodGet, "/api/v1/requests", "", map[string]string{
		HeaderUserID:          "10",
		HeaderImpersonateUser: "bob",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "validation_error", errorType(body))
}

func TestCreateRequestPassesCaller(t *testing.T) {
	svc := &fakeRequestService{}
	router := newTestRouter(&Server{requestSvc: svc})

	resp, body := doRequest(t, router, http.MethodPost, "/api/v1/requests",
		`{"workspace_id":"100","service_id":"300","title":"  Landing page ","priority":"high","links":["https://acme.test"]}`,
		map[string]string{HeaderUserID: "1", HeaderImpersonateUser: "10"})

	require.Equal(t, http.StatusCreated, resp.Code)
	data, _ := body["data"].(map[string]any)
	assert.Equal(t, "900", data["id"])
	assert.Equal(t, "queued", data["status"])

	assert.Equal(t, requestdomain.Caller{UserID: 1, ImpersonateUserID: 10}, svc.lastCaller)
	assert.Equal(t, snowflake.ID(100), svc.lastCreate.WorkspaceID)
	assert.Equal(t, snowflake.ID(300), svc.lastCreate.ServiceID)
	assert.Equal(t, "Landing page", svc.lastCreate.Title)
	assert.Equal(t, requestdomain.PriorityHigh, svc.lastCreate.Priority)
	assert.Equal(t, []string{"https://acme.test"}, svc.lastCreate.Links)
}

func TestCreateRequestRejectsMalformedBody(t *testing.T) {
	router := newTestRouter(&Server{requestSvc: &fakeRequestService{}})

	resp, body := doRequest(t, router, http.MethodPost, "/api/v1/requests", `{"workspace_id":`, asUser(10))

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "validation_error", errorType(body))
}

func TestEngineErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"not found", requestdomain.NotFound("request", snowflake.ID(5)), http.StatusNotFound, "not_found"},
		{"forbidden", requestdomain.Forbidden("not allowed"), http.StatusForbidden, "forbidden"},
		{"invalid state", requestdomain.InvalidState("request is archived"), http.StatusConflict, "invalid_state"},
		{"invalid input", requestdomain.InvalidInput("title is required"), http.StatusBadRequest, "invalid_input"},
		{"insufficient credits", &ledgerdomain.InsufficientCreditsError{WorkspaceID: 100, Balance: 2, Required: 4}, http.StatusUnprocessableEntity, "insufficient_credits"},
		{"internal", fmt.Errorf("database is gone"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&Server{requestSvc: &fakeRequestService{err: tt.err}})

			resp, body := doRequest(t, router, http.MethodPatch, "/api/v1/requests/5/fields", `{"status":"completed"}`, asUser(10))

			assert.Equal(t, tt.status, resp.Code)
			assert.Equal(t, tt.kind, errorType(body))
		})
	}
}

func TestInternalErrorsDoNotLeak(t *testing.T) {
	router := newTestRouter(&Server{requestSvc: &fakeRequestService{err: fmt.Errorf("pq: relation secret_table")}})

	_, body := doRequest(t, router, http.MethodDelete, "/api/v1/requests/5", "", asUser(10))

	payload, _ := body["error"].(map[string]any)
	assert.Equal(t, "internal server error", payload["message"])
}

func TestMutationRoutes(t *testing.T) {
	svc := &fakeRequestService{}
	router := newTestRouter(&Server{requestSvc: svc})

	resp, body := doRequest(t, router, http.MethodPut, "/api/v1/requests/42", `{"title":"New"}`, asUser(10))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, requestdomain.UpdatedMessage, body["message"])
	assert.Equal(t, snowflake.ID(42), svc.lastID)

	resp, _ = doRequest(t, router, http.MethodPatch, "/api/v1/requests/43/fields", `{"priority":"low"}`, asUser(10))
	require.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, svc.lastPatch.Priority)
	assert.Equal(t, requestdomain.PriorityLow, *svc.lastPatch.Priority)

	resp, body = doRequest(t, router, http.MethodPost, "/api/v1/requests/44/archive", "", asUser(10))
	require.Equal(t, http.StatusOK, resp.Code)
	data, _ := body["data"].(map[string]any)
	assert.Equal(t, "44", data["id"])
	assert.NotEmpty(t, data["archived_at"])

	resp, body = doRequest(t, router, http.MethodDelete, "/api/v1/requests/45", "", asUser(1))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, requestdomain.DeletedMessage, body["message"])
	assert.Equal(t, snowflake.ID(45), svc.lastID)

	resp, body = doRequest(t, router, http.MethodPut, "/api/v1/requests/not-an-id", `{}`, asUser(10))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "validation_error", errorType(body))
}

func TestListRequestsBindsFilter(t *testing.T) {
	query := &fakeQueryService{}
	router := newTestRouter(&Server{querySvc: query})

	resp, body := doRequest(t, router, http.MethodGet,
		"/api/v1/requests?status=pending&workspace_id=100&archived=all&top_level_only=true&page_size=3&page_token=abc",
		"", asUser(10))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, body, "page_info")
	assert.Equal(t, requestdomain.StatusPending, query.lastFilter.Status)
	assert.Equal(t, snowflake.ID(100), query.lastFilter.WorkspaceID)
	assert.Equal(t, requestdomain.ArchiveFilterAll, query.lastFilter.Archived)
	assert.True(t, query.lastFilter.TopLevelOnly)
	assert.Equal(t, 3, query.lastFilter.PageSize)
	assert.Equal(t, "abc", query.lastFilter.PageToken)
	assert.Equal(t, requestdomain.Caller{UserID: 10}, query.lastViewer)
}

func TestDetailAndSubtasks(t *testing.T) {
	router := newTestRouter(&Server{querySvc: &fakeQueryService{}})

	resp, body := doRequest(t, router, http.MethodGet, "/api/v1/requests/7", "", asUser(10))
	require.Equal(t, http.StatusOK, resp.Code)
	data, _ := body["data"].(map[string]any)
	assert.Equal(t, "Landing page", data["service_title"])

	resp, body = doRequest(t, router, http.MethodGet, "/api/v1/requests/7/subtasks", "", asUser(10))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, []any{}, body["data"])
}

func TestVersionsRequireVisibility(t *testing.T) {
	versions := &fakeVersionService{}
	router := newTestRouter(&Server{
		querySvc:   &fakeQueryService{err: requestdomain.NotFound("request", snowflake.ID(7))},
		versionSvc: versions,
	})

	resp, _ := doRequest(t, router, http.MethodGet, "/api/v1/requests/7/versions", "", asUser(11))
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.False(t, versions.listed)

	router = newTestRouter(&Server{querySvc: &fakeQueryService{}, versionSvc: versions})
	resp, body := doRequest(t, router, http.MethodGet, "/api/v1/requests/7/versions", "", asUser(10))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, versions.listed)
	entries, _ := body["data"].([]any)
	assert.Len(t, entries, 1)
}
