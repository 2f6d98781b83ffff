package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/smallbiznis/servicedesk/internal/activity/domain"
	assigneedomain "github.com/smallbiznis/servicedesk/internal/assignee/domain"
	filedomain "github.com/smallbiznis/servicedesk/internal/file/domain"
	ledgerdomain "github.com/smallbiznis/servicedesk/internal/ledger/domain"
	linkdomain "github.com/smallbiznis/servicedesk/internal/link/domain"
	notificationdomain "github.com/smallbiznis/servicedesk/internal/notification/domain"
	"github.com/smallbiznis/servicedesk/internal/request/domain"
	versiondomain "github.com/smallbiznis/servicedesk/internal/version/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDebitsWorkspaceAndRecordsTrail(t *testing.T) {
	f := setupEngine(t)

	created := f.create(t)

	assert.Equal(t, domain.StatusQueued, created.Status)
	assert.Equal(t, domain.PriorityMedium, created.Priority)
	assert.Equal(t, int64(4), created.Credits)
	assert.Equal(t, creatorID, created.CreatedBy)
	assert.Equal(t, int64(6), f.balance(t))

	var entries []ledgerdomain.Entry
	require.NoError(t, f.db.Where("workspace_id = ?", workspaceID).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, ledgerdomain.DirectionDebit, entries[0].Direction)
	assert.Equal(t, int64(4), entries[0].Amount)
	assert.Equal(t, int64(6), entries[0].BalanceAfter)
	assert.Equal(t, ledgerdomain.ReasonRequestCreated, entries[0].Reason)
	require.NotNil(t, entries[0].RequestID)
	assert.Equal(t, created.ID, *entries[0].RequestID)

	versions := f.versions(t, created.ID)
	require.Len(t, versions, 1)
	assert.Equal(t, versiondomain.ActionCreation, versions[0].Action)
	assert.Equal(t, creatorID, versions[0].ActorID)

	var notifications []notificationdomain.Notification
	require.NoError(t, f.db.Where("request_id = ?", created.ID).Order("recipient_id").Find(&notifications).Error)
	require.Len(t, notifications, 3)
	assert.Equal(t, platformAdminID, notifications[0].RecipientID)
	assert.Equal(t, creatorID, notifications[1].RecipientID)
	assert.Equal(t, successManagerID, notifications[2].RecipientID)
	for _, n := range notifications {
		assert.Equal(t, notificationdomain.CategoryRequestCreated, n.Category)
	}
	assert.Equal(t, 1, f.publisher.published())

	var activity activitydomain.Activity
	require.NoError(t, f.db.Where("linked_id = ?", created.ID).First(&activity).Error)
	assert.Equal(t, `Cara Client created request "Spring campaign landing page"`, activity.Message)
}

func TestCreateRejectsInsufficientCreditsWithoutWrites(t *testing.T) {
	f := setupEngine(t, withBalance(2))

	_, err := f.svc.Create(context.Background(), domain.CreateRequest{
		WorkspaceID: workspaceID,
		ServiceID:   serviceCost4,
		Title:       "Landing page",
	}, domain.Caller{UserID: creatorID})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientCredits)
	assert.Equal(t, domain.KindInsufficientCredits, domain.KindOf(err))
	var detail *ledgerdomain.InsufficientCreditsError
	require.True(t, errors.As(err, &detail))
	assert.Equal(t, int64(2), detail.Balance)
	assert.Equal(t, int64(4), detail.Required)

	assert.Equal(t, int64(2), f.balance(t))
	assert.Zero(t, f.count(t, &domain.Request{}, "workspace_id = ?", workspaceID))
	assert.Zero(t, f.count(t, &ledgerdomain.Entry{}, "workspace_id = ?", workspaceID))
	assert.Zero(t, f.count(t, &versiondomain.Entry{}, "1 = 1"))
	assert.Zero(t, f.count(t, &notificationdomain.Notification{}, "1 = 1"))
	assert.Zero(t, f.publisher.published())
}

func TestCreateRejectsEmptyBalanceEvenForFreeService(t *testing.T) {
	f := setupEngine(t, withBalance(0))

	_, err := f.svc.Create(context.Background(), domain.CreateRequest{
		WorkspaceID: workspaceID,
		ServiceID:   serviceFree,
		Title:       "Quick call",
	}, domain.Caller{UserID: creatorID})

	assert.ErrorIs(t, err, domain.ErrInsufficientCredits)
	assert.Zero(t, f.count(t, &domain.Request{}, "1 = 1"))
}

func TestCreatePreconditions(t *testing.T) {
	missingParent := snowflake.ID(999)

	tests := []struct {
		name   string
		opts   []fixtureOption
		mutate func(*domain.CreateRequest)
		caller domain.Caller
		kind   domain.Kind
	}{
		{
			name:   "blank title",
			mutate: func(r *domain.CreateRequest) { r.Title = "   " },
			caller: domain.Caller{UserID: creatorID},
			kind:   domain.KindInvalidInput,
		},
		{
			name:   "unknown priority",
			mutate: func(r *domain.CreateRequest) { r.Priority = "urgent-ish" },
			caller: domain.Caller{UserID: creatorID},
			kind:   domain.KindInvalidInput,
		},
		{
			name:   "missing workspace",
			mutate: func(r *domain.CreateRequest) { r.WorkspaceID = 12345 },
			caller: domain.Caller{UserID: creatorID},
			kind:   domain.KindNotFound,
		},
		{
			name:   "missing service",
			mutate: func(r *domain.CreateRequest) { r.ServiceID = 12345 },
			caller: domain.Caller{UserID: creatorID},
			kind:   domain.KindNotFound,
		},
		{
			name:   "inactive service",
			mutate: func(r *domain.CreateRequest) { r.ServiceID = serviceInactive },
			caller: domain.Caller{UserID: creatorID},
			kind:   domain.KindInvalidState,
		},
		{
			name:   "unknown caller",
			caller: domain.Caller{UserID: 777},
			kind:   domain.KindNotFound,
		},
		{
			name:   "anonymous caller",
			caller: domain.Caller{},
			kind:   domain.KindInvalidInput,
		},
		{
			name:   "quota exhausted",
			opts:   []fixtureOption{withQuota(0)},
			caller: domain.Caller{UserID: creatorID},
			kind:   domain.KindInvalidState,
		},
		{
			name:   "missing parent",
			mutate: func(r *domain.CreateRequest) { r.ParentRequestID = &missingParent },
			caller: domain.Caller{UserID: creatorID},
			kind:   domain.KindNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupEngine(t, tt.opts...)
			req := domain.CreateRequest{
				WorkspaceID: workspaceID,
				ServiceID:   serviceCost4,
				Title:       "Landing page",
			}
			if tt.mutate != nil {
				tt.mutate(&req)
			}

			_, err := f.svc.Create(context.Background(), req, tt.caller)

			require.Error(t, err)
			assert.Equal(t, tt.kind, domain.KindOf(err))
			assert.Equal(t, int64(10), f.balance(t))
			assert.Zero(t, f.count(t, &domain.Request{}, "1 = 1"))
		})
	}
}

func TestCreateCountsOnlyActiveRequestsTowardQuota(t *testing.T) {
	f := setupEngine(t, withBalance(100), withQuota(2))

	first := f.create(t, func(r *domain.CreateRequest) { r.ServiceID = serviceCost2 })
	f.create(t, func(r *domain.CreateRequest) { r.ServiceID = serviceCost2 })

	_, err := f.svc.Create(context.Background(), domain.CreateRequest{
		WorkspaceID: workspaceID, ServiceID: serviceCost2, Title: "Third",
	}, domain.Caller{UserID: creatorID})
	assert.Equal(t, domain.KindInvalidState, domain.KindOf(err))

	completed := domain.StatusCompleted
	_, err = f.svc.PatchFields(context.Background(), first.ID, domain.FieldPatch{Status: &completed},
		domain.Caller{UserID: creatorID})
	require.NoError(t, err)

	f.create(t, func(r *domain.CreateRequest) { r.ServiceID = serviceCost2 })
}

func TestCreateAttachesLinksFilesAndAssignees(t *testing.T) {
	f := setupEngine(t)

	created := f.create(t, func(r *domain.CreateRequest) {
		r.Links = []string{"https://figma.com/file/abc", " https://figma.com/file/abc ", ""}
		r.FileIDs = []snowflake.ID{fileInWorkspace}
		r.AssigneeIDs = []snowflake.ID{teamMemberID, teamMemberID}
	})

	assert.Equal(t, int64(1), f.count(t, &linkdomain.Link{}, "linked_id = ?", created.ID))
	assert.Equal(t, int64(1), f.count(t, &assigneedomain.Assignee{}, "linked_id = ? AND user_id = ?", created.ID, teamMemberID))

	var file filedomain.File
	require.NoError(t, f.db.First(&file, "id = ?", fileInWorkspace).Error)
	require.NotNil(t, file.LinkedID)
	assert.Equal(t, created.ID, *file.LinkedID)

	versions := f.versions(t, created.ID)
	require.Len(t, versions, 1)
	assert.Contains(t, []string(versions[0].ChangedFields), "Assignees")
}

func TestCreateRollsBackWhenCollaboratorRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.CreateRequest)
		kind   domain.Kind
	}{
		{
			name:   "invalid link",
			mutate: func(r *domain.CreateRequest) { r.Links = []string{"ftp://files.example.com/brief"} },
			kind:   domain.KindInvalidInput,
		},
		{
			name:   "file from another workspace",
			mutate: func(r *domain.CreateRequest) { r.FileIDs = []snowflake.ID{fileInOtherWorkspace} },
			kind:   domain.KindInvalidInput,
		},
		{
			name:   "unknown file",
			mutate: func(r *domain.CreateRequest) { r.FileIDs = []snowflake.ID{4242} },
			kind:   domain.KindNotFound,
		},
		{
			name:   "zero assignee",
			mutate: func(r *domain.CreateRequest) { r.AssigneeIDs = []snowflake.ID{0} },
			kind:   domain.KindInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupEngine(t)
			req := domain.CreateRequest{WorkspaceID: workspaceID, ServiceID: serviceCost4, Title: "Landing page"}
			tt.mutate(&req)

			_, err := f.svc.Create(context.Background(), req, domain.Caller{UserID: creatorID})

			require.Error(t, err)
			assert.Equal(t, tt.kind, domain.KindOf(err))
			assert.Equal(t, int64(10), f.balance(t))
			assert.Zero(t, f.count(t, &domain.Request{}, "1 = 1"))
			assert.Zero(t, f.count(t, &ledgerdomain.Entry{}, "1 = 1"))
			assert.Zero(t, f.count(t, &linkdomain.Link{}, "1 = 1"))
			assert.Zero(t, f.count(t, &notificationdomain.Notification{}, "1 = 1"))
		})
	}
}

func TestCreateRejectsParentFromAnotherWorkspace(t *testing.T) {
	f := setupEngine(t)
	foreign := domain.Request{
		ID: 900, WorkspaceID: otherWorkspaceID, CreatedBy: outsiderID, Title: "Theirs",
		ServiceID: serviceCost4, Credits: 4, Status: domain.StatusQueued, Priority: domain.PriorityLow,
		CreatedAt: fixtureNow, UpdatedAt: fixtureNow,
	}
	require.NoError(t, f.db.Create(&foreign).Error)

	_, err := f.svc.Create(context.Background(), domain.CreateRequest{
		WorkspaceID: workspaceID, ServiceID: serviceCost4, Title: "Mine", ParentRequestID: &foreign.ID,
	}, domain.Caller{UserID: creatorID})

	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))
	assert.Equal(t, int64(10), f.balance(t))
}

func TestCreateSubtaskKeepsParent(t *testing.T) {
	f := setupEngine(t)
	parent := f.create(t, func(r *domain.CreateRequest) { r.ServiceID = serviceCost2 })

	child := f.create(t, func(r *domain.CreateRequest) {
		r.ServiceID = serviceCost2
		r.Title = "Hero illustration"
		r.ParentRequestID = &parent.ID
	})

	require.NotNil(t, child.ParentRequestID)
	assert.Equal(t, parent.ID, *child.ParentRequestID)
	assert.True(t, child.IsSubtask())
	assert.Equal(t, int64(6), f.balance(t))
}

func TestCreateWritesExactlyOneCreationEntryPerRequest(t *testing.T) {
	f := setupEngine(t, withBalance(20))

	first := f.create(t, func(r *domain.CreateRequest) { r.ServiceID = serviceCost2 })
	second := f.create(t, func(r *domain.CreateRequest) { r.ServiceID = serviceCost2 })

	title := "Renamed"
	_, err := f.svc.Update(context.Background(), first.ID, domain.UpdateRequest{Title: &title},
		domain.Caller{UserID: creatorID})
	require.NoError(t, err)

	assert.Equal(t, int64(1), f.countVersions(t, first.ID, versiondomain.ActionCreation))
	assert.Equal(t, int64(1), f.countVersions(t, second.ID, versiondomain.ActionCreation))
	assert.Equal(t, int64(1), f.countVersions(t, first.ID, versiondomain.ActionUpdate))
}

func TestConcurrentCreatesNeverOverdraw(t *testing.T) {
	f := setupEngine(t, withBalance(8), withSingleConnection())

	const workers = 5
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Create(context.Background(), domain.CreateRequest{
				WorkspaceID: workspaceID, ServiceID: serviceCost4, Title: "Parallel",
			}, domain.Caller{UserID: creatorID})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrInsufficientCredits):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, succeeded)
	assert.Equal(t, workers-2, rejected)
	assert.Equal(t, int64(0), f.balance(t))
	assert.Equal(t, int64(2), f.count(t, &domain.Request{}, "workspace_id = ?", workspaceID))
	assert.Equal(t, int64(2), f.count(t, &ledgerdomain.Entry{}, "workspace_id = ?", workspaceID))
}

func TestCreateSucceedsWhenDeliveryFails(t *testing.T) {
	f := setupEngine(t)
	f.publisher.err = errors.New("redis: connection refused")

	created := f.create(t)

	assert.NotZero(t, created.ID)
	assert.Equal(t, int64(6), f.balance(t))
	assert.Equal(t, int64(3), f.count(t, &notificationdomain.Notification{}, "request_id = ?", created.ID))
	assert.Equal(t, 1, f.publisher.published())
}

func TestCreateOnBehalfOfAnotherUser(t *testing.T) {
	f := setupEngine(t)

	created, err := f.svc.Create(context.Background(), domain.CreateRequest{
		WorkspaceID: workspaceID, ServiceID: serviceCost4, Title: "For Cara",
	}, domain.Caller{UserID: platformAdminID, ImpersonateUserID: creatorID})
	require.NoError(t, err)
	assert.Equal(t, creatorID, created.CreatedBy)

	_, err = f.svc.Create(context.Background(), domain.CreateRequest{
		WorkspaceID: workspaceID, ServiceID: serviceCost4, Title: "Sneaky",
	}, domain.Caller{UserID: teamMemberID, ImpersonateUserID: creatorID})
	assert.Equal(t, domain.KindForbidden, domain.KindOf(err))
	assert.Equal(t, int64(6), f.balance(t))
}
