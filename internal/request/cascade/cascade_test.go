package cascade

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	activitydomain "github.com/smallbiznis/servicedesk/internal/activity/domain"
	activityrepo "github.com/smallbiznis/servicedesk/internal/activity/repository"
	assigneedomain "github.com/smallbiznis/servicedesk/internal/assignee/domain"
	assigneerepo "github.com/smallbiznis/servicedesk/internal/assignee/repository"
	commentdomain "github.com/smallbiznis/servicedesk/internal/comment/domain"
	commentrepo "github.com/smallbiznis/servicedesk/internal/comment/repository"
	filedomain "github.com/smallbiznis/servicedesk/internal/file/domain"
	filerepo "github.com/smallbiznis/servicedesk/internal/file/repository"
	linkdomain "github.com/smallbiznis/servicedesk/internal/link/domain"
	linkrepo "github.com/smallbiznis/servicedesk/internal/link/repository"
	notificationdomain "github.com/smallbiznis/servicedesk/internal/notification/domain"
	notificationrepo "github.com/smallbiznis/servicedesk/internal/notification/repository"
	"github.com/smallbiznis/servicedesk/internal/relation"
	"github.com/smallbiznis/servicedesk/internal/request/domain"
	requestrepo "github.com/smallbiznis/servicedesk/internal/request/repository"
	versiondomain "github.com/smallbiznis/servicedesk/internal/version/domain"
	versionrepo "github.com/smallbiznis/servicedesk/internal/version/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var seededAt = time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

func setupSweeper(t *testing.T) (*gorm.DB, *Sweeper) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Request{},
		&versiondomain.Entry{},
		&activitydomain.Activity{},
		&commentdomain.Comment{},
		&assigneedomain.Assignee{},
		&linkdomain.Link{},
		&filedomain.File{},
		&notificationdomain.Notification{},
	))

	sweeper := New(Params{
		Log:           zap.NewNop(),
		Requests:      requestrepo.Provide(),
		Versions:      versionrepo.Provide(),
		Activities:    activityrepo.Provide(),
		Comments:      commentrepo.Provide(),
		Assignees:     assigneerepo.Provide(),
		Links:         linkrepo.Provide(),
		Files:         filerepo.Provide(),
		Notifications: notificationrepo.Provide(),
	})
	return db, sweeper
}

// seedGraph writes one row of every dependent kind for requestID. Ids are
// offset by base so two graphs never collide.
func seedGraph(t *testing.T, db *gorm.DB, requestID snowflake.ID, base int64) {
	t.Helper()
	id := func(n int64) snowflake.ID { return snowflake.ID(base + n) }
	kind := relation.KindRequest

	require.NoError(t, db.Create(&domain.Request{
		ID: requestID, WorkspaceID: 10, CreatedBy: 7, Title: "Brochure", ServiceID: 900,
		Credits: 4, Status: domain.StatusQueued, Priority: domain.PriorityMedium,
		CreatedAt: seededAt, UpdatedAt: seededAt,
	}).Error)
	require.NoError(t, db.Create(&versiondomain.Entry{
		ID: id(1), RequestID: requestID, ActorID: 7, Action: versiondomain.ActionCreation,
		ChangedFields: datatypes.JSONSlice[string]{"Title"}, Snapshot: datatypes.JSONMap{"title": "Brochure"},
		CreatedAt: seededAt,
	}).Error)
	require.NoError(t, db.Create(&activitydomain.Activity{
		ID: id(2), WorkspaceID: 10, LinkedID: requestID, LinkedKind: kind, ActorID: 7,
		Message: "created", CreatedAt: seededAt,
	}).Error)
	require.NoError(t, db.Create(&commentdomain.Comment{
		ID: id(3), LinkedID: requestID, LinkedKind: kind, AuthorID: 7, Body: "first", CreatedAt: seededAt,
	}).Error)
	require.NoError(t, db.Create(&commentdomain.Comment{
		ID: id(4), LinkedID: id(3), LinkedKind: relation.KindComment, AuthorID: 8, Body: "reply", CreatedAt: seededAt,
	}).Error)
	require.NoError(t, db.Create(&assigneedomain.Assignee{
		ID: id(5), LinkedID: requestID, LinkedKind: kind, UserID: 8, AssignedBy: 7, CreatedAt: seededAt,
	}).Error)
	require.NoError(t, db.Create(&linkdomain.Link{
		ID: id(6), LinkedID: requestID, LinkedKind: kind, URL: "https://example.com/brief",
		CreatedBy: 7, CreatedAt: seededAt,
	}).Error)
	linkedID := requestID
	require.NoError(t, db.Create(&filedomain.File{
		ID: id(7), WorkspaceID: 10, Name: "brief.pdf", LinkedID: &linkedID, LinkedKind: &kind,
		UploadedBy: 7, CreatedAt: seededAt, UpdatedAt: seededAt,
	}).Error)
	require.NoError(t, db.Create(&notificationdomain.Notification{
		ID: id(8), BatchID: "batch", RecipientID: 1, WorkspaceID: 10, RequestID: &linkedID, ActorID: 7,
		Category: notificationdomain.CategoryRequestCreated, CreatedAt: seededAt,
	}).Error)
}

func countWhere(t *testing.T, db *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func TestDeleteRequestSweepsEveryDependent(t *testing.T) {
	db, sweeper := setupSweeper(t)
	ctx := context.Background()
	doomed, kept := snowflake.ID(1), snowflake.ID(2)
	seedGraph(t, db, doomed, 100)
	seedGraph(t, db, kept, 200)

	subtaskParent := doomed
	require.NoError(t, db.Create(&domain.Request{
		ID: 3, WorkspaceID: 10, CreatedBy: 7, Title: "Subtask", ServiceID: 900, Credits: 1,
		Status: domain.StatusQueued, Priority: domain.PriorityLow, ParentRequestID: &subtaskParent,
		CreatedAt: seededAt, UpdatedAt: seededAt,
	}).Error)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return sweeper.DeleteRequest(ctx, tx, doomed)
	}))

	byParent := "linked_kind = ? AND linked_id = ?"
	assert.Zero(t, countWhere(t, db, &domain.Request{}, "id = ?", doomed))
	assert.Zero(t, countWhere(t, db, &versiondomain.Entry{}, "request_id = ?", doomed))
	assert.Zero(t, countWhere(t, db, &activitydomain.Activity{}, byParent, relation.KindRequest, doomed))
	assert.Zero(t, countWhere(t, db, &commentdomain.Comment{}, byParent, relation.KindRequest, doomed))
	assert.Zero(t, countWhere(t, db, &commentdomain.Comment{}, "id = ?", 104), "reply should go with its thread")
	assert.Zero(t, countWhere(t, db, &assigneedomain.Assignee{}, byParent, relation.KindRequest, doomed))
	assert.Zero(t, countWhere(t, db, &linkdomain.Link{}, byParent, relation.KindRequest, doomed))
	assert.Zero(t, countWhere(t, db, &filedomain.File{}, byParent, relation.KindRequest, doomed))
	assert.Zero(t, countWhere(t, db, &notificationdomain.Notification{}, "request_id = ?", doomed))

	assert.Equal(t, int64(1), countWhere(t, db, &domain.Request{}, "id = ?", kept))
	assert.Equal(t, int64(1), countWhere(t, db, &versiondomain.Entry{}, "request_id = ?", kept))
	assert.Equal(t, int64(2), countWhere(t, db, &commentdomain.Comment{}, "id IN ?", []int64{203, 204}))
	assert.Equal(t, int64(1), countWhere(t, db, &filedomain.File{}, byParent, relation.KindRequest, kept))

	var subtask domain.Request
	require.NoError(t, db.First(&subtask, "id = ?", 3).Error)
	assert.Nil(t, subtask.ParentRequestID)
}

func TestDeleteRequestMissingRowRollsBack(t *testing.T) {
	db, sweeper := setupSweeper(t)
	ctx := context.Background()
	seedGraph(t, db, 1, 100)

	// Orphaned dependents of a request that no longer exists.
	require.NoError(t, db.Exec(`DELETE FROM requests WHERE id = ?`, 1).Error)

	err := db.Transaction(func(tx *gorm.DB) error {
		return sweeper.DeleteRequest(ctx, tx, 1)
	})
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, int64(1), countWhere(t, db, &versiondomain.Entry{}, "request_id = ?", 1))
}

func TestDeleteRequestStepFailureRollsBack(t *testing.T) {
	db, sweeper := setupSweeper(t)
	ctx := context.Background()
	seedGraph(t, db, 1, 100)
	require.NoError(t, db.Migrator().DropTable(&notificationdomain.Notification{}))

	err := db.Transaction(func(tx *gorm.DB) error {
		return sweeper.DeleteRequest(ctx, tx, 1)
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cascade notifications")
	assert.Equal(t, int64(1), countWhere(t, db, &domain.Request{}, "id = ?", 1))
	assert.Equal(t, int64(1), countWhere(t, db, &versiondomain.Entry{}, "request_id = ?", 1))
	assert.Equal(t, int64(1), countWhere(t, db, &linkdomain.Link{}, "linked_id = ?", 1))
}

func TestDeleteRequestRequiresTransaction(t *testing.T) {
	_, sweeper := setupSweeper(t)
	err := sweeper.DeleteRequest(context.Background(), nil, 1)
	assert.ErrorIs(t, err, gorm.ErrInvalidTransaction)
}
