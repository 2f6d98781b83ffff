package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	activitydomain "github.com/smallbiznis/servicedesk/internal/activity/domain"
	activityrepo "github.com/smallbiznis/servicedesk/internal/activity/repository"
	activityservice "github.com/smallbiznis/servicedesk/internal/activity/service"
	assigneedomain "github.com/smallbiznis/servicedesk/internal/assignee/domain"
	assigneerepo "github.com/smallbiznis/servicedesk/internal/assignee/repository"
	assigneeservice "github.com/smallbiznis/servicedesk/internal/assignee/service"
	"github.com/smallbiznis/servicedesk/internal/authorization"
	catalogdomain "github.com/smallbiznis/servicedesk/internal/catalog/domain"
	catalogrepo "github.com/smallbiznis/servicedesk/internal/catalog/repository"
	"github.com/smallbiznis/servicedesk/internal/clock"
	commentdomain "github.com/smallbiznis/servicedesk/internal/comment/domain"
	commentrepo "github.com/smallbiznis/servicedesk/internal/comment/repository"
	"github.com/smallbiznis/servicedesk/internal/config"
	filedomain "github.com/smallbiznis/servicedesk/internal/file/domain"
	filerepo "github.com/smallbiznis/servicedesk/internal/file/repository"
	fileservice "github.com/smallbiznis/servicedesk/internal/file/service"
	ledgerdomain "github.com/smallbiznis/servicedesk/internal/ledger/domain"
	ledgerrepo "github.com/smallbiznis/servicedesk/internal/ledger/repository"
	ledgerservice "github.com/smallbiznis/servicedesk/internal/ledger/service"
	linkdomain "github.com/smallbiznis/servicedesk/internal/link/domain"
	linkrepo "github.com/smallbiznis/servicedesk/internal/link/repository"
	linkservice "github.com/smallbiznis/servicedesk/internal/link/service"
	notificationdomain "github.com/smallbiznis/servicedesk/internal/notification/domain"
	notificationrepo "github.com/smallbiznis/servicedesk/internal/notification/repository"
	notificationservice "github.com/smallbiznis/servicedesk/internal/notification/service"
	obsmetrics "github.com/smallbiznis/servicedesk/internal/observability/metrics"
	"github.com/smallbiznis/servicedesk/internal/request/cascade"
	"github.com/smallbiznis/servicedesk/internal/request/domain"
	requestrepo "github.com/smallbiznis/servicedesk/internal/request/repository"
	userdomain "github.com/smallbiznis/servicedesk/internal/user/domain"
	userrepo "github.com/smallbiznis/servicedesk/internal/user/repository"
	userservice "github.com/smallbiznis/servicedesk/internal/user/service"
	versiondomain "github.com/smallbiznis/servicedesk/internal/version/domain"
	versionrepo "github.com/smallbiznis/servicedesk/internal/version/repository"
	versionservice "github.com/smallbiznis/servicedesk/internal/version/service"
	workspacedomain "github.com/smallbiznis/servicedesk/internal/workspace/domain"
	workspacerepo "github.com/smallbiznis/servicedesk/internal/workspace/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Seeded identities.
const (
	platformAdminID  snowflake.ID = 1
	creatorID        snowflake.ID = 10
	teamMemberID     snowflake.ID = 20
	successManagerID snowflake.ID = 30
	outsiderID       snowflake.ID = 40
	workspaceAdminID snowflake.ID = 50

	workspaceID      snowflake.ID = 100
	otherWorkspaceID snowflake.ID = 101
	planID           snowflake.ID = 200

	serviceCost4         snowflake.ID = 300
	serviceCost7         snowflake.ID = 301
	serviceCost2         snowflake.ID = 302
	serviceInactive      snowflake.ID = 303
	serviceCost11        snowflake.ID = 304
	serviceFree          snowflake.ID = 305
	fileInWorkspace      snowflake.ID = 400
	fileInOtherWorkspace snowflake.ID = 401
)

var fixtureNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

type recordingPublisher struct {
	mu       sync.Mutex
	payloads [][]byte
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	return p.err
}

func (p *recordingPublisher) published() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.payloads)
}

type engineFixture struct {
	db        *gorm.DB
	svc       domain.Service
	clock     *clock.FakeClock
	publisher *recordingPublisher
	ledger    ledgerdomain.Service
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	policy       config.RequestPolicy
	balance      int64
	quota        int64
	maxOpenConns int
}

func withPolicy(policy config.RequestPolicy) fixtureOption {
	return func(c *fixtureConfig) { c.policy = policy }
}

func withBalance(balance int64) fixtureOption {
	return func(c *fixtureConfig) { c.balance = balance }
}

func withQuota(quota int64) fixtureOption {
	return func(c *fixtureConfig) { c.quota = quota }
}

func withSingleConnection() fixtureOption {
	return func(c *fixtureConfig) { c.maxOpenConns = 1 }
}

func setupEngine(t *testing.T, opts ...fixtureOption) engineFixture {
	t.Helper()
	cfg := fixtureConfig{policy: config.DefaultRequestPolicy(), balance: 10, quota: 5}
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	if cfg.maxOpenConns > 0 {
		sqlDB, err := db.DB()
		require.NoError(t, err)
		sqlDB.SetMaxOpenConns(cfg.maxOpenConns)
	}
	require.NoError(t, db.AutoMigrate(
		&domain.Request{},
		&workspacedomain.Workspace{},
		&workspacedomain.Member{},
		&catalogdomain.Offering{},
		&catalogdomain.Plan{},
		&userdomain.User{},
		&ledgerdomain.Entry{},
		&versiondomain.Entry{},
		&linkdomain.Link{},
		&filedomain.File{},
		&assigneedomain.Assignee{},
		&commentdomain.Comment{},
		&activitydomain.Activity{},
		&notificationdomain.Notification{},
	))
	seedFixture(t, db, cfg)

	enforcer, err := authorization.NewEnforcer(db)
	require.NoError(t, err)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(fixtureNow)
	log := zap.NewNop()
	pub := &recordingPublisher{}

	workspaces := workspacerepo.Provide()
	users := userrepo.Provide()
	ledger := ledgerservice.New(ledgerservice.Params{
		DB:            db,
		Log:           log,
		GenID:         node,
		Clock:         clk,
		Repo:          ledgerrepo.Provide(),
		WorkspaceRepo: workspaces,
	})
	requests := requestrepo.Provide()
	sweeper := cascade.New(cascade.Params{
		Log:           log,
		Requests:      requests,
		Versions:      versionrepo.Provide(),
		Activities:    activityrepo.Provide(),
		Comments:      commentrepo.Provide(),
		Assignees:     assigneerepo.Provide(),
		Links:         linkrepo.Provide(),
		Files:         filerepo.Provide(),
		Notifications: notificationrepo.Provide(),
	})

	versions := versionservice.New(versionservice.Params{DB: db, Log: log, GenID: node, Clock: clk, Repo: versionrepo.Provide()})
	links := linkservice.New(linkservice.Params{DB: db, Log: log, GenID: node, Clock: clk, Repo: linkrepo.Provide()})
	files := fileservice.New(fileservice.Params{DB: db, Log: log, GenID: node, Clock: clk, Repo: filerepo.Provide()})
	assignees := assigneeservice.New(assigneeservice.Params{Log: log, GenID: node, Clock: clk, Repo: assigneerepo.Provide()})
	activities := activityservice.New(activityservice.Params{DB: db, Log: log, GenID: node, Clock: clk, Repo: activityrepo.Provide()})
	notifications := notificationservice.New(notificationservice.Params{
		DB:        db,
		Log:       log,
		GenID:     node,
		Clock:     clk,
		Repo:      notificationrepo.Provide(),
		UserRepo:  users,
		Publisher: pub,
	})

	svc := New(Params{
		DB:            db,
		Log:           log,
		GenID:         node,
		Clock:         clk,
		Policy:        config.NewStaticRequestPolicyHolder(cfg.policy),
		Repo:          requests,
		WorkspaceRepo: workspaces,
		CatalogRepo:   catalogrepo.Provide(),
		UserRepo:      users,
		Users:         userservice.New(userservice.Params{DB: db, Log: log, Repo: users}),
		Authz:         authorization.NewService(authorization.Params{Log: log, Enforcer: enforcer}),
		Ledger:        ledger,
		Versions:      versions,
		Links:         links,
		Files:         files,
		Assignees:     assignees,
		Activities:    activities,
		Notifications: notifications,
		Sweeper:       sweeper,
		EngineMetrics: obsmetrics.NewEngineMetricsWithRegisterer(prometheus.NewRegistry(), obsmetrics.Config{}),
	})

	return engineFixture{db: db, svc: svc, clock: clk, publisher: pub, ledger: ledger}
}

func seedFixture(t *testing.T, db *gorm.DB, cfg fixtureConfig) {
	t.Helper()
	users := []userdomain.User{
		{ID: platformAdminID, Email: "ops@servicedesk.local", FirstName: "Olive", LastName: "Ops", Role: userdomain.RoleAdmin},
		{ID: creatorID, Email: "cara@client.test", FirstName: "Cara", LastName: "Client", Role: userdomain.RoleClient},
		{ID: teamMemberID, Email: "tom@servicedesk.local", FirstName: "Tom", Role: userdomain.RoleTeamMember},
		{ID: successManagerID, Email: "sam@servicedesk.local", FirstName: "Sam", Role: userdomain.RoleSuccessManager},
		{ID: outsiderID, Email: "otto@elsewhere.test", Role: userdomain.RoleClient},
		{ID: workspaceAdminID, Email: "wendy@client.test", FirstName: "Wendy", Role: userdomain.RoleClient},
	}
	for i := range users {
		users[i].CreatedAt = fixtureNow.Add(time.Duration(i) * time.Minute)
		users[i].UpdatedAt = users[i].CreatedAt
	}
	require.NoError(t, db.Create(&users).Error)

	require.NoError(t, db.Create(&catalogdomain.Plan{
		ID: planID, Name: "Growth", ActiveOrdersAllowed: cfg.quota, CreatedAt: fixtureNow,
	}).Error)

	plan := planID
	manager := successManagerID
	require.NoError(t, db.Create(&[]workspacedomain.Workspace{
		{ID: workspaceID, Name: "Acme", Slug: "acme", CreditBalance: cfg.balance, PlanID: &plan,
			SuccessManagerID: &manager, CreatedAt: fixtureNow, UpdatedAt: fixtureNow},
		{ID: otherWorkspaceID, Name: "Globex", Slug: "globex", CreditBalance: 50, PlanID: &plan,
			CreatedAt: fixtureNow, UpdatedAt: fixtureNow},
	}).Error)
	require.NoError(t, db.Create(&[]workspacedomain.Member{
		{WorkspaceID: workspaceID, UserID: creatorID, Role: workspacedomain.MemberRoleMember, CreatedAt: fixtureNow},
		{WorkspaceID: workspaceID, UserID: workspaceAdminID, Role: workspacedomain.MemberRoleAdmin, CreatedAt: fixtureNow},
		{WorkspaceID: workspaceID, UserID: successManagerID, Role: workspacedomain.MemberRoleSuccessManager, CreatedAt: fixtureNow},
	}).Error)

	offerings := []catalogdomain.Offering{
		{ID: serviceCost4, Title: "Landing page", Category: "web", Status: catalogdomain.OfferingStatusActive, Credits: 4},
		{ID: serviceCost7, Title: "Brand kit", Category: "design", Status: catalogdomain.OfferingStatusActive, Credits: 7},
		{ID: serviceCost2, Title: "Banner", Category: "design", Status: catalogdomain.OfferingStatusActive, Credits: 2},
		{ID: serviceInactive, Title: "Fax cover", Category: "print", Status: catalogdomain.OfferingStatusInactive, Credits: 1},
		{ID: serviceCost11, Title: "Website", Category: "web", Status: catalogdomain.OfferingStatusActive, Credits: 11},
		{ID: serviceFree, Title: "Consultation", Category: "advice", Status: catalogdomain.OfferingStatusActive, Credits: 0},
	}
	for i := range offerings {
		offerings[i].CreatedAt = fixtureNow
		offerings[i].UpdatedAt = fixtureNow
	}
	require.NoError(t, db.Create(&offerings).Error)

	require.NoError(t, db.Create(&[]filedomain.File{
		{ID: fileInWorkspace, WorkspaceID: workspaceID, Name: "brief.pdf", UploadedBy: creatorID,
			CreatedAt: fixtureNow, UpdatedAt: fixtureNow},
		{ID: fileInOtherWorkspace, WorkspaceID: otherWorkspaceID, Name: "secret.pdf", UploadedBy: outsiderID,
			CreatedAt: fixtureNow, UpdatedAt: fixtureNow},
	}).Error)
}

func (f engineFixture) create(t *testing.T, mutate ...func(*domain.CreateRequest)) *domain.Request {
	t.Helper()
	req := domain.CreateRequest{
		WorkspaceID: workspaceID,
		ServiceID:   serviceCost4,
		Title:       "Spring campaign landing page",
		Details:     "Hero, pricing table and signup form.",
	}
	for _, m := range mutate {
		m(&req)
	}
	created, err := f.svc.Create(context.Background(), req, domain.Caller{UserID: creatorID})
	require.NoError(t, err)
	return created
}

func (f engineFixture) balance(t *testing.T) int64 {
	t.Helper()
	var ws workspacedomain.Workspace
	require.NoError(t, f.db.First(&ws, "id = ?", workspaceID).Error)
	return ws.CreditBalance
}

func (f engineFixture) request(t *testing.T, id snowflake.ID) *domain.Request {
	t.Helper()
	var request domain.Request
	require.NoError(t, f.db.First(&request, "id = ?", id).Error)
	return &request
}

func (f engineFixture) versions(t *testing.T, requestID snowflake.ID) []versiondomain.Entry {
	t.Helper()
	var entries []versiondomain.Entry
	require.NoError(t, f.db.Where("request_id = ?", requestID).Order("created_at ASC, id ASC").Find(&entries).Error)
	return entries
}

func (f engineFixture) countVersions(t *testing.T, requestID snowflake.ID, action versiondomain.Action) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&versiondomain.Entry{}).
		Where("request_id = ? AND action = ?", requestID, action).Count(&n).Error)
	return n
}

func (f engineFixture) count(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func (f engineFixture) assign(t *testing.T, requestID snowflake.ID, userIDs ...snowflake.ID) {
	t.Helper()
	_, err := f.svc.Update(context.Background(), requestID, domain.UpdateRequest{AssigneeIDs: userIDs},
		domain.Caller{UserID: creatorID})
	require.NoError(t, err)
}

func ptr[T any](v T) *T {
	return &v
}
