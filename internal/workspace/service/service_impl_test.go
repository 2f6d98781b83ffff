package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/servicedesk/internal/workspace/domain"
	"github.com/smallbiznis/servicedesk/internal/workspace/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func setupWorkspaceService(t *testing.T) domain.Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Workspace{}, &domain.Member{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return New(Params{DB: db, Log: zaptest.NewLogger(t), GenID: node, Repo: repository.Provide()})
}

func TestCreateWorkspaceSlugs(t *testing.T) {
	svc := setupWorkspaceService(t)
	ctx := context.Background()

	ws, err := svc.Create(ctx, domain.CreateWorkspaceRequest{Name: "  Acme Design Co ", OpeningBalance: 10})
	require.NoError(t, err)
	assert.Equal(t, "acme-design-co", ws.Slug)
	assert.Equal(t, int64(10), ws.CreditBalance)

	_, err = svc.Create(ctx, domain.CreateWorkspaceRequest{Name: "Acme Design Co"})
	assert.ErrorIs(t, err, domain.ErrSlugTaken)

	_, err = svc.Create(ctx, domain.CreateWorkspaceRequest{Name: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(ctx, domain.CreateWorkspaceRequest{Name: "Negative", OpeningBalance: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidBalance)
}

func TestWorkspaceAdminRoster(t *testing.T) {
	svc := setupWorkspaceService(t)
	ctx := context.Background()

	ws, err := svc.Create(ctx, domain.CreateWorkspaceRequest{Name: "Roster"})
	require.NoError(t, err)

	userID := snowflake.ID(500)
	require.NoError(t, svc.AddMember(ctx, domain.AddMemberRequest{WorkspaceID: ws.ID, UserID: userID, Role: domain.MemberRoleMember}))

	isAdmin, err := svc.IsWorkspaceAdmin(ctx, ws.ID, userID)
	require.NoError(t, err)
	assert.False(t, isAdmin)

	require.NoError(t, svc.AddMember(ctx, domain.AddMemberRequest{WorkspaceID: ws.ID, UserID: userID, Role: domain.MemberRoleAdmin}))
	isAdmin, err = svc.IsWorkspaceAdmin(ctx, ws.ID, userID)
	require.NoError(t, err)
	assert.True(t, isAdmin)

	role, err := svc.MemberRole(ctx, ws.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, domain.MemberRoleAdmin, role)

	role, err = svc.MemberRole(ctx, ws.ID, snowflake.ID(501))
	require.NoError(t, err)
	assert.Empty(t, role)

	err = svc.AddMember(ctx, domain.AddMemberRequest{WorkspaceID: ws.ID, UserID: userID, Role: "owner"})
	assert.ErrorIs(t, err, domain.ErrInvalidRole)

	err = svc.AddMember(ctx, domain.AddMemberRequest{WorkspaceID: snowflake.ID(1), UserID: userID, Role: domain.MemberRoleAdmin})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
