package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/servicedesk/internal/assignee/domain"
	"github.com/smallbiznis/servicedesk/internal/assignee/repository"
	"github.com/smallbiznis/servicedesk/internal/relation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupAssigneeService(t *testing.T) (*gorm.DB, domain.Service) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Assignee{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return db, New(Params{Log: zap.NewNop(), GenID: node, Repo: repository.Provide()})
}

func TestReplaceAssignees(t *testing.T) {
	db, svc := setupAssigneeService(t)
	ctx := context.Background()
	parent := relation.Request(9)

	require.NoError(t, svc.Replace(ctx, db, parent, []snowflake.ID{1, 2, 2}, 99))
	ids, err := svc.UserIDs(ctx, db, parent)
	require.NoError(t, err)
	assert.ElementsMatch(t, []snowflake.ID{1, 2}, ids)

	require.NoError(t, svc.Replace(ctx, db, parent, []snowflake.ID{3}, 99))
	ids, err = svc.UserIDs(ctx, db, parent)
	require.NoError(t, err)
	assert.Equal(t, []snowflake.ID{3}, ids)

	assigned, err := svc.IsAssigned(ctx, db, parent, 3)
	require.NoError(t, err)
	assert.True(t, assigned)

	assigned, err = svc.IsAssigned(ctx, db, parent, 1)
	require.NoError(t, err)
	assert.False(t, assigned)

	require.NoError(t, svc.Replace(ctx, db, parent, nil, 99))
	ids, err = svc.UserIDs(ctx, db, parent)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestReplaceValidation(t *testing.T) {
	db, svc := setupAssigneeService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Replace(ctx, db, relation.Ref{}, nil, 1), domain.ErrInvalidParent)
	assert.ErrorIs(t, svc.Replace(ctx, db, relation.Request(1), []snowflake.ID{0}, 1), domain.ErrInvalidUser)
}

func TestAssigneesAreScopedByKind(t *testing.T) {
	db, svc := setupAssigneeService(t)
	ctx := context.Background()

	require.NoError(t, svc.Replace(ctx, db, relation.Request(4), []snowflake.ID{1}, 99))
	require.NoError(t, svc.Replace(ctx, db, relation.Workspace(4), []snowflake.ID{2}, 99))

	rows, err := repository.Provide().ListByParents(ctx, db, relation.KindRequest, []snowflake.ID{4})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, snowflake.ID(1), rows[0].UserID)
}
