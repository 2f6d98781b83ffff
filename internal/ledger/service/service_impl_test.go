package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/servicedesk/internal/clock"
	"github.com/smallbiznis/servicedesk/internal/ledger/domain"
	"github.com/smallbiznis/servicedesk/internal/ledger/repository"
	workspacedomain "github.com/smallbiznis/servicedesk/internal/workspace/domain"
	workspacerepo "github.com/smallbiznis/servicedesk/internal/workspace/repository"
	"github.com/smallbiznis/servicedesk/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type ledgerFixture struct {
	db        *gorm.DB
	svc       domain.Service
	workspace snowflake.ID
}

func setupLedger(t *testing.T, balance int64) ledgerFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&workspacedomain.Workspace{}, &domain.Entry{}))

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ws := workspacedomain.Workspace{
		ID:            snowflake.ID(100),
		Name:          "Acme",
		Slug:          "acme",
		CreditBalance: balance,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, db.Create(&ws).Error)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	svc := New(Params{
		DB:            db,
		Log:           zaptest.NewLogger(t),
		GenID:         node,
		Clock:         clock.NewFakeClock(now),
		Repo:          repository.Provide(),
		WorkspaceRepo: workspacerepo.Provide(),
	})
	return ledgerFixture{db: db, svc: svc, workspace: ws.ID}
}

func TestDebitWithinTransaction(t *testing.T) {
	f := setupLedger(t, 10)
	ctx := context.Background()

	var balance int64
	err := f.db.Transaction(func(tx *gorm.DB) error {
		var err error
		balance, err = f.svc.Debit(ctx, tx, f.workspace, 4, domain.Ref{RequestID: 7, Reason: domain.ReasonRequestCreated})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(6), balance)

	got, err := f.svc.GetBalance(ctx, f.workspace)
	require.NoError(t, err)
	assert.Equal(t, int64(6), got)

	var entries []domain.Entry
	require.NoError(t, f.db.Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.DirectionDebit, entries[0].Direction)
	assert.Equal(t, int64(4), entries[0].Amount)
	assert.Equal(t, int64(6), entries[0].BalanceAfter)
	require.NotNil(t, entries[0].RequestID)
	assert.Equal(t, snowflake.ID(7), *entries[0].RequestID)
}

func TestDebitRejectsOverdraft(t *testing.T) {
	f := setupLedger(t, 2)
	ctx := context.Background()

	err := f.db.Transaction(func(tx *gorm.DB) error {
		_, err := f.svc.Debit(ctx, tx, f.workspace, 4, domain.Ref{})
		return err
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientCredits)

	var insufficient *domain.InsufficientCreditsError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, int64(2), insufficient.Balance)
	assert.Equal(t, int64(4), insufficient.Required)

	got, err := f.svc.GetBalance(ctx, f.workspace)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got)

	var count int64
	require.NoError(t, f.db.Model(&domain.Entry{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRollbackDiscardsMovement(t *testing.T) {
	f := setupLedger(t, 10)
	ctx := context.Background()
	boom := errors.New("boom")

	err := f.db.Transaction(func(tx *gorm.DB) error {
		if _, err := f.svc.Debit(ctx, tx, f.workspace, 3, domain.Ref{}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := f.svc.GetBalance(ctx, f.workspace)
	require.NoError(t, err)
	assert.Equal(t, int64(10), got)
}

func TestAdjustBySignedDelta(t *testing.T) {
	f := setupLedger(t, 10)
	ctx := context.Background()

	cases := []struct {
		name    string
		delta   int64
		want    int64
		wantErr error
	}{
		{name: "more expensive service", delta: 3, want: 7},
		{name: "cheaper service", delta: -5, want: 12},
		{name: "same cost", delta: 0, want: 12},
		{name: "overdraft", delta: 13, wantErr: domain.ErrInsufficientCredits},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var balance int64
			err := f.db.Transaction(func(tx *gorm.DB) error {
				var err error
				balance, err = f.svc.Adjust(ctx, tx, f.workspace, tc.delta, domain.Ref{Reason: domain.ReasonServiceChanged})
				return err
			})
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, balance)
		})
	}
}

func TestLedgerValidation(t *testing.T) {
	f := setupLedger(t, 10)
	ctx := context.Background()

	_, err := f.svc.Debit(ctx, nil, f.workspace, 1, domain.Ref{})
	assert.ErrorIs(t, err, domain.ErrMissingTransaction)

	_, err = f.svc.Credit(ctx, f.db, f.workspace, -1, domain.Ref{})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.svc.Debit(ctx, f.db, snowflake.ID(999), 1, domain.Ref{})
	assert.ErrorIs(t, err, domain.ErrWorkspaceNotFound)

	_, err = f.svc.GetBalance(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidWorkspace)
}

func TestListEntriesPaginates(t *testing.T) {
	f := setupLedger(t, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.Credit(ctx, f.db, f.workspace, int64(i+1), domain.Ref{Reason: domain.ReasonTopUp})
		require.NoError(t, err)
	}

	first, err := f.svc.ListEntries(ctx, domain.ListEntriesRequest{
		WorkspaceID: f.workspace,
		Pagination:  pagination.Pagination{PageSize: 2},
	})
	require.NoError(t, err)
	require.Len(t, first.Entries, 2)
	assert.True(t, first.PageInfo.HasMore)
	assert.Equal(t, int64(6), first.Entries[0].BalanceAfter)

	second, err := f.svc.ListEntries(ctx, domain.ListEntriesRequest{
		WorkspaceID: f.workspace,
		Pagination:  pagination.Pagination{PageSize: 2, PageToken: first.PageInfo.NextPageToken},
	})
	require.NoError(t, err)
	require.Len(t, second.Entries, 1)
	assert.False(t, second.PageInfo.HasMore)
	assert.Equal(t, int64(1), second.Entries[0].BalanceAfter)
}
