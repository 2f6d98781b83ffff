package service

import (
	"context"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/servicedesk/internal/clock"
	"github.com/smallbiznis/servicedesk/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/servicedesk/internal/observability/metrics"
	workspacedomain "github.com/smallbiznis/servicedesk/internal/workspace/domain"
	"github.com/smallbiznis/servicedesk/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Repo          domain.Repository
	WorkspaceRepo workspacedomain.Repository
	ObsMetrics    *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	repo          domain.Repository
	workspaceRepo workspacedomain.Repository
	obsMetrics    *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("ledger.service"),
		genID:         p.GenID,
		clock:         clk,
		repo:          p.Repo,
		workspaceRepo: p.WorkspaceRepo,
		obsMetrics:    p.ObsMetrics,
	}
}

func (s *Service) Debit(ctx context.Context, tx *gorm.DB, workspaceID snowflake.ID, amount int64, ref domain.Ref) (int64, error) {
	if amount < 0 {
		return 0, domain.ErrInvalidAmount
	}
	return s.move(ctx, tx, workspaceID, domain.DirectionDebit, amount, ref)
}

func (s *Service) Credit(ctx context.Context, tx *gorm.DB, workspaceID snowflake.ID, amount int64, ref domain.Ref) (int64, error) {
	if amount < 0 {
		return 0, domain.ErrInvalidAmount
	}
	return s.move(ctx, tx, workspaceID, domain.DirectionCredit, amount, ref)
}

func (s *Service) Adjust(ctx context.Context, tx *gorm.DB, workspaceID snowflake.ID, delta int64, ref domain.Ref) (int64, error) {
	if delta < 0 {
		return s.move(ctx, tx, workspaceID, domain.DirectionCredit, -delta, ref)
	}
	return s.move(ctx, tx, workspaceID, domain.DirectionDebit, delta, ref)
}

// move locks the workspace row, validates the resulting balance and
// appends the journal entry, all on tx.
func (s *Service) move(ctx context.Context, tx *gorm.DB, workspaceID snowflake.ID, direction domain.Direction, amount int64, ref domain.Ref) (int64, error) {
	if tx == nil {
		return 0, domain.ErrMissingTransaction
	}
	if workspaceID == 0 {
		return 0, domain.ErrInvalidWorkspace
	}

	workspace, err := s.workspaceRepo.FindByIDForUpdate(ctx, tx, workspaceID)
	if err != nil {
		return 0, err
	}
	if workspace == nil {
		return 0, domain.ErrWorkspaceNotFound
	}
	if amount == 0 {
		return workspace.CreditBalance, nil
	}

	balance := workspace.CreditBalance
	switch direction {
	case domain.DirectionDebit:
		if amount > balance {
			return 0, &domain.InsufficientCreditsError{
				WorkspaceID: workspaceID,
				Balance:     balance,
				Required:    amount,
			}
		}
		balance -= amount
	case domain.DirectionCredit:
		balance += amount
	}

	if err := s.workspaceRepo.UpdateBalance(ctx, tx, workspaceID, balance); err != nil {
		return 0, err
	}

	entry := domain.Entry{
		ID:           s.genID.Generate(),
		WorkspaceID:  workspaceID,
		RequestID:    optionalID(ref.RequestID),
		ActorID:      optionalID(ref.ActorID),
		Direction:    direction,
		Amount:       amount,
		BalanceAfter: balance,
		Reason:       ref.Reason,
		CreatedAt:    s.clock.Now(),
	}
	if entry.Reason == "" {
		entry.Reason = domain.ReasonManual
	}
	if err := s.repo.InsertEntry(ctx, tx, &entry); err != nil {
		return 0, err
	}

	s.obsMetrics.RecordCreditMovement(ctx, string(direction), amount)
	s.log.Debug("credit balance moved",
		zap.String("workspace_id", workspaceID.String()),
		zap.String("direction", string(direction)),
		zap.Int64("amount", amount),
		zap.Int64("balance_after", balance),
		zap.String("reason", string(entry.Reason)),
	)
	return balance, nil
}

func (s *Service) GetBalance(ctx context.Context, workspaceID snowflake.ID) (int64, error) {
	if workspaceID == 0 {
		return 0, domain.ErrInvalidWorkspace
	}
	workspace, err := s.workspaceRepo.FindByID(ctx, s.db, workspaceID)
	if err != nil {
		return 0, err
	}
	if workspace == nil {
		return 0, domain.ErrWorkspaceNotFound
	}
	return workspace.CreditBalance, nil
}

func (s *Service) ListEntries(ctx context.Context, req domain.ListEntriesRequest) (domain.ListEntriesResponse, error) {
	if req.WorkspaceID == 0 {
		return domain.ListEntriesResponse{}, domain.ErrInvalidWorkspace
	}

	var beforeID snowflake.ID
	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return domain.ListEntriesResponse{}, err
	}
	if cursor != nil {
		parsed, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return domain.ListEntriesResponse{}, pagination.ErrInvalidPageToken
		}
		beforeID = parsed
	}

	limit := req.Limit()
	entries, err := s.repo.ListEntries(ctx, s.db, req.WorkspaceID, beforeID, limit+1)
	if err != nil {
		return domain.ListEntriesResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(entries, limit, func(e *domain.Entry) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        e.ID.String(),
			CreatedAt: strconv.FormatInt(e.CreatedAt.UnixMilli(), 10),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}

	return domain.ListEntriesResponse{Entries: entries, PageInfo: *pageInfo}, nil
}

func optionalID(id snowflake.ID) *snowflake.ID {
	if id == 0 {
		return nil
	}
	return &id
}
