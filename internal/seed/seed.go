package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	catalogdomain "github.com/smallbiznis/servicedesk/internal/catalog/domain"
	ledgerdomain "github.com/smallbiznis/servicedesk/internal/ledger/domain"
	userdomain "github.com/smallbiznis/servicedesk/internal/user/domain"
	workspacedomain "github.com/smallbiznis/servicedesk/internal/workspace/domain"
	"gorm.io/gorm"
)

const (
	demoWorkspaceName    = "Acme Design Co"
	demoPlanName         = "Growth"
	demoActiveOrders     = 5
	demoOpeningBalance   = 40
	demoAdminEmail       = "admin@servicedesk.local"
	demoTeamMemberEmail  = "designer@servicedesk.local"
	demoManagerEmail     = "success@servicedesk.local"
	demoClientEmail      = "client@acme.test"
	demoClientAdminEmail = "owner@acme.test"
)

type demoService struct {
	title    string
	category string
	credits  int64
}

var demoServices = []demoService{
	{title: "Landing page", category: "web", credits: 4},
	{title: "Social media kit", category: "brand", credits: 2},
	{title: "Pitch deck", category: "presentation", credits: 7},
	{title: "Logo refresh", category: "brand", credits: 0},
}

// EnsureDemoData seeds a workspace with a roster, a plan, a catalog and an
// opening credit balance. Rows that already exist are left alone.
func EnsureDemoData(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		admin, err := ensureUserTx(ctx, tx, node, demoAdminEmail, "Ops", "Admin", userdomain.RoleAdmin)
		if err != nil {
			return err
		}
		if _, err := ensureUserTx(ctx, tx, node, demoTeamMemberEmail, "Dana", "Designer", userdomain.RoleTeamMember); err != nil {
			return err
		}
		manager, err := ensureUserTx(ctx, tx, node, demoManagerEmail, "Sam", "Success", userdomain.RoleSuccessManager)
		if err != nil {
			return err
		}
		client, err := ensureUserTx(ctx, tx, node, demoClientEmail, "Cara", "Client", userdomain.RoleClient)
		if err != nil {
			return err
		}
		owner, err := ensureUserTx(ctx, tx, node, demoClientAdminEmail, "Olly", "Owner", userdomain.RoleClient)
		if err != nil {
			return err
		}

		plan, err := ensurePlanTx(ctx, tx, node)
		if err != nil {
			return err
		}
		for _, svc := range demoServices {
			if err := ensureServiceTx(ctx, tx, node, svc); err != nil {
				return err
			}
		}

		workspace, created, err := ensureWorkspaceTx(ctx, tx, node, plan.ID, manager.ID)
		if err != nil {
			return err
		}
		roster := map[snowflake.ID]workspacedomain.MemberRole{
			client.ID:  workspacedomain.MemberRoleMember,
			owner.ID:   workspacedomain.MemberRoleAdmin,
			manager.ID: workspacedomain.MemberRoleSuccessManager,
		}
		for userID, role := range roster {
			if err := ensureMemberTx(ctx, tx, workspace.ID, userID, role); err != nil {
				return err
			}
		}
		if !created {
			return nil
		}

		// Journal the opening balance.
		return tx.WithContext(ctx).Create(&ledgerdomain.Entry{
			ID:           node.Generate(),
			WorkspaceID:  workspace.ID,
			ActorID:      &admin.ID,
			Direction:    ledgerdomain.DirectionCredit,
			Amount:       demoOpeningBalance,
			BalanceAfter: demoOpeningBalance,
			Reason:       ledgerdomain.ReasonTopUp,
			CreatedAt:    time.Now().UTC(),
		}).Error
	})
}

func ensureUserTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, email, first, last string, role userdomain.Role) (userdomain.User, error) {
	var user userdomain.User
	err := tx.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return user, err
	}
	now := time.Now().UTC()
	user = userdomain.User{
		ID:        node.Generate(),
		Email:     email,
		FirstName: first,
		LastName:  last,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&user).Error; err != nil {
		return user, err
	}
	return user, nil
}

func ensurePlanTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (catalogdomain.Plan, error) {
	var plan catalogdomain.Plan
	err := tx.WithContext(ctx).Where("name = ?", demoPlanName).First(&plan).Error
	if err == nil {
		return plan, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return plan, err
	}
	plan = catalogdomain.Plan{
		ID:                  node.Generate(),
		Name:                demoPlanName,
		ActiveOrdersAllowed: demoActiveOrders,
		CreatedAt:           time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(&plan).Error; err != nil {
		return plan, err
	}
	return plan, nil
}

func ensureServiceTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, svc demoService) error {
	var count int64
	err := tx.WithContext(ctx).
		Model(&catalogdomain.Offering{}).
		Where("title = ?", svc.title).
		Count(&count).Error
	if err != nil || count > 0 {
		return err
	}
	now := time.Now().UTC()
	return tx.WithContext(ctx).Create(&catalogdomain.Offering{
		ID:        node.Generate(),
		Title:     svc.title,
		Category:  svc.category,
		Status:    catalogdomain.OfferingStatusActive,
		Credits:   svc.credits,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error
}

func ensureWorkspaceTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, planID, managerID snowflake.ID) (workspacedomain.Workspace, bool, error) {
	var workspace workspacedomain.Workspace
	workspaceSlug := slug.Make(demoWorkspaceName)
	err := tx.WithContext(ctx).Where("slug = ?", workspaceSlug).First(&workspace).Error
	if err == nil {
		return workspace, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return workspace, false, err
	}
	now := time.Now().UTC()
	workspace = workspacedomain.Workspace{
		ID:               node.Generate(),
		Name:             demoWorkspaceName,
		Slug:             workspaceSlug,
		CreditBalance:    demoOpeningBalance,
		PlanID:           &planID,
		SuccessManagerID: &managerID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := tx.WithContext(ctx).Create(&workspace).Error; err != nil {
		return workspace, false, err
	}
	return workspace, true, nil
}

func ensureMemberTx(ctx context.Context, tx *gorm.DB, workspaceID, userID snowflake.ID, role workspacedomain.MemberRole) error {
	var count int64
	err := tx.WithContext(ctx).
		Model(&workspacedomain.Member{}).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		Count(&count).Error
	if err != nil || count > 0 {
		return err
	}
	return tx.WithContext(ctx).Create(&workspacedomain.Member{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Role:        role,
		CreatedAt:   time.Now().UTC(),
	}).Error
}
