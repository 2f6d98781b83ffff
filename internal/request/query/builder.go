package query

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/servicedesk/internal/relation"
	"github.com/smallbiznis/servicedesk/internal/request/domain"
	userdomain "github.com/smallbiznis/servicedesk/internal/user/domain"
	workspacedomain "github.com/smallbiznis/servicedesk/internal/workspace/domain"
	"gorm.io/gorm"
)

const viewColumns = `requests.*,
	COALESCE(services.title, '') AS service_title,
	COALESCE(services.category, '') AS service_category,
	COALESCE(workspaces.name, '') AS workspace_name,
	COALESCE(workspaces.logo_url, '') AS workspace_logo_url,
	(SELECT COUNT(*) FROM requests subtasks WHERE subtasks.parent_request_id = requests.id) AS subtask_count,
	(SELECT COUNT(*) FROM comments WHERE comments.linked_kind = @kind AND comments.linked_id = requests.id) AS comment_count,
	(SELECT COUNT(*) FROM files WHERE files.linked_kind = @kind AND files.linked_id = requests.id AND files.is_folder = @folder) AS file_count`

// viewRow is one scanned list row before assignees are attached.
type viewRow struct {
	domain.Request
	ServiceTitle     string
	ServiceCategory  string
	WorkspaceName    string
	WorkspaceLogoURL string
	SubtaskCount     int64
	CommentCount     int64
	FileCount        int64
}

type scope func(*gorm.DB) *gorm.DB

// Builder composes one read statement over requests. It never writes.
type Builder struct {
	db          *gorm.DB
	scopes      []scope
	oldestFirst bool
}

func NewBuilder(db *gorm.DB) *Builder {
	return &Builder{db: db}
}

// Status narrows to one status, or to the pending set. An empty value
// hides cancelled requests.
func (b *Builder) Status(raw string, pending []domain.Status) error {
	switch raw {
	case "":
		b.where("requests.status <> ?", domain.StatusCancelled)
	case domain.StatusPending:
		b.where("requests.status IN ?", pending)
	default:
		status, err := domain.ParseStatus(raw)
		if err != nil {
			return domain.InvalidInput("unknown status filter %q", raw)
		}
		b.where("requests.status = ?", status)
	}
	return nil
}

func (b *Builder) Archived(filter domain.ArchiveFilter) error {
	switch filter {
	case "", domain.ArchiveFilterActive:
		b.where("requests.archived_at IS NULL")
	case domain.ArchiveFilterArchived:
		b.where("requests.archived_at IS NOT NULL")
	case domain.ArchiveFilterAll:
	default:
		return domain.InvalidInput("unknown archived filter %q", filter)
	}
	return nil
}

func (b *Builder) Workspace(id snowflake.ID) *Builder {
	if id != 0 {
		b.where("requests.workspace_id = ?", id)
	}
	return b
}

func (b *Builder) Parent(id snowflake.ID) *Builder {
	if id != 0 {
		b.where("requests.parent_request_id = ?", id)
	}
	return b
}

func (b *Builder) TopLevel() *Builder {
	b.where("requests.parent_request_id IS NULL")
	return b
}

func (b *Builder) ID(id snowflake.ID) *Builder {
	b.where("requests.id = ?", id)
	return b
}

// After continues a newest-first listing below the cursor row.
func (b *Builder) After(createdAt time.Time, id snowflake.ID) *Builder {
	b.where("(requests.created_at < ? OR (requests.created_at = ? AND requests.id < ?))", createdAt, createdAt, id)
	return b
}

func (b *Builder) OldestFirst() *Builder {
	b.oldestFirst = true
	return b
}

// AssignedTo keeps requests the user is an assignee of.
func (b *Builder) AssignedTo(userID snowflake.ID) *Builder {
	b.scopes = append(b.scopes, func(db *gorm.DB) *gorm.DB {
		return db.Where(assignedClause, relation.KindRequest, userID)
	})
	return b
}

// ManagedBy keeps requests in workspaces the user manages, either as the
// workspace's success manager or through the roster, plus the ones they
// are assigned to.
func (b *Builder) ManagedBy(userID snowflake.ID) *Builder {
	b.scopes = append(b.scopes, func(db *gorm.DB) *gorm.DB {
		return db.Where(
			"(requests.workspace_id IN (SELECT id FROM workspaces WHERE success_manager_id = ?)"+
				" OR requests.workspace_id IN (SELECT workspace_id FROM workspace_members WHERE user_id = ? AND role = ?)"+
				" OR "+assignedClause+")",
			userID, userID, workspacedomain.MemberRoleSuccessManager, relation.KindRequest, userID,
		)
	})
	return b
}

// MemberOf keeps requests in workspaces the user is on the roster of.
func (b *Builder) MemberOf(userID snowflake.ID) *Builder {
	b.where("requests.workspace_id IN (SELECT workspace_id FROM workspace_members WHERE user_id = ?)", userID)
	return b
}

const assignedClause = "EXISTS (SELECT 1 FROM assignees visible WHERE visible.linked_kind = ? AND visible.linked_id = requests.id AND visible.user_id = ?)"

func (b *Builder) where(query string, args ...any) {
	b.scopes = append(b.scopes, func(db *gorm.DB) *gorm.DB {
		return db.Where(query, args...)
	})
}

func (b *Builder) statement(ctx context.Context) *gorm.DB {
	stmt := b.db.WithContext(ctx).
		Table("requests").
		Select(viewColumns, map[string]any{"kind": relation.KindRequest, "folder": false}).
		Joins("LEFT JOIN services ON services.id = requests.service_id").
		Joins("LEFT JOIN workspaces ON workspaces.id = requests.workspace_id")
	for _, sc := range b.scopes {
		stmt = sc(stmt)
	}
	if b.oldestFirst {
		return stmt.Order("requests.created_at ASC").Order("requests.id ASC")
	}
	return stmt.Order("requests.created_at DESC").Order("requests.id DESC")
}

// Rows runs the statement. limit <= 0 returns every match.
func (b *Builder) Rows(ctx context.Context, limit int) ([]*domain.RequestView, error) {
	stmt := b.statement(ctx)
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	var rows []viewRow
	if err := stmt.Scan(&rows).Error; err != nil {
		return nil, err
	}

	views := make([]*domain.RequestView, 0, len(rows))
	for _, row := range rows {
		views = append(views, &domain.RequestView{
			Request:          row.Request,
			Assignees:        []domain.AssigneeView{},
			ServiceTitle:     row.ServiceTitle,
			ServiceCategory:  row.ServiceCategory,
			WorkspaceName:    row.WorkspaceName,
			WorkspaceLogoURL: row.WorkspaceLogoURL,
			SubtaskCount:     row.SubtaskCount,
			CommentCount:     row.CommentCount,
			FileCount:        row.FileCount,
		})
	}
	if err := attachAssignees(ctx, b.db, views); err != nil {
		return nil, err
	}
	return views, nil
}

type assigneeRow struct {
	RequestID snowflake.ID
	UserID    snowflake.ID
	FirstName string
	LastName  string
	Email     string
	AvatarURL string
}

// attachAssignees loads the assignees of every view in one statement.
func attachAssignees(ctx context.Context, db *gorm.DB, views []*domain.RequestView) error {
	if len(views) == 0 {
		return nil
	}
	index := make(map[snowflake.ID]*domain.RequestView, len(views))
	ids := make([]snowflake.ID, 0, len(views))
	for _, v := range views {
		index[v.ID] = v
		ids = append(ids, v.ID)
	}

	var rows []assigneeRow
	err := db.WithContext(ctx).
		Table("assignees").
		Select("assignees.linked_id AS request_id, users.id AS user_id, users.first_name, users.last_name, users.email, users.avatar_url").
		Joins("JOIN users ON users.id = assignees.user_id").
		Where("assignees.linked_kind = ? AND assignees.linked_id IN ?", relation.KindRequest, ids).
		Order("assignees.created_at ASC").Order("assignees.id ASC").
		Scan(&rows).Error
	if err != nil {
		return err
	}
	for _, row := range rows {
		view, ok := index[row.RequestID]
		if !ok {
			continue
		}
		view.Assignees = append(view.Assignees, domain.AssigneeView{
			UserID:      row.UserID,
			DisplayName: userdomain.DisplayName(row.FirstName, row.LastName, row.Email),
			AvatarURL:   row.AvatarURL,
		})
	}
	return nil
}
