package domain

import "github.com/bwmarrin/snowflake"

type AssigneeView struct {
	UserID      snowflake.ID `json:"user_id"`
	DisplayName string       `json:"display_name"`
	AvatarURL   string       `json:"avatar_url,omitempty"`
}

// RequestView is a request plus the data joined in at read time. None of
// the extra fields are persisted.
type RequestView struct {
	Request

	Assignees        []AssigneeView `json:"assignees"`
	ServiceTitle     string         `json:"service_title"`
	ServiceCategory  string         `json:"service_category"`
	WorkspaceName    string         `json:"workspace_name"`
	WorkspaceLogoURL string         `json:"workspace_logo_url,omitempty"`
	SubtaskCount     int64          `json:"subtask_count"`
	CommentCount     int64          `json:"comment_count"`
	FileCount        int64          `json:"file_count"`
}
