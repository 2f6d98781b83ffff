package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/servicedesk/internal/relation"
)

// File is the metadata row of an uploaded file or folder. Storage of the
// bytes lives elsewhere; this row only tracks ownership and linkage.
type File struct {
	ID          snowflake.ID   `gorm:"primaryKey" json:"id"`
	WorkspaceID snowflake.ID   `gorm:"not null;index" json:"workspace_id"`
	Name        string         `gorm:"type:text;not null" json:"name"`
	IsFolder    bool           `gorm:"not null;default:false" json:"is_folder"`
	StorageKey  string         `gorm:"type:text" json:"storage_key,omitempty"`
	LinkedID    *snowflake.ID  `gorm:"index:idx_files_parent,priority:2" json:"linked_id,omitempty"`
	LinkedKind  *relation.Kind `gorm:"type:varchar(32);index:idx_files_parent,priority:1" json:"linked_kind,omitempty"`
	UploadedBy  snowflake.ID   `gorm:"not null" json:"uploaded_by"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (File) TableName() string { return "files" }

func (f *File) LinkedTo(parent relation.Ref) bool {
	return f.LinkedID != nil && f.LinkedKind != nil && *f.LinkedID == parent.ID && *f.LinkedKind == parent.Kind
}
