package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
)

const (
	DefaultPageSize = 25
	MaxPageSize     = 250
)

var ErrInvalidPageToken = errors.New("invalid_page_token")

type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size,default=25" validate:"gte=1,lte=250"` // Min 1, Max 250
}

// Limit clamps the requested page size into [1, MaxPageSize].
func (p Pagination) Limit() int {
	switch {
	case p.PageSize <= 0:
		return DefaultPageSize
	case p.PageSize > MaxPageSize:
		return MaxPageSize
	default:
		return p.PageSize
	}
}

type Cursor struct {
	ID        string `json:"id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token"`
	HasMore       bool   `json:"has_more"`
}

func EncodeCursor(data Cursor) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	return base64.URLEncoding.EncodeToString(b), nil
}

func DecodeCursor(data string) (*Cursor, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return nil, nil
	}

	b, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		return nil, ErrInvalidPageToken
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, ErrInvalidPageToken
	}

	return &cursor, nil
}

// BuildCursorPageInfo expects data to hold up to limit+1 rows; the extra row
// only signals that another page exists.
func BuildCursorPageInfo[T any](data []*T, limit int, extractCursor func(*T) string) *PageInfo {
	if len(data) == 0 {
		return &PageInfo{HasMore: false}
	}

	hasMore := false
	if len(data) > limit {
		hasMore = true
		data = data[:limit]
	}

	pageInfo := &PageInfo{HasMore: hasMore}
	if hasMore {
		pageInfo.NextPageToken = extractCursor(data[len(data)-1])
	}

	return pageInfo
}
