package pagination

import (
	"encoding/base64"
	"encoding/json"

	"github.com/bwmarrin/snowflake"
)

const (
	defaultPageSize = 50
	maxPageSize     = 250
)

type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size,default=50" validate:"gte=1,lte=250"` // Min 1, Max 250
}

// Size returns the effective page size, clamped to the allowed range.
func (p Pagination) Size() int {
	if p.PageSize <= 0 {
		return defaultPageSize
	}
	if p.PageSize > maxPageSize {
		return maxPageSize
	}
	return p.PageSize
}

// Cursor marks the last row of the previous page. Snowflake IDs are
// time-ordered, so id-based cursors keep pages stable under inserts.
type Cursor struct {
	AfterID snowflake.ID `json:"after_id,omitempty"`
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

	return base64.StdEncoding.EncodeToString(b), nil
}

func DecodeCursor(data string) (Cursor, error) {
	if data == "" {
		return Cursor{}, nil
	}

	b, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return Cursor{}, err
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return Cursor{}, err
	}

	return cursor, nil
}
