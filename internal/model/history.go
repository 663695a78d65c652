package model

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
)

// HistoryRecord is one verification result. The score is produced elsewhere
// and stored as-is.
type HistoryRecord struct {
	ID               string    `db:"id" json:"id"`
	UserID           string    `db:"user_id" json:"user_id"`
	ImageURI         string    `db:"image_uri" json:"image_uri"`
	ReferenceURIs    URIList   `db:"reference_uris" json:"reference_uris"`
	Verdict          string    `db:"verdict" json:"verdict"`
	CredibilityScore *float64  `db:"credibility_score" json:"credibility_score,omitempty"`
	Summary          *string   `db:"summary" json:"summary,omitempty"`
	CreatedAt        Timestamp `db:"created_at" json:"created_at"`
}

// URIList is stored as a newline-separated TEXT column.
type URIList []string

func (l URIList) Join() string {
	return strings.Join(l, "\n")
}

// ParseURIList is the inverse of Join.
func ParseURIList(s string) URIList {
	if s == "" {
		return URIList{}
	}
	return strings.Split(s, "\n")
}

// Value implements driver.Valuer.
func (l URIList) Value() (driver.Value, error) {
	return l.Join(), nil
}

// Scan implements sql.Scanner.
func (l *URIList) Scan(src any) error {
	switch v := src.(type) {
	case string:
		*l = ParseURIList(v)
	case []byte:
		*l = ParseURIList(string(v))
	case nil:
		*l = URIList{}
	default:
		return fmt.Errorf("uri list: unsupported source type %T", src)
	}
	return nil
}

// CreateHistoryRequest is the request body for POST /me/history.
type CreateHistoryRequest struct {
	ImageURI         string   `json:"image_uri"`
	ReferenceURIs    []string `json:"reference_uris"`
	Verdict          string   `json:"verdict"`
	CredibilityScore *float64 `json:"credibility_score"`
	Summary          *string  `json:"summary"`
}

type HistoryListResponse struct {
	Records []HistoryRecord `json:"records"`
	Visible bool            `json:"visible"`
}

var (
	ErrHistoryNotFound  = errors.New("history record not found")
	ErrImageURIRequired = errors.New("image uri is required")
)
