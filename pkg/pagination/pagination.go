// Package pagination implements keyset cursors over (created_at desc, id desc).
package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLimit = 24
	MaxLimit     = 100
)

// Cursor is the position of the last row returned by a page.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// Page is one slice of a keyset-ordered result.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// NormalizeLimit clamps limit into [1, MaxLimit], using DefaultLimit for non-positive values.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// Encode renders the cursor as an opaque URL-safe token.
func (c Cursor) Encode() string {
	raw := strconv.FormatInt(c.CreatedAt.UTC().UnixMicro(), 10) + "." + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// Decode parses a token produced by Encode. An empty token yields nil.
func Decode(token string) (*Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	micros, id, ok := strings.Cut(string(raw), ".")
	if !ok {
		return nil, fmt.Errorf("malformed cursor")
	}
	us, err := strconv.ParseInt(micros, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("cursor timestamp: %w", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("cursor id: %w", err)
	}
	return &Cursor{CreatedAt: time.UnixMicro(us).UTC(), ID: parsed}, nil
}

// Trim cuts a result fetched with limit+1 rows down to limit and reports the
// cursor for the next page, or an empty string when rows were exhausted.
func Trim[T any](rows []T, limit int, key func(T) Cursor) Page[T] {
	if len(rows) <= limit {
		return Page[T]{Items: rows}
	}
	rows = rows[:limit]
	return Page[T]{Items: rows, NextCursor: key(rows[len(rows)-1]).Encode()}
}
