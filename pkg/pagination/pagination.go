// Package pagination implements keyset pages over serial ids with opaque
// cursors.
package pagination

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100

	cursorVersion = "v1."
)

var ErrBadCursor = errors.New("malformed cursor")

// Request is a validated page request. AfterID 0 means the first page.
type Request struct {
	Limit   int
	AfterID uint
}

// NewRequest clamps limit into [1, MaxLimit] and decodes cursor.
func NewRequest(limit int, cursor string) (Request, error) {
	req := Request{Limit: clamp(limit)}
	if strings.TrimSpace(cursor) == "" {
		return req, nil
	}
	id, err := decode(cursor)
	if err != nil {
		return Request{}, err
	}
	req.AfterID = id
	return req, nil
}

// Fetch is the number of rows to query: one extra row reveals a next page.
func (r Request) Fetch() int {
	return r.Limit + 1
}

// Slice trims rows fetched with r.Fetch() to the page and returns the cursor
// for the next page, or "" on the last page.
func Slice[T any](r Request, rows []T, id func(T) uint) ([]T, string) {
	if len(rows) <= r.Limit {
		return rows, ""
	}
	rows = rows[:r.Limit]
	return rows, encode(id(rows[len(rows)-1]))
}

func clamp(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

func encode(id uint) string {
	return base64.RawURLEncoding.EncodeToString([]byte(cursorVersion + strconv.FormatUint(uint64(id), 10)))
}

func decode(cursor string) (uint, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(cursor))
	if err != nil {
		return 0, ErrBadCursor
	}
	digits, ok := strings.CutPrefix(string(raw), cursorVersion)
	if !ok {
		return 0, ErrBadCursor
	}
	id, err := strconv.ParseUint(digits, 10, 0)
	if err != nil || id == 0 {
		return 0, ErrBadCursor
	}
	return uint(id), nil
}
