package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/stashbot/pkg/errors"
	"github.com/angelmondragon/stashbot/pkg/pagination"
)

const maxCursorLen = 128

// Page holds the raw paging inputs of a list request. The cursor stays opaque
// here; the service decodes it.
type Page struct {
	Limit  int
	Cursor string
}

// ParsePage reads ?limit= and ?cursor=. A missing limit leaves Limit at zero,
// which pagination treats as its default.
func ParsePage(r *http.Request) (Page, error) {
	limit, err := ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
	if err != nil {
		return Page{}, err
	}
	cursor := query(r, "cursor")
	if len(cursor) > maxCursorLen {
		return Page{}, queryError("cursor", "cursor too long", map[string]any{"max": maxCursorLen})
	}
	return Page{Limit: limit, Cursor: cursor}, nil
}

// ParseQueryInt reads an optional integer query parameter bounded by [min, max].
func ParseQueryInt(r *http.Request, key string, fallback, min, max int) (int, error) {
	raw := query(r, key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	switch {
	case err != nil:
		return 0, queryError(key, key+" must be an integer", nil)
	case n < min || n > max:
		return 0, queryError(key, key+" out of range", map[string]any{"min": min, "max": max})
	}
	return n, nil
}

func query(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

func queryError(key, msg string, extra map[string]any) error {
	details := map[string]any{"field": key}
	for k, v := range extra {
		details[k] = v
	}
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(details)
}
