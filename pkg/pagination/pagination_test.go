package pagination

import (
	"errors"
	"testing"
)

func TestNewRequestClampsLimit(t *testing.T) {
	cases := map[int]int{0: DefaultLimit, -3: DefaultLimit, 10: 10, 500: MaxLimit}
	for in, want := range cases {
		req, err := NewRequest(in, "")
		if err != nil {
			t.Fatalf("NewRequest(%d): %v", in, err)
		}
		if req.Limit != want || req.Fetch() != want+1 {
			t.Fatalf("NewRequest(%d) = %+v, want limit %d", in, req, want)
		}
	}
}

func TestSliceProducesResumableCursor(t *testing.T) {
	ids := []uint{3, 5, 8}
	req, _ := NewRequest(2, "")
	page, next := Slice(req, ids, func(id uint) uint { return id })
	if len(page) != 2 || next == "" {
		t.Fatalf("expected two rows and a cursor, got %v %q", page, next)
	}

	resumed, err := NewRequest(2, next)
	if err != nil {
		t.Fatalf("decode cursor: %v", err)
	}
	if resumed.AfterID != 5 {
		t.Fatalf("expected to resume after 5, got %d", resumed.AfterID)
	}

	last, next := Slice(resumed, []uint{8}, func(id uint) uint { return id })
	if len(last) != 1 || next != "" {
		t.Fatalf("expected final page without cursor, got %v %q", last, next)
	}
}

func TestNewRequestRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"%%%", "bm9wZQ", encode(0), encode(4) + "x"} {
		if _, err := NewRequest(10, raw); !errors.Is(err, ErrBadCursor) {
			t.Fatalf("expected ErrBadCursor for %q, got %v", raw, err)
		}
	}
}
