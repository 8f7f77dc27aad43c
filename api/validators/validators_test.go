package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/angelmondragon/stashbot/pkg/errors"
)

type submitBody struct {
	PaymentRef string `json:"payment_ref" validate:"required,hexadecimal,min=16,max=128"`
}

func TestDecodeJSONBodyValidates(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"payment_ref":"zz"}`))
	var body submitBody
	err := DecodeJSONBody(req, &body)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	if !ok || details["payment_ref"] == "" {
		t.Fatalf("expected json field name in details, got %#v", pkgerrors.As(err).Details())
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"payment_ref":"abcdef0123456789","extra":1}`))
	var body submitBody
	if err := DecodeJSONBody(req, &body); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyAccepts(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"payment_ref":"abcdef0123456789"}`))
	var body submitBody
	if err := DecodeJSONBody(req, &body); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if body.PaymentRef != "abcdef0123456789" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestParseQueryIntBounds(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500", nil)
	if _, err := ParseQueryInt(req, "limit", 10, 1, 100); err == nil {
		t.Fatal("expected out of range error")
	}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	got, err := ParseQueryInt(req, "limit", 10, 1, 100)
	if err != nil || got != 10 {
		t.Fatalf("expected default, got %d err=%v", got, err)
	}
}

func withParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestParseIDParam(t *testing.T) {
	req := withParam(httptest.NewRequest(http.MethodGet, "/", nil), "productID", "17")
	id, err := ParseIDParam(req, "productID")
	if err != nil || id != 17 {
		t.Fatalf("expected 17, got %d err=%v", id, err)
	}
	for _, raw := range []string{"", "0", "-3", "abc"} {
		req := withParam(httptest.NewRequest(http.MethodGet, "/", nil), "productID", raw)
		if _, err := ParseIDParam(req, "productID"); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestParseChatIDParam(t *testing.T) {
	req := withParam(httptest.NewRequest(http.MethodGet, "/", nil), "buyerID", "123456789012")
	id, err := ParseChatIDParam(req, "buyerID")
	if err != nil || id != 123456789012 {
		t.Fatalf("unexpected id %d err=%v", id, err)
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  hello world  ", 5); got != "hello" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestSanitizeStringKeepsRunesWhole(t *testing.T) {
	if got := SanitizeString("Zoë\u0000 Ünïcode", 3); got != "Zoë" {
		t.Fatalf("unexpected %q", got)
	}
	if got := SanitizeString("tab\there", 0); got != "tabhere" {
		t.Fatalf("expected control characters dropped, got %q", got)
	}
}

func TestHandleStripsAt(t *testing.T) {
	if got := Handle("  @stash_fan "); got != "stash_fan" {
		t.Fatalf("unexpected handle %q", got)
	}
}

func TestParsePage(t *testing.T) {
	page, err := ParsePage(httptest.NewRequest(http.MethodGet, "/?cursor=abc", nil))
	if err != nil || page.Cursor != "abc" || page.Limit != 0 {
		t.Fatalf("unexpected %+v err=%v", page, err)
	}
	page, err = ParsePage(httptest.NewRequest(http.MethodGet, "/?limit=40", nil))
	if err != nil || page.Limit != 40 {
		t.Fatalf("unexpected %+v err=%v", page, err)
	}
	long := "/?cursor=" + strings.Repeat("a", maxCursorLen+1)
	if _, err := ParsePage(httptest.NewRequest(http.MethodGet, long, nil)); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for long cursor, got %v", err)
	}
	if _, err := ParsePage(httptest.NewRequest(http.MethodGet, "/?limit=500", nil)); err == nil {
		t.Fatal("expected range error")
	}
}

type priceBody struct {
	UnitPrice string `json:"unit_price" validate:"required,decimal"`
}

func TestDecodeJSONBodyDecimalTag(t *testing.T) {
	cases := map[string]bool{
		`{"unit_price":"12.50"}`: true,
		`{"unit_price":"-1"}`:    false,
		`{"unit_price":"abc"}`:   false,
	}
	for payload, ok := range cases {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
		var body priceBody
		err := DecodeJSONBody(req, &body)
		if ok && err != nil {
			t.Fatalf("%s: unexpected error %v", payload, err)
		}
		if !ok && !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("%s: expected validation error, got %v", payload, err)
		}
	}
}

func TestDecodeJSONBodyRejectsTrailingObjects(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"unit_price":"1"}{"unit_price":"2"}`))
	var body priceBody
	if err := DecodeJSONBody(req, &body); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyRejectsOversizedBody(t *testing.T) {
	payload := `{"unit_price":"` + strings.Repeat("1", MaxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
	var body priceBody
	err := DecodeJSONBody(req, &body)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if pkgerrors.As(err).Message() != "request body too large" {
		t.Fatalf("unexpected message %q", pkgerrors.As(err).Message())
	}
}
