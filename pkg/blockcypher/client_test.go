package blockcypher

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/stashbot/pkg/enums"
	pkgerrors "github.com/angelmondragon/stashbot/pkg/errors"
)

const storeAddress = "ltc1qstoreaddress000000000000"

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func clientReturning(status int, body string, opts ...Option) *Client {
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Body:       io.NopCloser(strings.NewReader(body)),
			Header:     http.Header{},
		}, nil
	})
	opts = append([]Option{WithHTTPClient(&http.Client{Transport: rt})}, opts...)
	return NewClient(opts...)
}

func TestCheckPaymentOutcomes(t *testing.T) {
	expected := decimal.RequireFromString("0.2")
	cases := []struct {
		name   string
		status int
		body   string
		want   enums.PaymentCheck
	}{
		{
			name:   "confirmed exact",
			status: http.StatusOK,
			body:   `{"hash":"abc","confirmations":3,"outputs":[{"value":20000000,"addresses":["` + storeAddress + `"]}]}`,
			want:   enums.PaymentCheckConfirmed,
		},
		{
			name:   "confirmed split outputs",
			status: http.StatusOK,
			body:   `{"hash":"abc","confirmations":1,"outputs":[{"value":10000000,"addresses":["` + storeAddress + `"]},{"value":10000000,"addresses":["` + storeAddress + `"]},{"value":5,"addresses":["other"]}]}`,
			want:   enums.PaymentCheckConfirmed,
		},
		{
			name:   "unconfirmed",
			status: http.StatusOK,
			body:   `{"hash":"abc","confirmations":0,"outputs":[{"value":20000000,"addresses":["` + storeAddress + `"]}]}`,
			want:   enums.PaymentCheckPending,
		},
		{
			name:   "underpaid",
			status: http.StatusOK,
			body:   `{"hash":"abc","confirmations":6,"outputs":[{"value":19999999,"addresses":["` + storeAddress + `"]}]}`,
			want:   enums.PaymentCheckAmountMismatch,
		},
		{
			name:   "paid elsewhere",
			status: http.StatusOK,
			body:   `{"hash":"abc","confirmations":6,"outputs":[{"value":20000000,"addresses":["someone-else"]}]}`,
			want:   enums.PaymentCheckNotFound,
		},
		{
			name:   "double spend",
			status: http.StatusOK,
			body:   `{"hash":"abc","confirmations":0,"double_spend":true,"outputs":[{"value":20000000,"addresses":["` + storeAddress + `"]}]}`,
			want:   enums.PaymentCheckNotFound,
		},
		{
			name:   "unknown hash",
			status: http.StatusNotFound,
			body:   `{"error":"Transaction abc not found."}`,
			want:   enums.PaymentCheckNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := clientReturning(tc.status, tc.body)
			got, err := client.CheckPayment(context.Background(), "abc", expected, storeAddress)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestCheckPaymentMinConfirmations(t *testing.T) {
	body := `{"hash":"abc","confirmations":2,"outputs":[{"value":20000000,"addresses":["` + storeAddress + `"]}]}`
	client := clientReturning(http.StatusOK, body, WithMinConfirmations(3))
	got, err := client.CheckPayment(context.Background(), "abc", decimal.RequireFromString("0.2"), storeAddress)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != enums.PaymentCheckPending {
		t.Fatalf("expected pending below threshold, got %s", got)
	}
}

func TestCheckPaymentUpstreamFailureIsError(t *testing.T) {
	client := clientReturning(http.StatusServiceUnavailable, "maintenance")
	_, err := client.CheckPayment(context.Background(), "abc", decimal.RequireFromString("0.2"), storeAddress)
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestCheckPaymentBuildsURLWithToken(t *testing.T) {
	var captured string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		captured = req.URL.String()
		return &http.Response{StatusCode: http.StatusNotFound, Body: io.NopCloser(strings.NewReader("{}")), Header: http.Header{}}, nil
	})
	client := NewClient(WithHTTPClient(&http.Client{Transport: rt}), WithBaseURL("http://bc.test/v1/ltc/main/"), WithToken("tok"))
	if _, err := client.CheckPayment(context.Background(), "deadbeef", decimal.NewFromInt(1), storeAddress); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured != "http://bc.test/v1/ltc/main/txs/deadbeef?token=tok" {
		t.Fatalf("unexpected url %q", captured)
	}
}
