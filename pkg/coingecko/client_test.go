package coingecko

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

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func respond(status int, body string) roundTripFunc {
	return func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Body:       io.NopCloser(strings.NewReader(body)),
			Header:     http.Header{},
		}, nil
	}
}

func TestCurrentRateParsesExactDecimal(t *testing.T) {
	var capturedURL, capturedKey string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedKey = req.Header.Get("x-cg-demo-api-key")
		return respond(http.StatusOK, `{"litecoin":{"usd":84.123456789}}`)(req)
	})

	client := NewClient(WithBaseURL("http://cg.test/api/v3/"), WithHTTPClient(&http.Client{Transport: rt}), WithAPIKey("demo"))
	rate, err := client.CurrentRate(context.Background(), enums.CurrencyLTC)
	if err != nil {
		t.Fatalf("current rate: %v", err)
	}
	if !rate.Equal(decimal.RequireFromString("84.123456789")) {
		t.Fatalf("unexpected rate %s", rate)
	}
	if capturedURL != "http://cg.test/api/v3/simple/price?ids=litecoin&vs_currencies=usd" {
		t.Fatalf("unexpected url %q", capturedURL)
	}
	if capturedKey != "demo" {
		t.Fatalf("expected api key header, got %q", capturedKey)
	}
}

func TestCurrentRateMissingAssetIsUnavailable(t *testing.T) {
	client := NewClient(WithHTTPClient(&http.Client{Transport: respond(http.StatusOK, `{}`)}))
	_, err := client.CurrentRate(context.Background(), enums.CurrencyLTC)
	if !IsRateUnavailable(err) {
		t.Fatalf("expected rate unavailable, got %v", err)
	}
}

func TestCurrentRateZeroIsUnavailable(t *testing.T) {
	client := NewClient(WithHTTPClient(&http.Client{Transport: respond(http.StatusOK, `{"litecoin":{"usd":0}}`)}))
	_, err := client.CurrentRate(context.Background(), enums.CurrencyLTC)
	if !IsRateUnavailable(err) {
		t.Fatalf("expected rate unavailable, got %v", err)
	}
}

func TestCurrentRateHTTPErrorIsDependency(t *testing.T) {
	client := NewClient(WithHTTPClient(&http.Client{Transport: respond(http.StatusTooManyRequests, `rate limited`)}))
	_, err := client.CurrentRate(context.Background(), enums.CurrencyLTC)
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestCurrentRateCustomAssetAndQuote(t *testing.T) {
	var capturedURL string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		return respond(http.StatusOK, `{"litecoin-test":{"eur":50}}`)(req)
	})
	client := NewClient(
		WithHTTPClient(&http.Client{Transport: rt}),
		WithBaseURL("http://cg.test"),
		WithAsset(enums.CurrencyLTC, "litecoin-test"),
		WithQuote("EUR"),
	)
	rate, err := client.CurrentRate(context.Background(), enums.CurrencyLTC)
	if err != nil {
		t.Fatalf("current rate: %v", err)
	}
	if !rate.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("unexpected rate %s", rate)
	}
	if !strings.Contains(capturedURL, "ids=litecoin-test") || !strings.Contains(capturedURL, "vs_currencies=eur") {
		t.Fatalf("unexpected url %q", capturedURL)
	}
	if client.Quote() != "eur" {
		t.Fatalf("unexpected quote %q", client.Quote())
	}
}
