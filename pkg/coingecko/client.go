package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/stashbot/pkg/enums"
	pkgerrors "github.com/angelmondragon/stashbot/pkg/errors"
)

const (
	defaultBaseURL              = "https://api.coingecko.com/api/v3"
	defaultQuote                = "usd"
	responseBodyReadLimit int64 = 1024
)

// ErrRateUnavailable is returned when no positive rate could be obtained.
var ErrRateUnavailable = pkgerrors.New(pkgerrors.CodeDependency, "exchange rate unavailable")

var defaultAssets = map[enums.Currency]string{
	enums.CurrencyLTC:  "litecoin",
	enums.CurrencyBTC:  "bitcoin",
	enums.CurrencyDOGE: "dogecoin",
	enums.CurrencyDASH: "dash",
}

// Client reads spot prices from the CoinGecko simple price API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	quote      string
	assets     map[enums.Currency]string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithAPIKey sets the demo/pro API key header.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = strings.TrimSpace(key)
	}
}

// WithQuote sets the fiat currency prices are quoted in.
func WithQuote(quote string) Option {
	return func(c *Client) {
		trimmed := strings.ToLower(strings.TrimSpace(quote))
		if trimmed != "" {
			c.quote = trimmed
		}
	}
}

// WithAsset maps a currency to a CoinGecko asset id.
func WithAsset(currency enums.Currency, assetID string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(assetID)
		if trimmed != "" {
			c.assets[currency] = trimmed
		}
	}
}

// NewClient builds a price client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    defaultBaseURL,
		quote:      defaultQuote,
		assets:     make(map[enums.Currency]string, len(defaultAssets)),
	}
	for currency, id := range defaultAssets {
		client.assets[currency] = id
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

// Quote returns the fiat currency rates are expressed in.
func (c *Client) Quote() string {
	return c.quote
}

// CurrentRate returns the price of one unit of currency in the quote currency.
func (c *Client) CurrentRate(ctx context.Context, currency enums.Currency) (decimal.Decimal, error) {
	if c == nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeDependency, "price client not configured")
	}
	assetID, ok := c.assets[currency]
	if !ok {
		return decimal.Zero, pkgerrors.Newf(pkgerrors.CodeValidation, "no price asset for %s", currency)
	}

	q := url.Values{}
	q.Set("ids", assetID)
	q.Set("vs_currencies", c.quote)
	endpoint := fmt.Sprintf("%s/simple/price?%s", strings.TrimRight(c.baseURL, "/"), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build price request")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute price request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "price request failed")
	}

	var payload map[string]map[string]json.Number
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode price response")
	}

	raw, ok := payload[assetID][c.quote]
	if !ok {
		return decimal.Zero, ErrRateUnavailable
	}
	rate, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "parse price")
	}
	if !rate.IsPositive() {
		return decimal.Zero, ErrRateUnavailable
	}
	return rate, nil
}

// IsRateUnavailable reports whether err means no usable rate was returned.
func IsRateUnavailable(err error) bool {
	return errors.Is(err, ErrRateUnavailable)
}
