package blockcypher

import (
	"context"
	"encoding/json"
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
	defaultBaseURL              = "https://api.blockcypher.com/v1/ltc/main"
	responseBodyReadLimit int64 = 1024
)

// baseUnitsPerCoin converts whole coins to the smallest on-chain unit (litoshi/satoshi).
var baseUnitsPerCoin = decimal.New(1, 8)

// Client checks payments against the BlockCypher transaction API.
type Client struct {
	httpClient       *http.Client
	baseURL          string
	token            string
	minConfirmations int
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

// WithBaseURL selects the chain endpoint, e.g. .../v1/btc/main.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithToken sets the API token sent as a query parameter.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithMinConfirmations sets how many confirmations settle a payment.
func WithMinConfirmations(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.minConfirmations = n
		}
	}
}

// NewClient builds a verification client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		httpClient:       &http.Client{Timeout: 15 * time.Second},
		baseURL:          defaultBaseURL,
		minConfirmations: 1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

type transaction struct {
	Hash          string   `json:"hash"`
	Confirmations int      `json:"confirmations"`
	DoubleSpend   bool     `json:"double_spend"`
	Outputs       []output `json:"outputs"`
}

type output struct {
	Value     json.Number `json:"value"`
	Addresses []string    `json:"addresses"`
}

// CheckPayment looks up ref as a transaction hash and compares what it paid to
// address with the expected amount. Unknown hashes and transactions that pay
// nothing to address are not found; partial payments are mismatches; full
// payments below the confirmation threshold are still pending. Any transport
// or upstream failure is returned as an error.
func (c *Client) CheckPayment(ctx context.Context, ref string, expected decimal.Decimal, address string) (enums.PaymentCheck, error) {
	if c == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "verification client not configured")
	}
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}

	endpoint := fmt.Sprintf("%s/txs/%s", strings.TrimRight(c.baseURL, "/"), url.PathEscape(ref))
	if c.token != "" {
		endpoint += "?token=" + url.QueryEscape(c.token)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build transaction request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute transaction request")
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return enums.PaymentCheckNotFound, nil
	case resp.StatusCode != http.StatusOK:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "transaction request failed")
	}

	var tx transaction
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&tx); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode transaction response")
	}

	received, err := receivedBy(tx, address)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "parse transaction outputs")
	}
	if tx.DoubleSpend || received.IsZero() {
		return enums.PaymentCheckNotFound, nil
	}
	required := expected.Mul(baseUnitsPerCoin).Ceil()
	if received.LessThan(required) {
		return enums.PaymentCheckAmountMismatch, nil
	}
	if tx.Confirmations < c.minConfirmations {
		return enums.PaymentCheckPending, nil
	}
	return enums.PaymentCheckConfirmed, nil
}

func receivedBy(tx transaction, address string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, out := range tx.Outputs {
		if !containsAddress(out.Addresses, address) {
			continue
		}
		value, err := decimal.NewFromString(out.Value.String())
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(value)
	}
	return total, nil
}

func containsAddress(addresses []string, address string) bool {
	for _, candidate := range addresses {
		if strings.EqualFold(candidate, address) {
			return true
		}
	}
	return false
}
