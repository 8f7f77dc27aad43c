package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/stashbot/pkg/enums"
	pkgerrors "github.com/angelmondragon/stashbot/pkg/errors"
	"github.com/angelmondragon/stashbot/pkg/logger"
)

// AmountPlaces is the precision of payment-currency amounts.
const AmountPlaces = 8

const defaultCacheTTL = time.Minute

// Source returns the price of one unit of currency in the store's base currency.
type Source interface {
	CurrentRate(ctx context.Context, currency enums.Currency) (decimal.Decimal, error)
}

// RequiredAmount converts a base-currency price into the payment currency.
func RequiredAmount(price, rate decimal.Decimal) (decimal.Decimal, error) {
	if !rate.IsPositive() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeDependency, "exchange rate must be positive")
	}
	if price.IsNegative() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	return price.DivRound(rate, AmountPlaces+4).Round(AmountPlaces), nil
}

type rateCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	RateKey(asset, quote string) string
}

// CachedSource memoises rates in redis so bursts of checkouts share one upstream call.
type CachedSource struct {
	next  Source
	cache rateCache
	quote string
	ttl   time.Duration
	logg  *logger.Logger
}

// NewCachedSource wraps next with a redis-backed cache.
func NewCachedSource(next Source, cache rateCache, quote string, ttl time.Duration, logg *logger.Logger) (*CachedSource, error) {
	if next == nil {
		return nil, errors.New("price source required")
	}
	if cache == nil {
		return nil, errors.New("rate cache required")
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedSource{next: next, cache: cache, quote: quote, ttl: ttl, logg: logg}, nil
}

func (c *CachedSource) CurrentRate(ctx context.Context, currency enums.Currency) (decimal.Decimal, error) {
	key := c.cache.RateKey(currency.String(), c.quote)
	raw, err := c.cache.Get(ctx, key)
	switch {
	case err == nil:
		if rate, parseErr := decimal.NewFromString(raw); parseErr == nil && rate.IsPositive() {
			return rate, nil
		}
	case !errors.Is(err, redis.Nil):
		c.warn(ctx, "rate cache read failed", err)
	}

	rate, err := c.next.CurrentRate(ctx, currency)
	if err != nil {
		return decimal.Zero, err
	}
	if setErr := c.cache.Set(ctx, key, rate.String(), c.ttl); setErr != nil {
		c.warn(ctx, "rate cache write failed", setErr)
	}
	return rate, nil
}

func (c *CachedSource) warn(ctx context.Context, msg string, err error) {
	if c.logg == nil {
		return
	}
	c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), msg)
}

// FixedSource always returns the same rate; used by the CLI and tests.
type FixedSource map[enums.Currency]decimal.Decimal

func (f FixedSource) CurrentRate(_ context.Context, currency enums.Currency) (decimal.Decimal, error) {
	rate, ok := f[currency]
	if !ok || !rate.IsPositive() {
		return decimal.Zero, pkgerrors.Newf(pkgerrors.CodeDependency, "no rate for %s", currency)
	}
	return rate, nil
}
