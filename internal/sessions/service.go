package sessions

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/stashbot/internal/inventory"
	"github.com/angelmondragon/stashbot/internal/pricing"
	"github.com/angelmondragon/stashbot/pkg/db/models"
	"github.com/angelmondragon/stashbot/pkg/enums"
	pkgerrors "github.com/angelmondragon/stashbot/pkg/errors"
)

const DefaultTTL = 30 * time.Minute

type catalog interface {
	GetActiveProduct(ctx context.Context, productID uint) (*models.Product, error)
	AvailableCount(ctx context.Context, productID uint) (int64, error)
}

type walletLookup interface {
	GetWallet(ctx context.Context, currency enums.Currency) (*models.Wallet, error)
}

// Service manages the checkout session a buyer holds between picking a product and paying.
type Service interface {
	Start(ctx context.Context, buyerID int64, productID uint) (*Session, error)
	Get(ctx context.Context, buyerID int64) (*Session, error)
	Cancel(ctx context.Context, buyerID int64) error
}

// Options configures session pricing and lifetime.
type Options struct {
	Currency  enums.Currency
	URIScheme string
	TTL       time.Duration
}

type service struct {
	store   Store
	catalog catalog
	wallets walletLookup
	rates   pricing.Source
	opts    Options
	now     func() time.Time
}

func NewService(store Store, catalog catalog, wallets walletLookup, rates pricing.Source, opts Options) (Service, error) {
	if store == nil {
		return nil, errors.New("session store required")
	}
	if catalog == nil {
		return nil, errors.New("catalog required")
	}
	if wallets == nil {
		return nil, errors.New("wallet lookup required")
	}
	if rates == nil {
		return nil, errors.New("price source required")
	}
	if !opts.Currency.IsValid() {
		return nil, fmt.Errorf("invalid store currency %q", opts.Currency)
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if strings.TrimSpace(opts.URIScheme) == "" {
		opts.URIScheme = strings.ToLower(opts.Currency.String())
	}
	return &service{
		store:   store,
		catalog: catalog,
		wallets: wallets,
		rates:   rates,
		opts:    opts,
		now:     time.Now,
	}, nil
}

func (s *service) Start(ctx context.Context, buyerID int64, productID uint) (*Session, error) {
	if buyerID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	product, err := s.catalog.GetActiveProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	available, err := s.catalog.AvailableCount(ctx, productID)
	if err != nil {
		return nil, err
	}
	if available == 0 {
		return nil, inventory.ErrNoStock
	}
	wallet, err := s.wallets.GetWallet(ctx, s.opts.Currency)
	if err != nil {
		return nil, err
	}
	rate, err := s.rates.CurrentRate(ctx, s.opts.Currency)
	if err != nil {
		return nil, err
	}
	amount, err := pricing.RequiredAmount(product.UnitPrice, rate)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	session := Session{
		BuyerID:            buyerID,
		ProductID:          product.ID,
		ProductName:        product.Name,
		UnitPrice:          product.UnitPrice,
		Amount:             amount,
		Currency:           s.opts.Currency,
		DestinationAddress: wallet.Address,
		PaymentURI:         PaymentURI(s.opts.URIScheme, wallet.Address, amount.String()),
		CreatedAt:          now,
		ExpiresAt:          now.Add(s.opts.TTL),
	}
	if err := s.store.Put(ctx, session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *service) Get(ctx context.Context, buyerID int64) (*Session, error) {
	return s.store.Get(ctx, buyerID)
}

func (s *service) Cancel(ctx context.Context, buyerID int64) error {
	return s.store.Delete(ctx, buyerID)
}

// PaymentURI renders a BIP21-style payment link.
func PaymentURI(scheme, address, amount string) string {
	q := url.Values{}
	q.Set("amount", amount)
	return scheme + ":" + address + "?" + q.Encode()
}
