package wallets

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/stashbot/pkg/db"
	"github.com/angelmondragon/stashbot/pkg/db/models"
	"github.com/angelmondragon/stashbot/pkg/enums"
	pkgerrors "github.com/angelmondragon/stashbot/pkg/errors"
)

var ErrWalletNotConfigured = pkgerrors.New(pkgerrors.CodeStateConflict, "no wallet configured for currency")

// Service manages the store's receiving addresses.
type Service interface {
	SetWallet(ctx context.Context, currency enums.Currency, address string) (*models.Wallet, error)
	GetWallet(ctx context.Context, currency enums.Currency) (*models.Wallet, error)
	ListWallets(ctx context.Context) ([]models.Wallet, error)
}

type service struct {
	db  *gorm.DB
	now func() time.Time
}

// NewService builds a wallet service over the wallets table.
func NewService(conn *gorm.DB) (Service, error) {
	if conn == nil {
		return nil, errors.New("db is required")
	}
	return &service{db: conn, now: time.Now}, nil
}

// SetWallet creates or replaces the address for currency.
func (s *service) SetWallet(ctx context.Context, currency enums.Currency, address string) (*models.Wallet, error) {
	if !currency.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unsupported currency %q", currency)
	}
	address = strings.TrimSpace(address)
	if err := validateAddress(address); err != nil {
		return nil, err
	}
	wallet := &models.Wallet{Currency: currency, Address: address, UpdatedAt: s.now().UTC()}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "currency"}},
			DoUpdates: clause.AssignmentColumns([]string{"address", "updated_at"}),
		}).
		Create(wallet).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save wallet")
	}
	return wallet, nil
}

func (s *service) GetWallet(ctx context.Context, currency enums.Currency) (*models.Wallet, error) {
	var wallet models.Wallet
	err := s.db.WithContext(ctx).Where("currency = ?", currency).First(&wallet).Error
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrWalletNotConfigured
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	return &wallet, nil
}

func (s *service) ListWallets(ctx context.Context) ([]models.Wallet, error) {
	var out []models.Wallet
	if err := s.db.WithContext(ctx).Order("currency ASC").Find(&out).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallets")
	}
	return out, nil
}

func validateAddress(address string) error {
	switch {
	case address == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "wallet address required")
	case len(address) < 20 || len(address) > 128:
		return pkgerrors.New(pkgerrors.CodeValidation, "wallet address length out of range")
	case strings.ContainsAny(address, " \t\n:?"):
		return pkgerrors.New(pkgerrors.CodeValidation, "wallet address contains invalid characters")
	}
	return nil
}
