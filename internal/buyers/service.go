package buyers

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/stashbot/pkg/db"
	"github.com/angelmondragon/stashbot/pkg/db/models"
	pkgerrors "github.com/angelmondragon/stashbot/pkg/errors"
)

var ErrBuyerNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "buyer not found")

// Profile is the chat identity observed on each interaction.
type Profile struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

// Service keeps buyer accounts and their purchase counters.
type Service interface {
	Touch(ctx context.Context, profile Profile) (*models.BuyerAccount, error)
	Account(ctx context.Context, buyerID int64) (*models.BuyerAccount, error)
	CreditPurchaseWithin(ctx context.Context, tx *gorm.DB, buyerID int64, amount decimal.Decimal) error
}

type service struct {
	db *gorm.DB
}

// NewService builds the buyer account service.
func NewService(conn *gorm.DB) (Service, error) {
	if conn == nil {
		return nil, errors.New("db is required")
	}
	return &service{db: conn}, nil
}

// Touch upserts the profile fields without ever resetting counters or joined_at.
func (s *service) Touch(ctx context.Context, profile Profile) (*models.BuyerAccount, error) {
	if profile.ID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	account := &models.BuyerAccount{
		ID:        profile.ID,
		Username:  strings.TrimPrefix(strings.TrimSpace(profile.Username), "@"),
		FirstName: strings.TrimSpace(profile.FirstName),
		LastName:  strings.TrimSpace(profile.LastName),
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"username", "first_name", "last_name"}),
		}).
		Omit("PurchaseCount", "TotalSpent").
		Create(account).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert buyer")
	}
	return s.Account(ctx, profile.ID)
}

func (s *service) Account(ctx context.Context, buyerID int64) (*models.BuyerAccount, error) {
	var account models.BuyerAccount
	if err := s.db.WithContext(ctx).Where("id = ?", buyerID).First(&account).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, ErrBuyerNotFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load buyer")
	}
	return &account, nil
}

// CreditPurchaseWithin applies the single per-order increment inside the caller's transaction.
func (s *service) CreditPurchaseWithin(ctx context.Context, tx *gorm.DB, buyerID int64, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "credit amount must not be negative")
	}
	conn := tx
	if conn == nil {
		conn = s.db
	}
	ensure := conn.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit("PurchaseCount", "TotalSpent").
		Create(&models.BuyerAccount{ID: buyerID})
	if ensure.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, ensure.Error, "ensure buyer")
	}
	res := conn.WithContext(ctx).
		Model(&models.BuyerAccount{}).
		Where("id = ?", buyerID).
		Updates(map[string]any{
			"purchase_count": gorm.Expr("purchase_count + ?", 1),
			"total_spent":    gorm.Expr("total_spent + ?", amount),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "credit buyer")
	}
	if res.RowsAffected == 0 {
		return ErrBuyerNotFound
	}
	return nil
}
