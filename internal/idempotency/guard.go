package idempotency

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/stashbot/pkg/db/models"
	pkgerrors "github.com/angelmondragon/stashbot/pkg/errors"
)

// MaxRefLength bounds accepted payment references.
const MaxRefLength = 128

var ErrAlreadyUsed = pkgerrors.New(pkgerrors.CodeDuplicateRef, "payment reference already used")

// Guard remembers every payment reference that settled an order.
type Guard struct {
	db *gorm.DB
}

// NewGuard builds a guard over the used_payment_refs table.
func NewGuard(db *gorm.DB) (*Guard, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	return &Guard{db: db}, nil
}

// IsUsed reports whether ref has already been consumed.
func (g *Guard) IsUsed(ctx context.Context, ref string) (bool, error) {
	return g.isUsed(ctx, g.db, ref)
}

// IsUsedWithin is IsUsed inside the caller's transaction.
func (g *Guard) IsUsedWithin(ctx context.Context, tx *gorm.DB, ref string) (bool, error) {
	return g.isUsed(ctx, tx, ref)
}

func (g *Guard) isUsed(ctx context.Context, conn *gorm.DB, ref string) (bool, error) {
	var count int64
	err := conn.WithContext(ctx).
		Model(&models.UsedPaymentRef{}).
		Where("ref = ?", ref).
		Count(&count).Error
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check payment ref")
	}
	return count > 0, nil
}

// MarkUsed records ref; exactly one concurrent caller succeeds, the rest get ErrAlreadyUsed.
func (g *Guard) MarkUsed(ctx context.Context, ref string) error {
	return g.MarkUsedWithin(ctx, g.db, ref)
}

// MarkUsedWithin is MarkUsed inside the caller's transaction.
func (g *Guard) MarkUsedWithin(ctx context.Context, tx *gorm.DB, ref string) error {
	if ref == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}
	res := tx.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UsedPaymentRef{Ref: ref})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "mark payment ref used")
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyUsed
	}
	return nil
}

// NormalizeRef trims a buyer-supplied reference and folds hex transaction ids to
// lower case so case variants of one hash cannot be replayed.
func NormalizeRef(raw string) (string, error) {
	ref := strings.TrimSpace(raw)
	if ref == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}
	if len(ref) > MaxRefLength {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "payment reference too long")
	}
	if strings.ContainsAny(ref, " \t\n") {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "payment reference must not contain whitespace")
	}
	if isHex(ref) {
		ref = strings.ToLower(ref)
	}
	return ref, nil
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
