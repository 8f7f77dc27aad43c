package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/stashbot/pkg/db"
	"github.com/angelmondragon/stashbot/pkg/db/models"
	"github.com/angelmondragon/stashbot/pkg/enums"
	pkgerrors "github.com/angelmondragon/stashbot/pkg/errors"
)

var (
	ErrNoStock          = pkgerrors.New(pkgerrors.CodeOutOfStock, "no stock available")
	ErrProductNotFound  = pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	ErrProductInactive  = pkgerrors.New(pkgerrors.CodeStateConflict, "product is not active")
	ErrDuplicateProduct = pkgerrors.New(pkgerrors.CodeConflict, "product name already exists")
	ErrItemNotFound     = pkgerrors.New(pkgerrors.CodeNotFound, "stash item not found")

	errLostRace = errors.New("stash item claimed concurrently")
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns the catalog and the stash pool.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error)
	GetActiveProduct(ctx context.Context, productID uint) (*models.Product, error)
	ListActiveProducts(ctx context.Context) ([]ProductSummary, error)
	DeleteProduct(ctx context.Context, productID uint) error
	AddItem(ctx context.Context, productID uint, payload Payload) (uint, error)
	AddItems(ctx context.Context, productID uint, payloads []Payload) (int, error)
	ImportText(ctx context.Context, productID uint, text string) (int, error)
	ReserveOne(ctx context.Context, productID uint) (*models.StashItem, error)
	Release(ctx context.Context, itemID uint) error
	ReleaseWithin(ctx context.Context, tx *gorm.DB, itemID uint) error
	Item(ctx context.Context, itemID uint) (*models.StashItem, error)
	ItemWithin(ctx context.Context, tx *gorm.DB, itemID uint) (*models.StashItem, error)
	AvailableCount(ctx context.Context, productID uint) (int64, error)
	Counts(ctx context.Context, productID uint) (Counts, error)
}

type service struct {
	repo Repository
	tx   txRunner
	now  func() time.Time
}

// NewService builds the inventory service.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, now: time.Now}, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name required")
	}
	if input.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price must not be negative")
	}
	if !input.UnitPrice.Equal(input.UnitPrice.Round(2)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price allows at most 2 decimal places").
			WithDetails(map[string]any{"unit_price": input.UnitPrice.String()})
	}
	kind := strings.TrimSpace(input.Kind)
	if kind == "" {
		kind = "digital"
	}
	product := &models.Product{
		Name:      name,
		UnitPrice: input.UnitPrice.Round(2),
		Kind:      kind,
		Status:    enums.ProductStatusActive,
	}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, ErrDuplicateProduct
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return product, nil
}

func (s *service) GetActiveProduct(ctx context.Context, productID uint) (*models.Product, error) {
	product, err := s.findProduct(ctx, s.repo, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive() {
		return nil, ErrProductInactive
	}
	return product, nil
}

func (s *service) ListActiveProducts(ctx context.Context) ([]ProductSummary, error) {
	products, err := s.repo.ListProductsByStatus(ctx, enums.ProductStatusActive)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	ids := make([]uint, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	available, err := s.repo.CountAvailableByProduct(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count stock")
	}
	out := make([]ProductSummary, 0, len(products))
	for _, p := range products {
		out = append(out, ProductSummary{Product: p, Available: available[p.ID]})
	}
	return out, nil
}

// DeleteProduct soft-deletes; stash items and order history stay intact.
func (s *service) DeleteProduct(ctx context.Context, productID uint) error {
	if err := s.repo.UpdateProductStatus(ctx, productID, enums.ProductStatusDeleted); err != nil {
		if db.IsNotFound(err) {
			return ErrProductNotFound
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	return nil
}

func (s *service) AddItem(ctx context.Context, productID uint, payload Payload) (uint, error) {
	items, err := s.insert(ctx, productID, []Payload{payload})
	if err != nil {
		return 0, err
	}
	return items[0].ID, nil
}

func (s *service) AddItems(ctx context.Context, productID uint, payloads []Payload) (int, error) {
	if len(payloads) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "at least one stash item required")
	}
	items, err := s.insert(ctx, productID, payloads)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// ImportText adds one text item per non-blank line.
func (s *service) ImportText(ctx context.Context, productID uint, text string) (int, error) {
	return s.AddItems(ctx, productID, SplitTextPayloads(text))
}

// SplitTextPayloads turns a bulk paste into text payloads, skipping blank lines.
func SplitTextPayloads(text string) []Payload {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	payloads := make([]Payload, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		payloads = append(payloads, Payload{Kind: enums.PayloadKindText, Content: line})
	}
	return payloads
}

func (s *service) insert(ctx context.Context, productID uint, payloads []Payload) ([]models.StashItem, error) {
	items := make([]models.StashItem, 0, len(payloads))
	for i, payload := range payloads {
		item, err := toItem(productID, payload)
		if err != nil {
			return nil, pkgerrors.Wrapf(pkgerrors.CodeValidation, err, "stash item %d", i+1)
		}
		items = append(items, item)
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := s.findProduct(ctx, repo, productID); err != nil {
			return err
		}
		if err := repo.InsertItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert stash items")
		}
		if err := repo.RefreshHasStock(ctx, productID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh stock flag")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func toItem(productID uint, payload Payload) (models.StashItem, error) {
	kind := payload.Kind
	if kind == "" {
		kind = enums.PayloadKindText
	}
	if !kind.IsValid() {
		return models.StashItem{}, fmt.Errorf("invalid payload kind %q", kind)
	}
	item := models.StashItem{
		ProductID:   productID,
		Content:     strings.TrimSpace(payload.Content),
		PayloadKind: kind,
	}
	if kind.HasFile() {
		ref := strings.TrimSpace(payload.FileRef)
		if ref == "" {
			return models.StashItem{}, fmt.Errorf("%s payload requires a file reference", kind)
		}
		item.FileRef = &ref
	} else if item.Content == "" {
		return models.StashItem{}, errors.New("text payload requires content")
	}
	return item, nil
}

// ReserveOne claims the oldest available item of the product. Each attempt is a
// short transaction whose claim is conditional on the row still being available,
// so concurrent callers can never receive the same item. A lost claim means a
// rival took an item, so attempts continue until one wins or the pool is empty.
func (s *service) ReserveOne(ctx context.Context, productID uint) (*models.StashItem, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var claimed *models.StashItem
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			product, err := s.findProduct(ctx, repo, productID)
			if err != nil {
				return err
			}
			if !product.IsActive() {
				return ErrProductInactive
			}

			candidate, err := repo.OldestAvailableItem(ctx, productID)
			if err != nil {
				if db.IsNotFound(err) {
					if err := repo.RefreshHasStock(ctx, productID); err != nil {
						return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh stock flag")
					}
					return nil
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "select stash item")
			}

			now := s.now().UTC()
			ok, err := repo.ClaimItem(ctx, candidate.ID, now)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim stash item")
			}
			if !ok {
				return errLostRace
			}
			if err := repo.RefreshHasStock(ctx, productID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh stock flag")
			}
			candidate.Reserved = true
			candidate.ReservedAt = &now
			claimed = candidate
			return nil
		})
		if errors.Is(err, errLostRace) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if claimed == nil {
			return nil, ErrNoStock
		}
		return claimed, nil
	}
}

func (s *service) Release(ctx context.Context, itemID uint) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.ReleaseWithin(ctx, tx, itemID)
	})
}

// ReleaseWithin returns the item to the pool inside the caller's transaction.
// Releasing an already available item is a no-op.
func (s *service) ReleaseWithin(ctx context.Context, tx *gorm.DB, itemID uint) error {
	repo := s.repo.WithTx(tx)
	item, err := repo.FindItem(ctx, itemID)
	if err != nil {
		if db.IsNotFound(err) {
			return ErrItemNotFound
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stash item")
	}
	released, err := repo.UnclaimItem(ctx, itemID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release stash item")
	}
	if !released {
		return nil
	}
	if err := repo.RefreshHasStock(ctx, item.ProductID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh stock flag")
	}
	return nil
}

func (s *service) Item(ctx context.Context, itemID uint) (*models.StashItem, error) {
	return s.ItemWithin(ctx, nil, itemID)
}

// ItemWithin reads the item through tx; a nil tx reads outside any transaction.
func (s *service) ItemWithin(ctx context.Context, tx *gorm.DB, itemID uint) (*models.StashItem, error) {
	item, err := s.repo.WithTx(tx).FindItem(ctx, itemID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrItemNotFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stash item")
	}
	return item, nil
}

func (s *service) AvailableCount(ctx context.Context, productID uint) (int64, error) {
	counts, err := s.Counts(ctx, productID)
	if err != nil {
		return 0, err
	}
	return counts.Available, nil
}

func (s *service) Counts(ctx context.Context, productID uint) (Counts, error) {
	if _, err := s.findProduct(ctx, s.repo, productID); err != nil {
		return Counts{}, err
	}
	counts, err := s.repo.CountItems(ctx, productID)
	if err != nil {
		return Counts{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count stash items")
	}
	return counts, nil
}

func (s *service) findProduct(ctx context.Context, repo Repository, productID uint) (*models.Product, error) {
	if productID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := repo.FindProduct(ctx, productID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrProductNotFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

// ParsePrice parses a decimal price string such as "10.00".
func ParsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price")
	}
	if price.IsNegative() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	return price, nil
}
