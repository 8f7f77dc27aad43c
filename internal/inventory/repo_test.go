package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/stashbot/pkg/db/models"
	"github.com/angelmondragon/stashbot/pkg/enums"
)

func TestRepositoryClaimIsConditional(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	repo := NewRepository(conn)

	product := &models.Product{Name: "vpn-key", UnitPrice: decimal.NewFromInt(5), Status: enums.ProductStatusActive}
	require.NoError(t, repo.CreateProduct(ctx, product))
	require.NoError(t, repo.InsertItems(ctx, []models.StashItem{
		{ProductID: product.ID, Content: "first", PayloadKind: enums.PayloadKindText},
		{ProductID: product.ID, Content: "second", PayloadKind: enums.PayloadKindText},
	}))

	oldest, err := repo.OldestAvailableItem(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", oldest.Content)

	ok, err := repo.ClaimItem(ctx, oldest.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ClaimItem(ctx, oldest.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, ok, "second claim of the same item must not succeed")

	next, err := repo.OldestAvailableItem(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "second", next.Content)

	released, err := repo.UnclaimItem(ctx, oldest.ID)
	require.NoError(t, err)
	assert.True(t, released)

	released, err = repo.UnclaimItem(ctx, oldest.ID)
	require.NoError(t, err)
	assert.False(t, released)
}

func TestRepositoryRefreshHasStock(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	repo := NewRepository(conn)

	product := &models.Product{Name: "ebook", UnitPrice: decimal.NewFromInt(3), Status: enums.ProductStatusActive}
	require.NoError(t, repo.CreateProduct(ctx, product))
	require.NoError(t, repo.InsertItems(ctx, []models.StashItem{{ProductID: product.ID, Content: "only", PayloadKind: enums.PayloadKindText}}))

	require.NoError(t, repo.RefreshHasStock(ctx, product.ID))
	loaded, err := repo.FindProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, loaded.HasStock)

	item, err := repo.OldestAvailableItem(ctx, product.ID)
	require.NoError(t, err)
	_, err = repo.ClaimItem(ctx, item.ID, time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.RefreshHasStock(ctx, product.ID))

	loaded, err = repo.FindProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.False(t, loaded.HasStock)

	counts, err := repo.CountItems(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, Counts{Available: 0, Reserved: 1, Total: 1}, counts)
}

func TestRepositoryCountAvailableByProduct(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	repo := NewRepository(conn)

	a := &models.Product{Name: "a", UnitPrice: decimal.NewFromInt(1), Status: enums.ProductStatusActive}
	b := &models.Product{Name: "b", UnitPrice: decimal.NewFromInt(1), Status: enums.ProductStatusActive}
	require.NoError(t, repo.CreateProduct(ctx, a))
	require.NoError(t, repo.CreateProduct(ctx, b))
	require.NoError(t, repo.InsertItems(ctx, []models.StashItem{
		{ProductID: a.ID, Content: "1", PayloadKind: enums.PayloadKindText},
		{ProductID: a.ID, Content: "2", PayloadKind: enums.PayloadKindText},
		{ProductID: b.ID, Content: "3", PayloadKind: enums.PayloadKindText, Reserved: true},
	}))

	counts, err := repo.CountAvailableByProduct(ctx, []uint{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[a.ID])
	assert.Equal(t, int64(0), counts[b.ID])

	empty, err := repo.CountAvailableByProduct(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
