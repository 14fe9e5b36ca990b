package storefront

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBundleDiscount(t *testing.T) {
	tests := []struct {
		name     string
		subtotal int64
		units    int64
		want     int64
	}{
		{"single unit", 2000, 1, 0},
		{"two units", 4000, 2, 1200},
		{"half cent rounds up", 1005, 2, 302},
		{"below half rounds down", 1001, 3, 300},
		{"empty", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BundleDiscount(tt.subtotal, tt.units))
		})
	}
}

func TestComputeTotals(t *testing.T) {
	totals := ComputeTotals([]CartItem{
		{VariantID: "price_A", PriceInCents: 2000, Quantity: 1},
		{VariantID: "price_B", PriceInCents: 999, Quantity: 2},
	})

	assert.Equal(t, int64(3), totals.Units)
	assert.Equal(t, int64(3998), totals.Subtotal)
	assert.Equal(t, int64(1199), totals.BundleDiscount)
	assert.Equal(t, int64(2799), totals.Total)
}

func TestCartStore_AddMergesSameVariant(t *testing.T) {
	s := NewCartStore()

	require.NoError(t, s.Add(CartItem{VariantID: "price_A", PriceInCents: 2000, Quantity: 1}))
	require.NoError(t, s.Add(CartItem{VariantID: "price_A", PriceInCents: 2000, Quantity: 2}))
	require.NoError(t, s.Add(CartItem{VariantID: "price_B", PriceInCents: 500, Quantity: 1}))

	cart := s.Snapshot()
	require.Len(t, cart.Items, 2)
	assert.Equal(t, int64(3), cart.Items[0].Quantity)
	assert.Equal(t, int64(6500), cart.Totals.Subtotal)

	assert.ErrorIs(t, s.Add(CartItem{VariantID: "price_C", Quantity: 0}), ErrInvalidQuantity)
}

func TestCartStore_SetQuantityAndRemove(t *testing.T) {
	s := NewCartStore()
	require.NoError(t, s.Add(CartItem{VariantID: "price_A", PriceInCents: 2000, Quantity: 1}))
	require.NoError(t, s.Add(CartItem{VariantID: "price_B", PriceInCents: 500, Quantity: 1}))

	require.NoError(t, s.SetQuantity("price_A", 4))
	assert.Equal(t, int64(4), s.Snapshot().Items[0].Quantity)

	require.NoError(t, s.Remove("price_A"))
	cart := s.Snapshot()
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "price_B", cart.Items[0].VariantID)

	assert.ErrorIs(t, s.SetQuantity("price_B", -1), ErrInvalidQuantity)
}

func TestCartStore_Subscribe(t *testing.T) {
	s := NewCartStore()

	var seen []Cart
	unsubscribe := s.Subscribe(func(c Cart) { seen = append(seen, c) })

	require.NoError(t, s.Add(CartItem{VariantID: "price_A", PriceInCents: 2000, Quantity: 2}))
	require.Len(t, seen, 1)
	assert.Equal(t, int64(2800), seen[0].Totals.Total)

	unsubscribe()
	unsubscribe()
	require.NoError(t, s.Clear())
	assert.Len(t, seen, 1)
	assert.Empty(t, s.Snapshot().Items)
}

func TestCartStore_SnapshotIsCopy(t *testing.T) {
	s := NewCartStore()
	require.NoError(t, s.Add(CartItem{VariantID: "price_A", PriceInCents: 2000, Quantity: 1}))

	cart := s.Snapshot()
	cart.Items[0].Quantity = 99

	assert.Equal(t, int64(1), s.Snapshot().Items[0].Quantity)
}

func TestOpenCartStore_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cart.db")

	s, err := OpenCartStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Add(CartItem{VariantID: "price_A", ProductTitle: "Followers", PriceInCents: 1500, Quantity: 2}))
	require.NoError(t, s.Close())

	reopened, err := OpenCartStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	cart := reopened.Snapshot()
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "Followers", cart.Items[0].ProductTitle)
	assert.Equal(t, int64(2100), cart.Totals.Total)

	require.NoError(t, reopened.Clear())
	assert.Empty(t, reopened.Snapshot().Items)
}
