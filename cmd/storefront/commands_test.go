package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"storefront/pkg/storefront"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCartCommands(t *testing.T) {
	cartPath := filepath.Join(t.TempDir(), "cart.db")

	_, err := run(t, "--cart", cartPath, "cart", "add", "price_A", "2000", "--product", "Followers")
	require.NoError(t, err)

	out, err := run(t, "--cart", cartPath, "cart", "add", "price_B", "1000", "-q", "2")
	require.NoError(t, err)

	var cart storefront.Cart
	require.NoError(t, json.Unmarshal([]byte(out), &cart))
	assert.Len(t, cart.Items, 2)
	assert.Equal(t, int64(4000), cart.Totals.Subtotal)
	assert.Equal(t, int64(1200), cart.Totals.BundleDiscount)
	assert.Equal(t, int64(2800), cart.Totals.Total)

	_, err = run(t, "--cart", cartPath, "cart", "clear")
	require.NoError(t, err)

	out, err = run(t, "--cart", cartPath, "cart", "show")
	require.NoError(t, err)
	cart = storefront.Cart{}
	require.NoError(t, json.Unmarshal([]byte(out), &cart))
	assert.Empty(t, cart.Items)
}

func TestCartAddRejectsBadPrice(t *testing.T) {
	cartPath := filepath.Join(t.TempDir(), "cart.db")

	_, err := run(t, "--cart", cartPath, "cart", "add", "price_A", "12.50")
	assert.Error(t, err)
}

func TestCheckoutRequiresEmail(t *testing.T) {
	cartPath := filepath.Join(t.TempDir(), "cart.db")

	_, err := run(t, "--cart", cartPath, "checkout")
	assert.EqualError(t, err, "--email is required")
}
