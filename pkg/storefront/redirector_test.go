package storefront

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrders struct {
	err    error
	drafts []OrderDraft
}

func (f *fakeOrders) CreateOrder(ctx context.Context, draft OrderDraft) (*Order, error) {
	f.drafts = append(f.drafts, draft)
	if f.err != nil {
		return nil, f.err
	}
	return &Order{ID: "order-1", Email: draft.Email, Items: draft.Items, TotalCost: *draft.TotalCost,
		Status: "pending", PaymentStatus: PaymentUnpaid}, nil
}

type fakeSessions struct {
	err      error
	requests []CheckoutRequest
}

func (f *fakeSessions) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &CheckoutSession{URL: "https://checkout.stripe.com/c/pay/cs_test_1", SessionID: "cs_test_1"}, nil
}

type recordingNavigator struct {
	urls []string
}

func (n *recordingNavigator) Navigate(url string) error {
	n.urls = append(n.urls, url)
	return nil
}

func twoItemDraft() CheckoutDraft {
	return CheckoutDraft{
		Email: "buyer@example.com",
		Items: []CartItem{
			{VariantID: "price_A", ProductTitle: "Followers", PriceInCents: 2000, Quantity: 1},
			{VariantID: "price_B", ProductTitle: "Likes", PriceInCents: 1005, Quantity: 1},
		},
	}
}

func TestRedirector_Checkout(t *testing.T) {
	orders := &fakeOrders{}
	sessions := &fakeSessions{}
	nav := &recordingNavigator{}
	r := NewRedirector(orders, sessions, nav, "https://shop.example.com/")

	session, err := r.Checkout(context.Background(), twoItemDraft())
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", session.SessionID)

	require.Len(t, orders.drafts, 1)
	draft := orders.drafts[0]
	assert.Equal(t, "buyer@example.com", draft.Name)
	assert.Equal(t, "Store", draft.Platform)
	assert.Equal(t, int64(902), draft.DiscountCents)
	require.NotNil(t, draft.TotalCost)
	assert.Equal(t, int64(3005-902), *draft.TotalCost)

	require.Len(t, sessions.requests, 1)
	req := sessions.requests[0]
	assert.Equal(t, "order-1", req.OrderID)
	assert.Equal(t, []CheckoutItem{{VariantID: "price_A", Quantity: 1}, {VariantID: "price_B", Quantity: 1}}, req.Items)
	assert.Equal(t, int64(902), req.DiscountAmountCents)
	assert.Equal(t, "https://shop.example.com/success?order_id=order-1", req.SuccessURL)
	assert.Equal(t, "https://shop.example.com/dashboard?tab=orders&status=cancelled", req.CancelURL)

	assert.Equal(t, []string{"https://checkout.stripe.com/c/pay/cs_test_1"}, nav.urls)
}

func TestRedirector_OrderInsertFailureCreatesNoSession(t *testing.T) {
	orders := &fakeOrders{err: errors.New("insert failed")}
	sessions := &fakeSessions{}
	nav := &recordingNavigator{}
	r := NewRedirector(orders, sessions, nav, "https://shop.example.com")

	_, err := r.Checkout(context.Background(), twoItemDraft())
	require.Error(t, err)

	var checkoutErr *CheckoutError
	require.ErrorAs(t, err, &checkoutErr)
	assert.Equal(t, "order", checkoutErr.Stage)
	assert.Empty(t, checkoutErr.OrderID)
	assert.Empty(t, sessions.requests)
	assert.Empty(t, nav.urls)
}

func TestRedirector_SessionFailureKeepsOrder(t *testing.T) {
	providerErr := &APIError{StatusCode: 500, Message: "No such price: 'price_B'"}
	orders := &fakeOrders{}
	sessions := &fakeSessions{err: providerErr}
	nav := &recordingNavigator{}
	r := NewRedirector(orders, sessions, nav, "https://shop.example.com")

	_, err := r.Checkout(context.Background(), twoItemDraft())

	var checkoutErr *CheckoutError
	require.ErrorAs(t, err, &checkoutErr)
	assert.Equal(t, "session", checkoutErr.Stage)
	assert.Equal(t, "order-1", checkoutErr.OrderID)
	assert.ErrorIs(t, err, providerErr)
	assert.Empty(t, nav.urls)
}

func TestRedirector_RejectsEmptyOrInvalidCart(t *testing.T) {
	orders := &fakeOrders{}
	r := NewRedirector(orders, &fakeSessions{}, &recordingNavigator{}, "https://shop.example.com")

	_, err := r.Checkout(context.Background(), CheckoutDraft{Email: "buyer@example.com"})
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = r.Checkout(context.Background(), CheckoutDraft{
		Email: "buyer@example.com",
		Items: []CartItem{{VariantID: "price_A", PriceInCents: 2000, Quantity: 0}},
	})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Empty(t, orders.drafts)
}
