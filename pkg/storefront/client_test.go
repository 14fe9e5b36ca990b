package storefront

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("POST /orders", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		var draft OrderDraft
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&draft))
		if len(draft.Items) == 0 {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"code": 20002, "message": "at least one item is required"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"code":    0,
			"message": "success",
			"data": Order{ID: "order-1", Email: draft.Email, Items: draft.Items, TotalCost: *draft.TotalCost,
				Status: "pending", PaymentStatus: PaymentUnpaid},
		})
	})

	mux.HandleFunc("GET /orders/{id}/payment", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "order-1" {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"code": 20001, "message": "order not found"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"code": 0,
			"data": PaymentSnapshot{ID: "order-1", Status: "processing", PaymentStatus: PaymentPaid},
		})
	})

	mux.HandleFunc("POST /stripe-checkout", func(w http.ResponseWriter, r *http.Request) {
		var req CheckoutRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.OrderID == "" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Missing required fields"})
			return
		}
		_ = json.NewEncoder(w).Encode(CheckoutSession{URL: "https://checkout.stripe.com/c/pay/cs_1", SessionID: "cs_1"})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_CreateOrderRoundTripsTotal(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(srv.URL+"/", WithToken("token-123"))

	total := int64(2800)
	order, err := c.CreateOrder(context.Background(), OrderDraft{
		Email:         "buyer@example.com",
		Items:         []LineItem{{VariantID: "price_A", Quantity: 2, PriceInCents: 2000}},
		DiscountCents: 1200,
		TotalCost:     &total,
	})
	require.NoError(t, err)

	assert.Equal(t, "order-1", order.ID)
	assert.Equal(t, total, order.TotalCost)
	assert.Equal(t, PaymentUnpaid, order.PaymentStatus)
}

func TestClient_EnvelopeError(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(srv.URL, WithToken("token-123"))

	total := int64(0)
	_, err := c.CreateOrder(context.Background(), OrderDraft{Email: "buyer@example.com", TotalCost: &total})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "at least one item is required", apiErr.Message)
}

func TestClient_GetPaymentStatus(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(srv.URL)

	snapshot, err := c.GetPaymentStatus(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, PaymentPaid, snapshot.PaymentStatus)

	_, err = c.GetPaymentStatus(context.Background(), "missing")
	assert.True(t, IsNotFound(err))
}

func TestClient_CreateCheckoutSession(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(srv.URL)

	session, err := c.CreateCheckoutSession(context.Background(), CheckoutRequest{
		OrderID: "order-1",
		Items:   []CheckoutItem{{VariantID: "price_A", Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_1", session.SessionID)

	_, err = c.CreateCheckoutSession(context.Background(), CheckoutRequest{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Missing required fields", apiErr.Message)
	assert.False(t, IsNotFound(err))
}

func TestClient_ImplementsCheckoutInterfaces(t *testing.T) {
	var c interface{} = NewClient("http://localhost")
	_, ok := c.(OrderCreator)
	assert.True(t, ok)
	_, ok = c.(SessionInitiator)
	assert.True(t, ok)
	_, ok = c.(OrderFetcher)
	assert.True(t, ok)
}
