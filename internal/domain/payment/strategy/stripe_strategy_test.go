package strategy

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

const testSecret = "whsec_test_secret"

func signed(payload string) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testSecret,
		Timestamp: time.Now(),
	}).Header
}

func TestProviderMessage(t *testing.T) {
	err := fmt.Errorf("create coupon: %w", &stripe.Error{Msg: "No such price: 'price_x'"})
	assert.Equal(t, "No such price: 'price_x'", ProviderMessage(err))
	assert.Equal(t, "", ProviderMessage(errors.New("dial tcp 10.0.3.7:5432: connection refused")))
	assert.Equal(t, "", ProviderMessage(nil))
}

func TestParseEvent(t *testing.T) {
	g := NewStripeGateway(nil, testSecret)

	t.Run("missing signature", func(t *testing.T) {
		_, err := g.ParseEvent([]byte(`{}`), "")
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("bad signature", func(t *testing.T) {
		_, err := g.ParseEvent([]byte(`{"id":"evt_1"}`), "t=1,v1=deadbeef")
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("checkout completed", func(t *testing.T) {
		payload := `{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_1","object":"checkout.session","amount_total":2000,"currency":"eur","payment_intent":"pi_1","metadata":{"order_id":"o-1"}}}}`
		evt, err := g.ParseEvent([]byte(payload), signed(payload))
		require.NoError(t, err)
		assert.Equal(t, "evt_1", evt.ID)
		assert.Equal(t, EventCheckoutCompleted, evt.Type)
		require.NotNil(t, evt.Session)
		assert.Equal(t, "cs_1", evt.Session.ID)
		assert.Equal(t, "pi_1", evt.Session.PaymentIntentID)
		assert.Equal(t, int64(2000), evt.Session.AmountTotal)
		assert.Equal(t, "o-1", evt.Session.Metadata["order_id"])
	})

	t.Run("payment failed", func(t *testing.T) {
		payload := `{"id":"evt_2","object":"event","type":"payment_intent.payment_failed","data":{"object":{"id":"pi_1","object":"payment_intent","metadata":{"order_id":"o-1"},"last_payment_error":{"message":"Your card was declined."}}}}`
		evt, err := g.ParseEvent([]byte(payload), signed(payload))
		require.NoError(t, err)
		require.NotNil(t, evt.PaymentIntent)
		assert.Equal(t, "Your card was declined.", evt.PaymentIntent.LastErrorMessage)
	})

	t.Run("other event", func(t *testing.T) {
		payload := `{"id":"evt_3","object":"event","type":"customer.created","data":{"object":{"id":"cus_1"}}}`
		evt, err := g.ParseEvent([]byte(payload), signed(payload))
		require.NoError(t, err)
		assert.Nil(t, evt.Session)
		assert.Nil(t, evt.PaymentIntent)
	})
}
