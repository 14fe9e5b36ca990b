package strategy

import (
	"context"
	"errors"
)

// ErrInvalidSignature 回调签名缺失或校验失败
var ErrInvalidSignature = errors.New("invalid webhook signature")

// 回调事件类型
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventCheckoutExpired     = "checkout.session.expired"
	EventPaymentIntentFailed = "payment_intent.payment_failed"
)

// Price 支付服务商侧的价格对象
type Price struct {
	ID         string
	UnitAmount int64
	Currency   string
	Metadata   map[string]string
}

// CouponParams 一次性满减券
type CouponParams struct {
	AmountOff int64
	Currency  string
	Name      string
}

type SessionLineItem struct {
	Price    string
	Quantity int64
}

// SessionParams 托管支付页会话参数
type SessionParams struct {
	LineItems     []SessionLineItem
	SuccessURL    string
	CancelURL     string
	CustomerEmail string
	CouponID      string
	Metadata      map[string]string
	// PaymentIntentMetadata 写入支付意图，失败事件据此找回订单
	PaymentIntentMetadata map[string]string
}

type Session struct {
	ID              string
	URL             string
	PaymentIntentID string
	AmountTotal     int64
	Currency        string
	Metadata        map[string]string
}

type PaymentIntent struct {
	ID               string
	Metadata         map[string]string
	LastErrorMessage string
}

type RefundParams struct {
	PaymentIntentID string
	Amount          int64
	Reason          string
	Metadata        map[string]string
}

type Refund struct {
	ID       string
	Amount   int64
	Currency string
	Status   string
	Reason   string
}

// Event 已验签的回调事件，按类型填充 Session 或 PaymentIntent
type Event struct {
	ID            string
	Type          string
	Session       *Session
	PaymentIntent *PaymentIntent
}

// PaymentGateway 支付服务商抽象
type PaymentGateway interface {
	GetPrice(ctx context.Context, priceID string) (*Price, error)
	CreateCoupon(ctx context.Context, params CouponParams) (string, error)
	CreateCheckoutSession(ctx context.Context, params SessionParams) (*Session, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*Session, error)
	CreateRefund(ctx context.Context, params RefundParams) (*Refund, error)
	// ParseEvent 校验签名并解析事件
	ParseEvent(payload []byte, signature string) (*Event, error)
}
