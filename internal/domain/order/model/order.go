package model

import (
	"time"

	"storefront/pkg/model"

	"gorm.io/datatypes"
)

// 订单状态
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
)

// 支付状态
const (
	PaymentUnpaid   = "unpaid"
	PaymentPaid     = "paid"
	PaymentRefunded = "refunded"
	PaymentExpired  = "expired"
	PaymentFailed   = "failed"
)

// 进度记录标题
const (
	StepOrderPlaced       = "Order Placed"
	StepPaymentConfirmed  = "Payment Confirmed"
	StepProcessingStarted = "Processing Started"
	StepPaymentFailed     = "Payment Failed"
	StepPartialRefund     = "Partial Refund"
	StepRefunded          = "Refunded"
)

// paymentTransitions 支付状态只能前进
// failed -> paid: 同一会话内换卡重试成功后会收到 completed 事件
var paymentTransitions = map[string][]string{
	PaymentUnpaid: {PaymentPaid, PaymentExpired, PaymentFailed},
	PaymentFailed: {PaymentPaid},
	PaymentPaid:   {PaymentRefunded},
}

// CanTransitionPayment 判断支付状态能否从 from 变为 to
func CanTransitionPayment(from, to string) bool {
	for _, next := range paymentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// LineItem 订单行，金额统一使用最小货币单位
type LineItem struct {
	VariantID    string `json:"variant_id"`
	Quantity     int64  `json:"quantity"`
	PriceInCents int64  `json:"price_in_cents"`
	ProductTitle string `json:"product_title,omitempty"`
	VariantTitle string `json:"variant_title,omitempty"`
}

// ProgressStep 进度记录，只追加不修改
type ProgressStep struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
}

// Order 订单
type Order struct {
	model.BaseModel
	ProfileID               *string                           `gorm:"type:uuid;index" json:"profile_id"`
	Email                   string                            `gorm:"size:255;not null" json:"email"`
	Name                    string                            `gorm:"size:255" json:"name"`
	Platform                string                            `gorm:"size:50" json:"platform"`
	Items                   datatypes.JSONSlice[LineItem]     `gorm:"type:jsonb" json:"items"`
	TotalCost               int64                             `gorm:"not null" json:"total_cost"`
	Status                  string                            `gorm:"size:20;default:pending" json:"status"`
	PaymentStatus           string                            `gorm:"size:20;default:unpaid" json:"payment_status"`
	StripeCheckoutSessionID *string                           `gorm:"size:255;index" json:"stripe_checkout_session_id"`
	CheckoutID              *string                           `gorm:"size:255" json:"checkout_id"`
	StripePaymentIntentID   *string                           `gorm:"size:255" json:"stripe_payment_intent_id"`
	RefundedCents           int64                             `gorm:"not null;default:0" json:"refunded_cents"`
	ProgressSteps           datatypes.JSONSlice[ProgressStep] `gorm:"type:jsonb" json:"progress_steps"`
}

func (Order) TableName() string {
	return "orders"
}

// AppendStep 追加一条进度记录
func (o *Order) AppendStep(status, description string, at time.Time) {
	o.ProgressSteps = append(o.ProgressSteps, ProgressStep{
		Status:      status,
		Timestamp:   at.UTC(),
		Description: description,
	})
}

// SetPaymentStatus 按状态机推进支付状态，不允许时返回 false 且不修改
func (o *Order) SetPaymentStatus(to string) bool {
	if !CanTransitionPayment(o.PaymentStatus, to) {
		return false
	}
	o.PaymentStatus = to
	return true
}

// RefundableCents 剩余可退金额
func (o *Order) RefundableCents() int64 {
	if rest := o.TotalCost - o.RefundedCents; rest > 0 {
		return rest
	}
	return 0
}

// ComputeTotal 计算商品总额
func ComputeTotal(items []LineItem) int64 {
	var total int64
	for _, item := range items {
		total += item.PriceInCents * item.Quantity
	}
	return total
}

// PaymentSnapshot 支付结果页轮询使用的精简视图
type PaymentSnapshot struct {
	ID            string                            `json:"id"`
	ProfileID     *string                           `json:"-"`
	Status        string                            `json:"status"`
	PaymentStatus string                            `json:"payment_status"`
	Email         string                            `json:"email"`
	ProgressSteps datatypes.JSONSlice[ProgressStep] `json:"progress_steps"`
}

// 操作日志类型
const (
	ActionRefundCreated = "refund_created"
)

// OrderAction 订单操作日志，只追加
type OrderAction struct {
	model.AppendOnlyModel
	OrderID     string         `gorm:"type:uuid;not null;index" json:"order_id" db:"order_id"`
	Action      string         `gorm:"size:50;not null" json:"action" db:"action"`
	PerformedBy *string        `gorm:"type:uuid" json:"performed_by" db:"performed_by"`
	Details     datatypes.JSON `gorm:"type:jsonb" json:"details" db:"details"`
}

func (OrderAction) TableName() string {
	return "order_actions"
}
