package storefront

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrEmptyCart = errors.New("cart is empty")

// OrderCreator 写入待支付订单
type OrderCreator interface {
	CreateOrder(ctx context.Context, draft OrderDraft) (*Order, error)
}

// SessionInitiator 创建支付会话
type SessionInitiator interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
}

// Navigator 跳转到支付页，浏览器中为整页跳转
type Navigator interface {
	Navigate(url string) error
}

type NavigatorFunc func(url string) error

func (f NavigatorFunc) Navigate(url string) error { return f(url) }

// CheckoutDraft 结算时的购物车与客户信息
type CheckoutDraft struct {
	Email    string
	Name     string
	Platform string
	Items    []CartItem
	Metadata map[string]string
}

// CheckoutError 结算失败，OrderID 非空时订单已写入，可对同一订单重试
type CheckoutError struct {
	Stage   string
	OrderID string
	Err     error
}

func (e *CheckoutError) Error() string {
	if e.OrderID != "" {
		return fmt.Sprintf("checkout %s failed for order %s: %v", e.Stage, e.OrderID, e.Err)
	}
	return fmt.Sprintf("checkout %s failed: %v", e.Stage, e.Err)
}

func (e *CheckoutError) Unwrap() error { return e.Err }

// Redirector 先写订单，再创建支付会话，最后跳转
type Redirector struct {
	orders   OrderCreator
	sessions SessionInitiator
	nav      Navigator
	origin   string
}

// NewRedirector origin 为站点根地址，用于拼接成功与取消跳转地址
func NewRedirector(orders OrderCreator, sessions SessionInitiator, nav Navigator, origin string) *Redirector {
	return &Redirector{
		orders:   orders,
		sessions: sessions,
		nav:      nav,
		origin:   strings.TrimRight(origin, "/"),
	}
}

// SuccessURL 支付完成页，携带订单 ID 供轮询
func (r *Redirector) SuccessURL(orderID string) string {
	return r.origin + "/success?order_id=" + url.QueryEscape(orderID)
}

func (r *Redirector) CancelURL() string {
	return r.origin + "/dashboard?tab=orders&status=cancelled"
}

// Checkout 写入 pending/unpaid 订单后发起支付会话并跳转
// 订单写入失败时不会创建会话
func (r *Redirector) Checkout(ctx context.Context, draft CheckoutDraft) (*CheckoutSession, error) {
	if len(draft.Items) == 0 {
		return nil, &CheckoutError{Stage: "validate", Err: ErrEmptyCart}
	}

	totals := ComputeTotals(draft.Items)
	total := totals.Total

	lines := make([]LineItem, 0, len(draft.Items))
	checkoutItems := make([]CheckoutItem, 0, len(draft.Items))
	for _, item := range draft.Items {
		if item.Quantity <= 0 {
			return nil, &CheckoutError{Stage: "validate", Err: ErrInvalidQuantity}
		}
		lines = append(lines, LineItem{
			VariantID:    item.VariantID,
			Quantity:     item.Quantity,
			PriceInCents: item.PriceInCents,
			ProductTitle: item.ProductTitle,
			VariantTitle: item.VariantTitle,
		})
		checkoutItems = append(checkoutItems, CheckoutItem{VariantID: item.VariantID, Quantity: item.Quantity})
	}

	name := draft.Name
	if name == "" {
		name = draft.Email
	}
	platform := draft.Platform
	if platform == "" {
		platform = "Store"
	}

	order, err := r.orders.CreateOrder(ctx, OrderDraft{
		Email:         draft.Email,
		Name:          name,
		Platform:      platform,
		Items:         lines,
		DiscountCents: totals.BundleDiscount,
		TotalCost:     &total,
	})
	if err != nil {
		return nil, &CheckoutError{Stage: "order", Err: err}
	}

	session, err := r.sessions.CreateCheckoutSession(ctx, CheckoutRequest{
		OrderID:             order.ID,
		Items:               checkoutItems,
		CustomerEmail:       draft.Email,
		SuccessURL:          r.SuccessURL(order.ID),
		CancelURL:           r.CancelURL(),
		DiscountAmountCents: totals.BundleDiscount,
		Metadata:            draft.Metadata,
	})
	if err != nil {
		return nil, &CheckoutError{Stage: "session", OrderID: order.ID, Err: err}
	}

	if err := r.nav.Navigate(session.URL); err != nil {
		return session, &CheckoutError{Stage: "redirect", OrderID: order.ID, Err: err}
	}
	return session, nil
}
