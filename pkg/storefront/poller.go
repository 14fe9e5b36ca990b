package storefront

import (
	"context"
	"errors"
	"sync"
	"time"
)

// 轮询状态
const (
	StateProcessing = "processing"
	StateSuccess    = "success"
	StateError      = "error"
)

const (
	DefaultPollAttempts = 5
	DefaultPollInterval = 2 * time.Second
)

var ErrMissingOrderID = errors.New("missing order id")

// OrderFetcher 读取订单，只读不写
type OrderFetcher interface {
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	GetPaymentStatus(ctx context.Context, orderID string) (*PaymentSnapshot, error)
}

// CartClearer 支付成功后清空购物车
type CartClearer interface {
	Clear() error
}

// Notice 展示给用户的提示
type Notice struct {
	Title       string
	Description string
	Destructive bool
}

type Notifier interface {
	Notify(n Notice)
}

type NotifierFunc func(n Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// PollResult 轮询结束时的状态
type PollResult struct {
	State string
	// Confirmed 为 false 表示未等到回调，按乐观策略展示成功
	Confirmed bool
	Order     *Order
	Fetches   int
	Err       error
}

// Poller 支付完成页的订单状态轮询，每个实例只运行一次
type Poller struct {
	orders   OrderFetcher
	cart     CartClearer
	notifier Notifier

	attempts int
	interval time.Duration
	sleep    func(ctx context.Context, d time.Duration) error

	once   sync.Once
	result PollResult
}

type PollerOption func(*Poller)

// WithPollSchedule 覆盖轮询次数与间隔
func WithPollSchedule(attempts int, interval time.Duration) PollerOption {
	return func(p *Poller) {
		if attempts > 0 {
			p.attempts = attempts
		}
		if interval > 0 {
			p.interval = interval
		}
	}
}

func NewPoller(orders OrderFetcher, cart CartClearer, notifier Notifier, opts ...PollerOption) *Poller {
	p := &Poller{
		orders:   orders,
		cart:     cart,
		notifier: notifier,
		attempts: DefaultPollAttempts,
		interval: DefaultPollInterval,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run 首次读取一次，未支付时最多再轮询 attempts 次
// 重复调用（包括并发调用）不会再次请求，直接返回首次结果
func (p *Poller) Run(ctx context.Context, orderID string) PollResult {
	p.once.Do(func() {
		p.result = p.run(ctx, orderID)
	})
	return p.result
}

func (p *Poller) run(ctx context.Context, orderID string) PollResult {
	if orderID == "" {
		return PollResult{State: StateError, Err: ErrMissingOrderID}
	}

	order, err := p.orders.GetOrder(ctx, orderID)
	fetches := 1
	if err != nil {
		return p.fail(fetches, err)
	}
	if order.PaymentStatus == PaymentPaid {
		p.clearCart()
		return PollResult{State: StateSuccess, Confirmed: true, Order: order, Fetches: fetches}
	}

	for i := 0; i < p.attempts; i++ {
		if err := p.sleep(ctx, p.interval); err != nil {
			return p.fail(fetches, err)
		}

		snapshot, err := p.orders.GetPaymentStatus(ctx, orderID)
		fetches++
		if err != nil {
			return p.fail(fetches, err)
		}
		merge(order, snapshot)

		if snapshot.PaymentStatus == PaymentPaid {
			p.clearCart()
			p.notify(Notice{
				Title:       "Order Confirmed",
				Description: "Confirmation email sent to " + order.Email,
			})
			return PollResult{State: StateSuccess, Confirmed: true, Order: order, Fetches: fetches}
		}
	}

	// 支付服务商已跳转到成功页，回调稍后会落库
	p.clearCart()
	p.notify(Notice{
		Title:       "Order Received",
		Description: "Your payment is being processed. Check your email for confirmation.",
	})
	return PollResult{State: StateSuccess, Order: order, Fetches: fetches}
}

func (p *Poller) fail(fetches int, err error) PollResult {
	p.notify(Notice{
		Title:       "Sync Error",
		Description: "Payment received, but we couldn't update the order status automatically. Please contact support.",
		Destructive: true,
	})
	return PollResult{State: StateError, Fetches: fetches, Err: err}
}

func (p *Poller) clearCart() {
	if p.cart != nil {
		// 清空失败不影响支付结果
		_ = p.cart.Clear()
	}
}

func (p *Poller) notify(n Notice) {
	if p.notifier != nil {
		p.notifier.Notify(n)
	}
}

func merge(order *Order, snapshot *PaymentSnapshot) {
	order.Status = snapshot.Status
	order.PaymentStatus = snapshot.PaymentStatus
	if snapshot.Email != "" {
		order.Email = snapshot.Email
	}
	if snapshot.ProgressSteps != nil {
		order.ProgressSteps = snapshot.ProgressSteps
	}
}
