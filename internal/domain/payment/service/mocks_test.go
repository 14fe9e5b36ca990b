package service

import (
	"context"
	"sync"
	"testing"
	"time"

	orderModel "storefront/internal/domain/order/model"
	orderRepo "storefront/internal/domain/order/repository"
	"storefront/internal/domain/payment/strategy"
	"storefront/internal/pkg/worker"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockGateway is a mock of PaymentGateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) GetPrice(ctx context.Context, priceID string) (*strategy.Price, error) {
	args := m.Called(ctx, priceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*strategy.Price), args.Error(1)
}

func (m *MockGateway) CreateCoupon(ctx context.Context, params strategy.CouponParams) (string, error) {
	args := m.Called(ctx, params)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) CreateCheckoutSession(ctx context.Context, params strategy.SessionParams) (*strategy.Session, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*strategy.Session), args.Error(1)
}

func (m *MockGateway) GetCheckoutSession(ctx context.Context, sessionID string) (*strategy.Session, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*strategy.Session), args.Error(1)
}

func (m *MockGateway) CreateRefund(ctx context.Context, params strategy.RefundParams) (*strategy.Refund, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*strategy.Refund), args.Error(1)
}

func (m *MockGateway) ParseEvent(payload []byte, signature string) (*strategy.Event, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*strategy.Event), args.Error(1)
}

// recordingDispatcher 记录投递的任务
type recordingDispatcher struct {
	mu    sync.Mutex
	tasks []worker.Task
}

func (d *recordingDispatcher) Enqueue(task worker.Task) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tasks = append(d.tasks, task)
	return true
}

func (d *recordingDispatcher) kinds() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.tasks))
	for _, t := range d.tasks {
		out = append(out, t.Kind)
	}
	return out
}

// failingRepo 写操作返回指定错误
type failingRepo struct {
	*orderRepo.MemoryOrderRepository
	err error
}

func (r *failingRepo) Update(ctx context.Context, id string, fn orderRepo.UpdateFunc) (*orderModel.Order, bool, error) {
	return nil, false, r.err
}

func (r *failingRepo) ExpireIfUnpaid(ctx context.Context, id string) (bool, error) {
	return false, r.err
}

func strPtr(s string) *string { return &s }

// seedOrder 写入一个待支付订单
func seedOrder(t *testing.T, repo orderRepo.OrderRepository, total int64) *orderModel.Order {
	t.Helper()
	o := &orderModel.Order{
		ProfileID:     strPtr("profile-1"),
		Email:         "buyer@example.com",
		Items:         []orderModel.LineItem{{VariantID: "price_A", Quantity: 1, PriceInCents: total}},
		TotalCost:     total,
		Status:        orderModel.StatusPending,
		PaymentStatus: orderModel.PaymentUnpaid,
	}
	o.AppendStep(orderModel.StepOrderPlaced, "Order initiated.", time.Now())
	require.NoError(t, repo.Create(context.Background(), o))
	return o
}

func countSteps(o *orderModel.Order, status string) int {
	n := 0
	for _, s := range o.ProgressSteps {
		if s.Status == status {
			n++
		}
	}
	return n
}
