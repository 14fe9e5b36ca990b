package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"storefront/internal/domain/order/model"
	baseModel "storefront/pkg/model"

	"gorm.io/gorm"
)

// MemoryOrderRepository 内存实现（用于开发/测试），语义与数据库实现一致
type MemoryOrderRepository struct {
	mu      sync.Mutex
	orders  map[string]*model.Order
	actions []model.OrderAction
}

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{orders: make(map[string]*model.Order)}
}

// clone 深拷贝，避免调用方修改内部状态；序列化失败说明数据已损坏，直接 panic
func clone(o *model.Order) *model.Order {
	data, err := json.Marshal(o)
	if err != nil {
		panic(fmt.Sprintf("clone order %s: %v", o.ID, err))
	}
	var out model.Order
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("clone order %s: %v", o.ID, err))
	}
	out.BaseModel = o.BaseModel
	return &out
}

func (r *MemoryOrderRepository) Create(ctx context.Context, order *model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if order.ID == "" {
		order.ID = baseModel.NewID()
	}
	now := time.Now()
	order.CreatedAt, order.UpdatedAt = now, now
	r.orders[order.ID] = clone(order)
	return nil
}

func (r *MemoryOrderRepository) GetByID(ctx context.Context, id string) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return clone(o), nil
}

func (r *MemoryOrderRepository) GetPaymentSnapshot(ctx context.Context, id string) (*model.PaymentSnapshot, error) {
	o, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.PaymentSnapshot{
		ID:            o.ID,
		ProfileID:     o.ProfileID,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		Email:         o.Email,
		ProgressSteps: o.ProgressSteps,
	}, nil
}

func (r *MemoryOrderRepository) ListByProfile(ctx context.Context, profileID string, offset, limit int) ([]model.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []model.Order
	for _, o := range r.orders {
		if o.ProfileID != nil && *o.ProfileID == profileID {
			matched = append(matched, *clone(o))
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if offset >= len(matched) {
		return []model.Order{}, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (r *MemoryOrderRepository) StampCheckoutSession(ctx context.Context, id, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	o.StripeCheckoutSessionID = &sessionID
	o.CheckoutID = &sessionID
	return nil
}

// Update 整个读改写过程持有锁，对应数据库实现的行锁
func (r *MemoryOrderRepository) Update(ctx context.Context, id string, fn UpdateFunc) (*model.Order, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, false, gorm.ErrRecordNotFound
	}

	working := clone(o)
	changed, err := fn(working)
	if err != nil {
		return nil, false, err
	}
	if !changed {
		return clone(o), false, nil
	}
	working.UpdatedAt = time.Now()
	r.orders[id] = working
	return clone(working), true, nil
}

func (r *MemoryOrderRepository) ExpireIfUnpaid(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok || o.PaymentStatus != model.PaymentUnpaid {
		return false, nil
	}
	o.PaymentStatus = model.PaymentExpired
	o.Status = model.StatusCancelled
	return true, nil
}

func (r *MemoryOrderRepository) CreateAction(ctx context.Context, action *model.OrderAction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if action.ID == "" {
		action.ID = baseModel.NewID()
	}
	action.CreatedAt = time.Now()
	r.actions = append(r.actions, *action)
	return nil
}

// ListByOrder 同时实现 ActionRepository
func (r *MemoryOrderRepository) ListByOrder(ctx context.Context, orderID string) ([]model.OrderAction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.OrderAction, 0)
	for _, a := range r.actions {
		if a.OrderID == orderID {
			out = append(out, a)
		}
	}
	return out, nil
}
