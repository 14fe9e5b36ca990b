package repository

import (
	"context"
	"errors"
	"time"

	"storefront/internal/domain/order/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpdateFunc 在行锁内修改订单，返回 false 表示无需写回
type UpdateFunc func(order *model.Order) (bool, error)

// OrderRepository 订单存储
type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id string) (*model.Order, error)
	GetPaymentSnapshot(ctx context.Context, id string) (*model.PaymentSnapshot, error)
	ListByProfile(ctx context.Context, profileID string, offset, limit int) ([]model.Order, int64, error)
	// StampCheckoutSession 记录支付会话 ID（两个字段保持兼容）
	StampCheckoutSession(ctx context.Context, id, sessionID string) error
	// Update 行锁读改写，返回修改后的订单以及是否写回
	Update(ctx context.Context, id string, fn UpdateFunc) (*model.Order, bool, error)
	// ExpireIfUnpaid 仅当仍未支付时标记过期，返回是否有行被修改
	ExpireIfUnpaid(ctx context.Context, id string) (bool, error)
	CreateAction(ctx context.Context, action *model.OrderAction) error
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// validID orders.id 为 uuid 列，非法 id 不可能命中任何行
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*model.Order, error) {
	if !validID(id) {
		return nil, gorm.ErrRecordNotFound
	}
	var order model.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetPaymentSnapshot(ctx context.Context, id string) (*model.PaymentSnapshot, error) {
	if !validID(id) {
		return nil, gorm.ErrRecordNotFound
	}
	var snapshot model.PaymentSnapshot
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Select("id", "profile_id", "status", "payment_status", "email", "progress_steps").
		Where("id = ?", id).
		Take(&snapshot).Error
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (r *orderRepository) ListByProfile(ctx context.Context, profileID string, offset, limit int) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Order{}).Where("profile_id = ?", profileID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *orderRepository) StampCheckoutSession(ctx context.Context, id, sessionID string) error {
	if !validID(id) {
		return gorm.ErrRecordNotFound
	}
	result := r.db.WithContext(ctx).Model(&model.Order{}).Where("id = ?", id).Updates(map[string]interface{}{
		"stripe_checkout_session_id": sessionID,
		"checkout_id":                sessionID,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *orderRepository) Update(ctx context.Context, id string, fn UpdateFunc) (*model.Order, bool, error) {
	if !validID(id) {
		return nil, false, gorm.ErrRecordNotFound
	}
	var order model.Order
	var changed bool

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&order).Error; err != nil {
			return err
		}

		var err error
		changed, err = fn(&order)
		if err != nil || !changed {
			return err
		}

		order.UpdatedAt = time.Now()
		return tx.Model(&order).
			Select("status", "payment_status", "stripe_payment_intent_id", "refunded_cents", "progress_steps", "updated_at").
			Updates(&order).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &order, changed, nil
}

func (r *orderRepository) ExpireIfUnpaid(ctx context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND payment_status = ?", id, model.PaymentUnpaid).
		Updates(map[string]interface{}{
			"payment_status": model.PaymentExpired,
			"status":         model.StatusCancelled,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *orderRepository) CreateAction(ctx context.Context, action *model.OrderAction) error {
	return r.db.WithContext(ctx).Create(action).Error
}

// IsNotFound 统一判断记录不存在，uuid 格式错误（22P02）同样视为不存在
func IsNotFound(err error) bool {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}
