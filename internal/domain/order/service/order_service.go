package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/domain/order/model"
	"storefront/internal/domain/order/repository"
	"storefront/pkg/database"
	"storefront/pkg/logger"
	"storefront/pkg/utils"

	"go.uber.org/zap"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrValidation    = errors.New("invalid order")
)

// DefaultPlatform 前台下单渠道
const DefaultPlatform = "Store"

// OrderDraft 购物车提交的订单草稿
type OrderDraft struct {
	Email         string
	Name          string
	Platform      string
	Items         []model.LineItem
	DiscountCents int64
	// TotalCost 客户端计算的应付金额，非空时必须与服务端一致
	TotalCost *int64
}

type OrderService interface {
	PlaceOrder(ctx context.Context, profileID string, draft OrderDraft) (*model.Order, error)
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	GetPaymentStatus(ctx context.Context, id string) (*model.PaymentSnapshot, error)
	ListOrders(ctx context.Context, profileID string, page utils.Pagination) (*utils.PageResult, error)
	ListActions(ctx context.Context, orderID string) ([]model.OrderAction, error)
}

type orderService struct {
	repo    repository.OrderRepository
	actions repository.ActionRepository
	now     func() time.Time
}

func NewOrderService(repo repository.OrderRepository, actions repository.ActionRepository) OrderService {
	return &orderService{repo: repo, actions: actions, now: time.Now}
}

func validateDraft(draft OrderDraft) (int64, error) {
	if strings.TrimSpace(draft.Email) == "" {
		return 0, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if len(draft.Items) == 0 {
		return 0, fmt.Errorf("%w: at least one item is required", ErrValidation)
	}
	for i, item := range draft.Items {
		if item.VariantID == "" {
			return 0, fmt.Errorf("%w: item %d has no variant", ErrValidation, i)
		}
		if item.Quantity <= 0 {
			return 0, fmt.Errorf("%w: item %d quantity must be positive", ErrValidation, i)
		}
		if item.PriceInCents < 0 {
			return 0, fmt.Errorf("%w: item %d price must not be negative", ErrValidation, i)
		}
	}

	subtotal := model.ComputeTotal(draft.Items)
	if draft.DiscountCents < 0 || draft.DiscountCents > subtotal {
		return 0, fmt.Errorf("%w: discount out of range", ErrValidation)
	}
	total := subtotal - draft.DiscountCents
	if draft.TotalCost != nil && *draft.TotalCost != total {
		return 0, fmt.Errorf("%w: total %d does not match computed %d", ErrValidation, *draft.TotalCost, total)
	}
	return total, nil
}

// PlaceOrder 创建待支付订单，先于支付会话存在
func (s *orderService) PlaceOrder(ctx context.Context, profileID string, draft OrderDraft) (*model.Order, error) {
	total, err := validateDraft(draft)
	if err != nil {
		return nil, err
	}

	platform := draft.Platform
	if platform == "" {
		platform = DefaultPlatform
	}

	order := &model.Order{
		Email:         strings.TrimSpace(draft.Email),
		Name:          draft.Name,
		Platform:      platform,
		Items:         draft.Items,
		TotalCost:     total,
		Status:        model.StatusPending,
		PaymentStatus: model.PaymentUnpaid,
	}
	if profileID != "" {
		order.ProfileID = &profileID
	}
	order.AppendStep(model.StepOrderPlaced, "Order initiated.", s.now())

	if err := s.repo.Create(ctx, order); err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: unknown profile", ErrValidation)
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	logger.Log.Info("order placed",
		zap.String("order_id", order.ID),
		zap.Int64("total_cost", order.TotalCost),
		zap.Int("items", len(order.Items)),
	)
	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

func (s *orderService) GetPaymentStatus(ctx context.Context, id string) (*model.PaymentSnapshot, error) {
	snapshot, err := s.repo.GetPaymentSnapshot(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get payment status: %w", err)
	}
	return snapshot, nil
}

func (s *orderService) ListOrders(ctx context.Context, profileID string, page utils.Pagination) (*utils.PageResult, error) {
	offset, limit := page.GetPageOffset()
	orders, total, err := s.repo.ListByProfile(ctx, profileID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	result := utils.NewPageResult(orders, total, page)
	return &result, nil
}

func (s *orderService) ListActions(ctx context.Context, orderID string) ([]model.OrderAction, error) {
	actions, err := s.actions.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order actions: %w", err)
	}
	return actions, nil
}
