package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	orderModel "storefront/internal/domain/order/model"
	orderRepo "storefront/internal/domain/order/repository"
	"storefront/internal/domain/payment/strategy"
	"storefront/internal/pkg/worker"
	"storefront/pkg/logger"
	"storefront/pkg/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrMissingFields   = errors.New("missing required fields")
	ErrInvalidQuantity = errors.New("item quantity must be positive")
	ErrOrderNotFound   = errors.New("order not found")
	ErrOrderNotPayable = errors.New("order is no longer awaiting payment")
)

// CouponName 合并后的折扣券名称
const CouponName = "Promotional Discount"

// sessionPlaceholder 服务商在跳转时替换为真实会话 ID
const sessionPlaceholder = "{CHECKOUT_SESSION_ID}"

// Dispatcher 异步通知投递
type Dispatcher interface {
	Enqueue(task worker.Task) bool
}

type CheckoutItem struct {
	VariantID string `json:"variant_id"`
	Quantity  int64  `json:"quantity"`
}

// CheckoutRequest 创建支付会话请求
type CheckoutRequest struct {
	OrderID             string            `json:"orderId"`
	Items               []CheckoutItem    `json:"items"`
	CustomerEmail       string            `json:"customerEmail"`
	SuccessURL          string            `json:"successUrl"`
	CancelURL           string            `json:"cancelUrl"`
	DiscountAmountCents int64             `json:"discountAmountCents"`
	Metadata            map[string]string `json:"metadata"`
}

type CheckoutResult struct {
	URL       string `json:"url"`
	SessionID string `json:"sessionId"`
	// DiscountCents 实际附加到会话的折扣
	DiscountCents int64 `json:"-"`
}

type CheckoutService interface {
	CreateSession(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error)
}

type checkoutService struct {
	gateway         strategy.PaymentGateway
	orders          orderRepo.OrderRepository
	defaultCurrency string
	metrics         *metrics.MetricsCollector
}

// NewCheckoutService collector 可为 nil
func NewCheckoutService(gateway strategy.PaymentGateway, orders orderRepo.OrderRepository, defaultCurrency string, collector *metrics.MetricsCollector) CheckoutService {
	if defaultCurrency == "" {
		defaultCurrency = "eur"
	}
	return &checkoutService{
		gateway:         gateway,
		orders:          orders,
		defaultCurrency: strings.ToLower(defaultCurrency),
		metrics:         collector,
	}
}

func validateCheckout(req CheckoutRequest) error {
	if req.OrderID == "" || len(req.Items) == 0 || req.CustomerEmail == "" || req.SuccessURL == "" || req.CancelURL == "" {
		return ErrMissingFields
	}
	for _, item := range req.Items {
		if item.VariantID == "" {
			return ErrMissingFields
		}
		if item.Quantity <= 0 {
			return ErrInvalidQuantity
		}
	}
	return nil
}

// WithSessionPlaceholder 确保成功回跳地址带上会话 ID 占位符
func WithSessionPlaceholder(successURL string) string {
	if strings.Contains(successURL, sessionPlaceholder) {
		return successURL
	}
	sep := "?"
	if strings.Contains(successURL, "?") {
		sep = "&"
	}
	return successURL + sep + "session_id=" + sessionPlaceholder
}

// salePrice 读取价格元数据中的促销价，只接受正整数
func salePrice(p *strategy.Price) (int64, bool) {
	raw, ok := p.Metadata["sale_price"]
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// SaleDiscount 按促销价计算折扣: (原价 - 促销价) * max(1, 数量)
func SaleDiscount(items []CheckoutItem, prices []*strategy.Price) int64 {
	var total int64
	for i, item := range items {
		if i >= len(prices) || prices[i] == nil {
			continue
		}
		sale, ok := salePrice(prices[i])
		if !ok || sale >= prices[i].UnitAmount {
			continue
		}
		qty := item.Quantity
		if qty < 1 {
			qty = 1
		}
		total += (prices[i].UnitAmount - sale) * qty
	}
	return total
}

// fetchPrices 并发查询价格，任一失败则返回错误，已查到的结果仍保留
func (s *checkoutService) fetchPrices(ctx context.Context, items []CheckoutItem) ([]*strategy.Price, error) {
	prices := make([]*strategy.Price, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, item := range items {
		i, priceID := i, item.VariantID
		g.Go(func() error {
			p, err := s.gateway.GetPrice(gctx, priceID)
			if err != nil {
				return err
			}
			prices[i] = p
			return nil
		})
	}
	return prices, g.Wait()
}

func (s *checkoutService) CreateSession(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	if err := validateCheckout(req); err != nil {
		return nil, err
	}

	order, err := s.orders.GetByID(ctx, req.OrderID)
	if err != nil {
		if orderRepo.IsNotFound(err) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("load order: %w", err)
	}
	if order.PaymentStatus != orderModel.PaymentUnpaid && order.PaymentStatus != orderModel.PaymentFailed {
		return nil, ErrOrderNotPayable
	}

	// 价格查询失败只影响促销折扣，不影响创建会话
	prices, err := s.fetchPrices(ctx, req.Items)
	var saleDiscount int64
	if err != nil {
		logger.Log.Warn("price lookup failed, sale discount skipped",
			zap.String("order_id", req.OrderID), zap.Error(err))
	} else {
		saleDiscount = SaleDiscount(req.Items, prices)
	}

	discount := req.DiscountAmountCents + saleDiscount
	if discount < 0 {
		discount = 0
	}

	params := strategy.SessionParams{
		LineItems:     make([]strategy.SessionLineItem, 0, len(req.Items)),
		SuccessURL:    WithSessionPlaceholder(req.SuccessURL),
		CancelURL:     req.CancelURL,
		CustomerEmail: req.CustomerEmail,
		Metadata:      make(map[string]string, len(req.Metadata)+1),
		PaymentIntentMetadata: map[string]string{
			"order_id": req.OrderID,
		},
	}
	for _, item := range req.Items {
		params.LineItems = append(params.LineItems, strategy.SessionLineItem{Price: item.VariantID, Quantity: item.Quantity})
	}
	for k, v := range req.Metadata {
		params.Metadata[k] = v
	}
	// order_id 不允许被调用方覆盖
	params.Metadata["order_id"] = req.OrderID

	if discount > 0 {
		currency := s.defaultCurrency
		if len(prices) > 0 && prices[0] != nil && prices[0].Currency != "" {
			currency = prices[0].Currency
		}
		couponID, err := s.gateway.CreateCoupon(ctx, strategy.CouponParams{
			AmountOff: discount,
			Currency:  currency,
			Name:      CouponName,
		})
		if err != nil {
			s.recordSession(false, 0)
			return nil, err
		}
		params.CouponID = couponID
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, params)
	if err != nil {
		s.recordSession(false, 0)
		return nil, err
	}

	// 会话已创建，回写失败不影响支付，回调依靠 metadata 中的 order_id 关联订单
	if err := s.orders.StampCheckoutSession(ctx, req.OrderID, session.ID); err != nil {
		logger.Log.Error("stamp checkout session failed",
			zap.String("order_id", req.OrderID),
			zap.String("session_id", session.ID),
			zap.Error(err))
	}

	s.recordSession(true, discount)
	logger.Log.Info("checkout session created",
		zap.String("order_id", req.OrderID),
		zap.String("session_id", session.ID),
		zap.Int64("discount_cents", discount))

	return &CheckoutResult{URL: session.URL, SessionID: session.ID, DiscountCents: discount}, nil
}

func (s *checkoutService) recordSession(success bool, discount int64) {
	if s.metrics != nil {
		s.metrics.RecordCheckoutSession(success, discount)
	}
}
