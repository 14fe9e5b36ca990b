package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	orderModel "storefront/internal/domain/order/model"
	orderRepo "storefront/internal/domain/order/repository"
	"storefront/internal/domain/payment/strategy"
	"storefront/internal/pkg/worker"
	"storefront/pkg/logger"
	"storefront/pkg/metrics"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

var (
	ErrMissingOrderID       = errors.New("missing order_id")
	ErrNotRefundable        = errors.New("only paid orders can be refunded")
	ErrMissingPaymentIntent = errors.New("missing payment intent for this order")
)

type RefundRequest struct {
	OrderID     string `json:"order_id"`
	AmountCents int64  `json:"amount_cents"`
	Reason      string `json:"reason"`
}

type RefundResult struct {
	ID         string `json:"id"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	Status     string `json:"status"`
	FullRefund bool   `json:"full_refund"`
}

type RefundService interface {
	Refund(ctx context.Context, adminID string, req RefundRequest) (*RefundResult, error)
}

type refundService struct {
	gateway    strategy.PaymentGateway
	orders     orderRepo.OrderRepository
	dispatcher Dispatcher
	metrics    *metrics.MetricsCollector
	now        func() time.Time
}

func NewRefundService(gateway strategy.PaymentGateway, orders orderRepo.OrderRepository, dispatcher Dispatcher, collector *metrics.MetricsCollector) RefundService {
	return &refundService{
		gateway:    gateway,
		orders:     orders,
		dispatcher: dispatcher,
		metrics:    collector,
		now:        time.Now,
	}
}

// resolvePaymentIntent 订单上没有时回查支付会话
func (s *refundService) resolvePaymentIntent(ctx context.Context, order *orderModel.Order) (string, error) {
	if order.StripePaymentIntentID != nil && *order.StripePaymentIntentID != "" {
		return *order.StripePaymentIntentID, nil
	}
	if order.StripeCheckoutSessionID == nil || *order.StripeCheckoutSessionID == "" {
		return "", ErrMissingPaymentIntent
	}
	session, err := s.gateway.GetCheckoutSession(ctx, *order.StripeCheckoutSessionID)
	if err != nil {
		return "", err
	}
	if session.PaymentIntentID == "" {
		return "", ErrMissingPaymentIntent
	}
	return session.PaymentIntentID, nil
}

func (s *refundService) Refund(ctx context.Context, adminID string, req RefundRequest) (*RefundResult, error) {
	if req.OrderID == "" {
		return nil, ErrMissingOrderID
	}

	order, err := s.orders.GetByID(ctx, req.OrderID)
	if err != nil {
		if orderRepo.IsNotFound(err) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("load order: %w", err)
	}
	if order.PaymentStatus != orderModel.PaymentPaid {
		return nil, ErrNotRefundable
	}

	remaining := order.RefundableCents()
	if remaining <= 0 {
		return nil, ErrNotRefundable
	}

	paymentIntentID, err := s.resolvePaymentIntent(ctx, order)
	if err != nil {
		return nil, err
	}

	amount := remaining
	if req.AmountCents > 0 && req.AmountCents < remaining {
		amount = req.AmountCents
	}

	refund, err := s.gateway.CreateRefund(ctx, strategy.RefundParams{
		PaymentIntentID: paymentIntentID,
		Amount:          amount,
		Reason:          req.Reason,
		Metadata:        map[string]string{"order_id": order.ID},
	})
	if err != nil {
		return nil, err
	}
	if refund.Amount <= 0 {
		refund.Amount = amount
	}
	currency := refund.Currency

	var full bool
	updated, _, err := s.orders.Update(ctx, order.ID, func(o *orderModel.Order) (bool, error) {
		o.RefundedCents += refund.Amount
		if o.StripePaymentIntentID == nil {
			o.StripePaymentIntentID = &paymentIntentID
		}
		now := s.now()
		full = o.RefundedCents >= o.TotalCost
		if full {
			o.SetPaymentStatus(orderModel.PaymentRefunded)
			o.AppendStep(orderModel.StepRefunded, fmt.Sprintf("Refund of %s issued.", FormatAmount(refund.Amount, currency)), now)
		} else {
			o.AppendStep(orderModel.StepPartialRefund, fmt.Sprintf("Partial refund of %s issued.", FormatAmount(refund.Amount, currency)), now)
		}
		return true, nil
	})
	if err != nil {
		// 服务商侧退款已成功，以服务商为准，记录后人工对账
		logger.Log.Error("refund issued but order update failed",
			zap.String("order_id", order.ID),
			zap.String("refund_id", refund.ID),
			zap.Error(err))
		full = order.RefundedCents+refund.Amount >= order.TotalCost
		updated = order
	}

	s.logAction(ctx, adminID, order.ID, paymentIntentID, refund, full)

	if s.metrics != nil {
		s.metrics.RecordRefund(full)
	}
	if s.dispatcher != nil && updated.ProfileID != nil {
		s.dispatcher.Enqueue(worker.Task{
			Kind:      worker.TaskRefundCreated,
			ProfileID: *updated.ProfileID,
			OrderID:   order.ID,
			Title:     "Refund Issued",
			Message:   fmt.Sprintf("A refund of %s has been issued for your order.", FormatAmount(refund.Amount, currency)),
		})
	}

	logger.Log.Info("refund created",
		zap.String("order_id", order.ID),
		zap.String("refund_id", refund.ID),
		zap.Int64("amount", refund.Amount),
		zap.Bool("full_refund", full))

	return &RefundResult{
		ID:         refund.ID,
		Amount:     refund.Amount,
		Currency:   currency,
		Status:     refund.Status,
		FullRefund: full,
	}, nil
}

func (s *refundService) logAction(ctx context.Context, adminID, orderID, paymentIntentID string, refund *strategy.Refund, full bool) {
	details, err := json.Marshal(map[string]interface{}{
		"refund_id":      refund.ID,
		"amount":         refund.Amount,
		"currency":       refund.Currency,
		"status":         refund.Status,
		"reason":         nullable(refund.Reason),
		"payment_intent": paymentIntentID,
		"full_refund":    full,
	})
	if err != nil {
		logger.Log.Error("marshal refund details failed", zap.Error(err))
		return
	}

	action := &orderModel.OrderAction{
		OrderID: orderID,
		Action:  orderModel.ActionRefundCreated,
		Details: datatypes.JSON(details),
	}
	if adminID != "" {
		action.PerformedBy = &adminID
	}
	if err := s.orders.CreateAction(ctx, action); err != nil {
		logger.Log.Error("record refund action failed", zap.String("order_id", orderID), zap.String("refund_id", refund.ID), zap.Error(err))
	}
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
