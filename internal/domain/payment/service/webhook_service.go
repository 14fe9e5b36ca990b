package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	orderModel "storefront/internal/domain/order/model"
	orderRepo "storefront/internal/domain/order/repository"
	"storefront/internal/domain/payment/strategy"
	"storefront/internal/pkg/worker"
	"storefront/pkg/cache"
	"storefront/pkg/logger"
	"storefront/pkg/metrics"

	"go.uber.org/zap"
)

// 事件处理结果
const (
	OutcomeApplied   = "applied"
	OutcomeSkipped   = "skipped"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
	OutcomeError     = "error"
)

const (
	// processedEventTTL 覆盖服务商的重试窗口
	processedEventTTL    = 72 * time.Hour
	processedEventPrefix = "webhook_event:"

	defaultFailureMessage = "Payment could not be processed."
)

type WebhookService interface {
	// Handle 验签并处理事件，签名错误返回 strategy.ErrInvalidSignature
	Handle(ctx context.Context, payload []byte, signature string) (string, error)
}

type webhookService struct {
	gateway    strategy.PaymentGateway
	orders     orderRepo.OrderRepository
	dedupe     cache.CacheService
	dispatcher Dispatcher
	metrics    *metrics.MetricsCollector
	now        func() time.Time
}

// NewWebhookService dedupe、dispatcher、collector 均可为 nil
func NewWebhookService(gateway strategy.PaymentGateway, orders orderRepo.OrderRepository, dedupe cache.CacheService, dispatcher Dispatcher, collector *metrics.MetricsCollector) WebhookService {
	return &webhookService{
		gateway:    gateway,
		orders:     orders,
		dedupe:     dedupe,
		dispatcher: dispatcher,
		metrics:    collector,
		now:        time.Now,
	}
}

// FormatAmount 金额展示: 2000 eur -> "20.00 EUR"
func FormatAmount(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, strings.ToUpper(currency))
}

func (s *webhookService) Handle(ctx context.Context, payload []byte, signature string) (string, error) {
	evt, err := s.gateway.ParseEvent(payload, signature)
	if err != nil {
		return "", err
	}

	outcome, err := s.process(ctx, evt)
	if err != nil {
		outcome = OutcomeError
	}
	if s.metrics != nil {
		s.metrics.RecordWebhookEvent(evt.Type, outcome)
	}
	return outcome, err
}

func (s *webhookService) process(ctx context.Context, evt *strategy.Event) (string, error) {
	switch evt.Type {
	case strategy.EventCheckoutCompleted, strategy.EventCheckoutExpired, strategy.EventPaymentIntentFailed:
	default:
		logger.Log.Debug("unhandled webhook event", zap.String("type", evt.Type))
		return OutcomeIgnored, nil
	}

	// 同一事件重复投递直接确认，Redis 不可用时依赖状态机兜底
	key := processedEventPrefix + evt.ID
	if s.dedupe != nil && evt.ID != "" {
		first, err := s.dedupe.SetNX(ctx, key, s.now().Unix(), processedEventTTL)
		if err != nil {
			logger.Log.Warn("webhook dedupe unavailable", zap.String("event_id", evt.ID), zap.Error(err))
		} else if !first {
			return OutcomeDuplicate, nil
		}
	}

	var outcome string
	var err error
	switch evt.Type {
	case strategy.EventCheckoutCompleted:
		outcome, err = s.handleCompleted(ctx, evt.Session)
	case strategy.EventCheckoutExpired:
		outcome, err = s.handleExpired(ctx, evt.Session)
	case strategy.EventPaymentIntentFailed:
		outcome, err = s.handleFailed(ctx, evt.PaymentIntent)
	}

	if err != nil && s.dedupe != nil && evt.ID != "" {
		// 处理失败需要允许服务商重试
		if delErr := s.dedupe.Delete(ctx, key); delErr != nil {
			logger.Log.Warn("release webhook dedupe key failed", zap.String("event_id", evt.ID), zap.Error(delErr))
		}
	}
	return outcome, err
}

func (s *webhookService) handleCompleted(ctx context.Context, session *strategy.Session) (string, error) {
	if session == nil || session.Metadata["order_id"] == "" {
		return OutcomeIgnored, nil
	}
	orderID := session.Metadata["order_id"]

	amount := "Unknown amount"
	if session.AmountTotal > 0 {
		amount = FormatAmount(session.AmountTotal, session.Currency)
	}

	order, changed, err := s.orders.Update(ctx, orderID, func(o *orderModel.Order) (bool, error) {
		if !o.SetPaymentStatus(orderModel.PaymentPaid) {
			return false, nil
		}
		now := s.now()
		o.Status = orderModel.StatusProcessing
		if session.PaymentIntentID != "" {
			pi := session.PaymentIntentID
			o.StripePaymentIntentID = &pi
		}
		o.AppendStep(orderModel.StepPaymentConfirmed, fmt.Sprintf("Payment of %s received via Stripe.", amount), now)
		o.AppendStep(orderModel.StepProcessingStarted, "Your order is now being processed.", now)
		return true, nil
	})
	if err != nil {
		if orderRepo.IsNotFound(err) {
			logger.Log.Warn("webhook for unknown order", zap.String("order_id", orderID))
			return OutcomeIgnored, nil
		}
		return "", fmt.Errorf("mark order %s paid: %w", orderID, err)
	}
	if !changed {
		logger.Log.Info("order already settled, completion skipped",
			zap.String("order_id", orderID), zap.String("payment_status", order.PaymentStatus))
		return OutcomeSkipped, nil
	}

	logger.Log.Info("order marked as paid", zap.String("order_id", orderID), zap.String("session_id", session.ID))
	s.notify(order, worker.TaskPaymentConfirmed, "Payment Confirmed",
		fmt.Sprintf("We received your payment of %s. Your order is now being processed.", amount))
	return OutcomeApplied, nil
}

func (s *webhookService) handleExpired(ctx context.Context, session *strategy.Session) (string, error) {
	if session == nil || session.Metadata["order_id"] == "" {
		return OutcomeIgnored, nil
	}
	orderID := session.Metadata["order_id"]

	changed, err := s.orders.ExpireIfUnpaid(ctx, orderID)
	if err != nil {
		if orderRepo.IsNotFound(err) {
			logger.Log.Warn("webhook for unknown order", zap.String("order_id", orderID))
			return OutcomeIgnored, nil
		}
		return "", fmt.Errorf("expire order %s: %w", orderID, err)
	}
	if !changed {
		return OutcomeSkipped, nil
	}
	logger.Log.Info("order marked as expired", zap.String("order_id", orderID))
	return OutcomeApplied, nil
}

func (s *webhookService) handleFailed(ctx context.Context, pi *strategy.PaymentIntent) (string, error) {
	if pi == nil || pi.Metadata["order_id"] == "" {
		return OutcomeIgnored, nil
	}
	orderID := pi.Metadata["order_id"]

	message := pi.LastErrorMessage
	if message == "" {
		message = defaultFailureMessage
	}

	order, changed, err := s.orders.Update(ctx, orderID, func(o *orderModel.Order) (bool, error) {
		if !o.SetPaymentStatus(orderModel.PaymentFailed) {
			return false, nil
		}
		o.AppendStep(orderModel.StepPaymentFailed, message, s.now())
		return true, nil
	})
	if err != nil {
		if orderRepo.IsNotFound(err) {
			logger.Log.Warn("webhook for unknown order", zap.String("order_id", orderID))
			return OutcomeIgnored, nil
		}
		return "", fmt.Errorf("mark order %s failed: %w", orderID, err)
	}
	if !changed {
		return OutcomeSkipped, nil
	}

	logger.Log.Info("order marked as failed", zap.String("order_id", orderID))
	s.notify(order, worker.TaskPaymentFailed, "Payment Failed", message)
	return OutcomeApplied, nil
}

func (s *webhookService) notify(order *orderModel.Order, kind, title, message string) {
	if s.dispatcher == nil || order.ProfileID == nil {
		return
	}
	s.dispatcher.Enqueue(worker.Task{
		Kind:      kind,
		ProfileID: *order.ProfileID,
		OrderID:   order.ID,
		Title:     title,
		Message:   message,
	})
}
