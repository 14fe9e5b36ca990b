package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain/notification/model"
	"storefront/internal/domain/notification/repository"
	"storefront/internal/pkg/push"
	"storefront/internal/pkg/worker"
	"storefront/pkg/logger"
	"storefront/pkg/utils"

	"go.uber.org/zap"
)

var ErrNotificationNotFound = errors.New("notification not found")

// InboxResult 通知列表，附带未读数
type InboxResult struct {
	utils.PageResult
	Unread int64 `json:"unread"`
}

type NotificationService interface {
	// Deliver 处理异步任务：写入通知并推送到移动端
	Deliver(ctx context.Context, task worker.Task) error
	List(ctx context.Context, profileID string, unreadOnly bool, page utils.Pagination) (*InboxResult, error)
	MarkRead(ctx context.Context, profileID, id string) error
	MarkAllRead(ctx context.Context, profileID string) (int64, error)
}

type notificationService struct {
	repo   repository.NotificationRepository
	pusher push.PushService
}

// NewNotificationService pusher 为 nil 时只写站内通知
func NewNotificationService(repo repository.NotificationRepository, pusher push.PushService) NotificationService {
	return &notificationService{repo: repo, pusher: pusher}
}

func (s *notificationService) Deliver(ctx context.Context, task worker.Task) error {
	if task.ProfileID == "" {
		return nil
	}

	n := &model.Notification{
		ProfileID: task.ProfileID,
		Title:     task.Title,
		Message:   task.Message,
	}
	if task.OrderID != "" {
		orderID := task.OrderID
		n.OrderID = &orderID
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	// 推送失败不重试，否则会重复写入站内通知
	if s.pusher != nil {
		ext := map[string]string{"type": task.Kind, "order_id": task.OrderID}
		if err := s.pusher.PushToAccount(task.ProfileID, task.Title, task.Message, ext); err != nil {
			logger.Log.Warn("push notification failed",
				zap.String("profile_id", task.ProfileID),
				zap.String("kind", task.Kind),
				zap.Error(err))
		}
	}
	return nil
}

func (s *notificationService) List(ctx context.Context, profileID string, unreadOnly bool, page utils.Pagination) (*InboxResult, error) {
	offset, limit := page.GetPageOffset()
	list, total, err := s.repo.ListByProfile(ctx, profileID, unreadOnly, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	unread, err := s.repo.CountUnread(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("count unread notifications: %w", err)
	}
	return &InboxResult{
		PageResult: utils.NewPageResult(list, total, page),
		Unread:     unread,
	}, nil
}

func (s *notificationService) MarkRead(ctx context.Context, profileID, id string) error {
	if err := s.repo.MarkRead(ctx, profileID, id); err != nil {
		if repository.IsNotFound(err) {
			return ErrNotificationNotFound
		}
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, profileID string) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, profileID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return n, nil
}
