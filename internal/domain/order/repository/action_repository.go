package repository

import (
	"context"

	"storefront/internal/domain/order/model"

	"github.com/jmoiron/sqlx"
)

// ActionRepository 管理后台操作日志读取，走 sqlx 只读查询
type ActionRepository interface {
	ListByOrder(ctx context.Context, orderID string) ([]model.OrderAction, error)
}

type actionRepository struct {
	db *sqlx.DB
}

func NewActionRepository(db *sqlx.DB) ActionRepository {
	return &actionRepository{db: db}
}

const listActionsSQL = `SELECT id, order_id, action, performed_by, details, created_at
FROM order_actions
WHERE order_id = $1
ORDER BY created_at ASC`

func (r *actionRepository) ListByOrder(ctx context.Context, orderID string) ([]model.OrderAction, error) {
	actions := make([]model.OrderAction, 0)
	if err := r.db.SelectContext(ctx, &actions, listActionsSQL, orderID); err != nil {
		return nil, err
	}
	return actions, nil
}
