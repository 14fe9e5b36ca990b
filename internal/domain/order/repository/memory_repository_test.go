package repository

import (
	"context"
	"testing"
	"time"

	"storefront/internal/domain/order/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepositoryReturnsCopies(t *testing.T) {
	repo := NewMemoryOrderRepository()
	ctx := context.Background()

	o := &model.Order{Email: "buyer@example.com", TotalCost: 2000, Status: model.StatusPending, PaymentStatus: model.PaymentUnpaid}
	o.AppendStep(model.StepOrderPlaced, "Order placed", time.Now())
	require.NoError(t, repo.Create(ctx, o))

	got, err := repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	got.ProgressSteps[0].Description = "changed"
	got.Email = "other@example.com"

	again, err := repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "Order placed", again.ProgressSteps[0].Description)
	assert.Equal(t, "buyer@example.com", again.Email)
}

func TestMemoryRepositoryRejectsUnencodableOrder(t *testing.T) {
	repo := NewMemoryOrderRepository()

	// 年份超出 RFC 3339 范围，json 编码失败
	o := &model.Order{Email: "buyer@example.com"}
	o.ProgressSteps = append(o.ProgressSteps, model.ProgressStep{
		Status:    model.StepOrderPlaced,
		Timestamp: time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	assert.Panics(t, func() {
		_ = repo.Create(context.Background(), o)
	})
}
