package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"storefront/internal/domain/order/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	testOrderID    = "6f1c2a9e-3b0d-4c6a-9f57-2a8e1d4b7c10"
	missingOrderID = "0b7d4e1a-8c2f-4f3e-a6d9-5e1b2c3d4f50"
)

func newMockDB(t *testing.T) (*gorm.DB, *sqlx.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return db, sqlx.NewDb(sqlDB, "pgx"), mock
}

func TestExpireIfUnpaid(t *testing.T) {
	db, _, mock := newMockDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	t.Run("still unpaid", func(t *testing.T) {
		mock.ExpectExec(`UPDATE "orders" SET .*payment_status = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := repo.ExpireIfUnpaid(ctx, testOrderID)
		assert.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("already terminal", func(t *testing.T) {
		mock.ExpectExec(`UPDATE "orders" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := repo.ExpireIfUnpaid(ctx, testOrderID)
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStampCheckoutSession(t *testing.T) {
	db, _, mock := newMockDB(t)
	repo := NewOrderRepository(db)

	mock.ExpectExec(`UPDATE "orders" SET "checkout_id"=\$1,"stripe_checkout_session_id"=\$2`).
		WithArgs("cs_test_1", "cs_test_1", sqlmock.AnyArg(), testOrderID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.StampCheckoutSession(context.Background(), testOrderID, "cs_test_1"))

	mock.ExpectExec(`UPDATE "orders" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.StampCheckoutSession(context.Background(), missingOrderID, "cs_test_2"), gorm.ErrRecordNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func orderRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "total_cost", "status", "payment_status", "refunded_cents", "items", "progress_steps"}).
		AddRow(testOrderID, "buyer@example.com", 2000, model.StatusPending, model.PaymentUnpaid, 0,
			[]byte(`[{"variant_id":"price_A","quantity":1,"price_in_cents":2000}]`),
			[]byte(`[{"status":"Order Placed","timestamp":"2024-01-01T00:00:00Z","description":"Order initiated."}]`))
}

func TestUpdateLocksRow(t *testing.T) {
	db, _, mock := newMockDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	t.Run("writes back changes", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "orders" WHERE id = \$1 .*FOR UPDATE`).
			WillReturnRows(orderRows())
		mock.ExpectExec(`UPDATE "orders" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		order, changed, err := repo.Update(ctx, testOrderID, func(o *model.Order) (bool, error) {
			o.SetPaymentStatus(model.PaymentPaid)
			o.AppendStep(model.StepPaymentConfirmed, "ok", time.Now())
			return true, nil
		})
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, model.PaymentPaid, order.PaymentStatus)
		assert.Len(t, order.ProgressSteps, 2)
	})

	t.Run("no change skips write", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(orderRows())
		mock.ExpectCommit()

		_, changed, err := repo.Update(ctx, testOrderID, func(o *model.Order) (bool, error) {
			return false, nil
		})
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("callback error rolls back", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(orderRows())
		mock.ExpectRollback()

		boom := errors.New("boom")
		_, _, err := repo.Update(ctx, testOrderID, func(o *model.Order) (bool, error) {
			return false, boom
		})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("missing order", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		_, _, err := repo.Update(ctx, missingOrderID, func(o *model.Order) (bool, error) {
			return true, nil
		})
		assert.True(t, IsNotFound(err))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActionRepository_ListByOrder(t *testing.T) {
	_, sqlxDB, mock := newMockDB(t)
	repo := NewActionRepository(sqlxDB)

	now := time.Now()
	mock.ExpectQuery(`SELECT id, order_id, action, performed_by, details, created_at\s+FROM order_actions`).
		WithArgs("o-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "action", "performed_by", "details", "created_at"}).
			AddRow("a-1", "o-1", model.ActionRefundCreated, "admin-1", []byte(`{"amount":500}`), now))

	actions, err := repo.ListByOrder(context.Background(), "o-1")
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, model.ActionRefundCreated, actions[0].Action)
	assert.Equal(t, "admin-1", *actions[0].PerformedBy)
	assert.JSONEq(t, `{"amount":500}`, string(actions[0].Details))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMalformedOrderID(t *testing.T) {
	db, _, mock := newMockDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, "abc")
	assert.True(t, IsNotFound(err))

	_, err = repo.GetPaymentSnapshot(ctx, "abc")
	assert.True(t, IsNotFound(err))

	_, _, err = repo.Update(ctx, "abc", func(o *model.Order) (bool, error) {
		return true, nil
	})
	assert.True(t, IsNotFound(err))

	assert.True(t, IsNotFound(repo.StampCheckoutSession(ctx, "abc", "cs_test_1")))

	ok, err := repo.ExpireIfUnpaid(ctx, "abc")
	assert.NoError(t, err)
	assert.False(t, ok)

	// 不应发出任何 SQL
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(gorm.ErrRecordNotFound))
	assert.True(t, IsNotFound(fmt.Errorf("load order: %w", &pgconn.PgError{Code: "22P02"})))
	assert.False(t, IsNotFound(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsNotFound(errors.New("connection refused")))
}
