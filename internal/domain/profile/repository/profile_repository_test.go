package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return db, mock
}

func TestProfileRepository_GetRole(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProfileRepository(db)

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT "role" FROM "profiles" WHERE id = \$1`).
			WithArgs("p-1", 1).
			WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("admin"))

		role, err := repo.GetRole(context.Background(), "p-1")
		assert.NoError(t, err)
		assert.Equal(t, "admin", role)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT "role" FROM "profiles"`).
			WithArgs("missing", 1).
			WillReturnRows(sqlmock.NewRows([]string{"role"}))

		_, err := repo.GetRole(context.Background(), "missing")
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
