package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	t.Run("wrapped unique violation", func(t *testing.T) {
		err := fmt.Errorf("insert order: %w", &pgconn.PgError{Code: "23505"})
		assert.True(t, IsUniqueViolation(err))
		assert.False(t, IsForeignKeyViolation(err))
	})

	t.Run("foreign key violation", func(t *testing.T) {
		err := &pgconn.PgError{Code: "23503"}
		assert.True(t, IsForeignKeyViolation(err))
		assert.False(t, IsUniqueViolation(err))
	})

	t.Run("plain error", func(t *testing.T) {
		assert.False(t, IsUniqueViolation(errors.New("boom")))
	})
}
