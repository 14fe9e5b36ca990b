package utils

import (
	"testing"

	"storefront/internal/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	config.GlobalConfig.JWT.Secret = "0123456789abcdef0123456789abcdef"
	config.GlobalConfig.JWT.Expire = 1

	token, expireAt, err := GenerateToken("profile-1", "buyer@example.com")
	require.NoError(t, err)
	require.NotNil(t, expireAt)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "profile-1", claims.UserID)
	assert.Equal(t, "buyer@example.com", claims.Email)

	t.Run("wrong secret", func(t *testing.T) {
		config.GlobalConfig.JWT.Secret = "another-secret-another-secret-xx"
		defer func() { config.GlobalConfig.JWT.Secret = "0123456789abcdef0123456789abcdef" }()

		_, err := ParseToken(token)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParseToken("not-a-token")
		assert.Error(t, err)
	})
}

func TestPagination(t *testing.T) {
	p := Pagination{}
	offset, limit := p.GetPageOffset()
	assert.Equal(t, 0, offset)
	assert.Equal(t, 10, limit)

	p = Pagination{Page: 3, Limit: 500}
	offset, limit = p.GetPageOffset()
	assert.Equal(t, 200, offset)
	assert.Equal(t, 100, limit)
}
