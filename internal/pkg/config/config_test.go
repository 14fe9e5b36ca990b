package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	return Config{
		Database: DatabaseConfig{Host: "localhost", User: "storefront", DBName: "storefront"},
		Redis:    RedisConfig{Addr: "localhost:6379"},
		JWT:      JWTConfig{Secret: "0123456789abcdef0123456789abcdef"},
		Stripe:   StripeConfig{SecretKey: "sk_test_1", WebhookSecret: "whsec_1"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"placeholder jwt secret", func(c *Config) { c.JWT.Secret = "your_super_secret_key" }, "please set a secure JWT secret in production"},
		{"short jwt secret", func(c *Config) { c.JWT.Secret = "short" }, "JWT secret should be at least 32 characters"},
		{"missing database", func(c *Config) { c.Database.Host = "" }, "database configuration is incomplete"},
		{"missing redis", func(c *Config) { c.Redis.Addr = "" }, "redis address is required"},
		{"missing stripe key", func(c *Config) { c.Stripe.SecretKey = "" }, "stripe secret key is required"},
		{"missing webhook secret", func(c *Config) { c.Stripe.WebhookSecret = "" }, "stripe webhook signing secret is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}
