package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/internal/domain/order/model"
	"storefront/internal/domain/order/repository"
	"storefront/internal/domain/order/service"
	"storefront/internal/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRoleResolver struct {
	mock.Mock
}

func (m *MockRoleResolver) GetRole(ctx context.Context, profileID string) (string, error) {
	args := m.Called(ctx, profileID)
	return args.String(0), args.Error(1)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setupRouter(svc service.OrderService, roles middleware.RoleResolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewOrderHandler(svc, roles)

	r := gin.New()
	// 测试中通过请求头模拟已认证用户
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, c.GetHeader("X-Test-User"))
		c.Set(middleware.ContextEmail, "token@example.com")
		c.Next()
	})
	r.POST("/orders", h.CreateOrder)
	r.GET("/orders/:id", h.GetOrder)
	r.GET("/orders/:id/payment", h.GetPaymentStatus)
	return r
}

func do(r *gin.Engine, method, path, user string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", user)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestCreateAndReadOrder(t *testing.T) {
	repo := repository.NewMemoryOrderRepository()
	roles := new(MockRoleResolver)
	r := setupRouter(service.NewOrderService(repo, repo), roles)

	w, env := do(r, http.MethodPost, "/orders", "owner-1", CreateOrderInput{
		Items:     []model.LineItem{{VariantID: "price_A", Quantity: 1, PriceInCents: 2000}},
		TotalCost: func() *int64 { v := int64(2000); return &v }(),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var created model.Order
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "token@example.com", created.Email)
	assert.Equal(t, int64(2000), created.TotalCost)

	t.Run("owner reads payment snapshot", func(t *testing.T) {
		w, env := do(r, http.MethodGet, "/orders/"+created.ID+"/payment", "owner-1", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var snapshot model.PaymentSnapshot
		require.NoError(t, json.Unmarshal(env.Data, &snapshot))
		assert.Equal(t, model.PaymentUnpaid, snapshot.PaymentStatus)
	})

	t.Run("stranger is forbidden", func(t *testing.T) {
		roles.On("GetRole", mock.Anything, "stranger").Return("customer", nil).Once()
		w, _ := do(r, http.MethodGet, "/orders/"+created.ID, "stranger", nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin can read", func(t *testing.T) {
		roles.On("GetRole", mock.Anything, "admin-1").Return(middleware.RoleAdmin, nil).Once()
		w, _ := do(r, http.MethodGet, "/orders/"+created.ID, "admin-1", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown order", func(t *testing.T) {
		w, _ := do(r, http.MethodGet, "/orders/missing", "owner-1", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestCreateOrderValidation(t *testing.T) {
	repo := repository.NewMemoryOrderRepository()
	r := setupRouter(service.NewOrderService(repo, repo), new(MockRoleResolver))

	w, _ := do(r, http.MethodPost, "/orders", "owner-1", CreateOrderInput{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(r, http.MethodPost, "/orders", "owner-1", CreateOrderInput{
		Items: []model.LineItem{{VariantID: "price_A", Quantity: 0, PriceInCents: 2000}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
