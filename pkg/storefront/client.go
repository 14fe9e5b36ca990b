package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// 订单支付状态，与服务端保持一致
const (
	PaymentUnpaid   = "unpaid"
	PaymentPaid     = "paid"
	PaymentRefunded = "refunded"
	PaymentExpired  = "expired"
	PaymentFailed   = "failed"
)

// LineItem 订单行项目，金额单位为分
type LineItem struct {
	VariantID    string `json:"variant_id"`
	Quantity     int64  `json:"quantity"`
	PriceInCents int64  `json:"price_in_cents"`
	ProductTitle string `json:"product_title,omitempty"`
	VariantTitle string `json:"variant_title,omitempty"`
}

type ProgressStep struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
}

// OrderDraft 下单请求
type OrderDraft struct {
	Email         string     `json:"email"`
	Name          string     `json:"name,omitempty"`
	Platform      string     `json:"platform,omitempty"`
	Items         []LineItem `json:"items"`
	DiscountCents int64      `json:"discount_cents"`
	TotalCost     *int64     `json:"total_cost,omitempty"`
}

type Order struct {
	ID            string         `json:"id"`
	Email         string         `json:"email"`
	Name          string         `json:"name"`
	Items         []LineItem     `json:"items"`
	TotalCost     int64          `json:"total_cost"`
	Status        string         `json:"status"`
	PaymentStatus string         `json:"payment_status"`
	ProgressSteps []ProgressStep `json:"progress_steps"`
}

// PaymentSnapshot 轮询使用的精简订单视图
type PaymentSnapshot struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	PaymentStatus string         `json:"payment_status"`
	Email         string         `json:"email"`
	ProgressSteps []ProgressStep `json:"progress_steps"`
}

type CheckoutItem struct {
	VariantID string `json:"variant_id"`
	Quantity  int64  `json:"quantity"`
}

type CheckoutRequest struct {
	OrderID             string            `json:"orderId"`
	Items               []CheckoutItem    `json:"items"`
	CustomerEmail       string            `json:"customerEmail"`
	SuccessURL          string            `json:"successUrl"`
	CancelURL           string            `json:"cancelUrl"`
	DiscountAmountCents int64             `json:"discountAmountCents,omitempty"`
	Metadata            map[string]string `json:"metadata,omitempty"`
}

type CheckoutSession struct {
	URL       string `json:"url"`
	SessionID string `json:"sessionId"`
}

// APIError 服务端返回的非 2xx 响应
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("storefront api: %d %s", e.StatusCode, e.Message)
}

// IsNotFound 判断是否为 404
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client 店铺服务端 HTTP 客户端
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient 替换默认 http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken 设置 Bearer token
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope 一方接口的统一响应结构
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// CreateOrder 写入 pending/unpaid 订单
func (c *Client) CreateOrder(ctx context.Context, draft OrderDraft) (*Order, error) {
	var order Order
	if err := c.doEnvelope(ctx, http.MethodPost, "/orders", draft, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrder 订单详情
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var order Order
	if err := c.doEnvelope(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetPaymentStatus 订单支付状态
func (c *Client) GetPaymentStatus(ctx context.Context, orderID string) (*PaymentSnapshot, error) {
	var snapshot PaymentSnapshot
	if err := c.doEnvelope(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID)+"/payment", nil, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// CreateCheckoutSession 请求服务端创建托管支付会话
func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	var session CheckoutSession
	if err := c.doJSON(ctx, http.MethodPost, "/stripe-checkout", req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) doEnvelope(ctx context.Context, method, path string, body, out interface{}) error {
	var env envelope
	if err := c.doJSON(ctx, method, path, body, &env); err != nil {
		return err
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(data, resp.Status)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage 兼容 {error} 与 {code,message} 两种错误结构
func errorMessage(data []byte, fallback string) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &body) == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return fallback
}
