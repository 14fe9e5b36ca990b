package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"storefront/pkg/storefront"

	"github.com/spf13/cobra"
	"github.com/stripe/stripe-go/v76/webhook"
)

// 模拟支付服务商对同一订单重复、并发投递支付完成回调
// 结束后读取订单，确认只追加了一条 "Payment Confirmed"
type options struct {
	baseURL     string
	token       string
	secret      string
	orderID     string
	deliveries  int
	distinctIDs int
}

var httpClient *http.Client

func init() {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 500
	t.MaxIdleConnsPerHost = 500
	t.MaxConnsPerHost = 500
	httpClient = &http.Client{
		Transport: t,
		Timeout:   10 * time.Second,
	}
}

func main() {
	var opts options
	cmd := &cobra.Command{
		Use:   "stress_tool",
		Short: "Replay signed checkout completion webhooks concurrently against one order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.baseURL, "api", "http://localhost:8080", "server base URL")
	cmd.Flags().StringVar(&opts.token, "token", os.Getenv("STOREFRONT_TOKEN"), "bearer token able to read the order")
	cmd.Flags().StringVar(&opts.secret, "secret", os.Getenv("STRIPE_WEBHOOK_SECRET"), "webhook signing secret")
	cmd.Flags().StringVar(&opts.orderID, "order", "", "unpaid order id")
	cmd.Flags().IntVar(&opts.deliveries, "deliveries", 200, "total webhook deliveries")
	cmd.Flags().IntVar(&opts.distinctIDs, "events", 5, "distinct event ids spread over the deliveries")
	_ = cmd.MarkFlagRequired("order")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	if opts.secret == "" {
		return fmt.Errorf("webhook signing secret is required")
	}
	if opts.distinctIDs < 1 {
		opts.distinctIDs = 1
	}

	fmt.Printf("开始压测：%d 次回调投递（%d 个不同事件）到订单 %s ...\n", opts.deliveries, opts.distinctIDs, opts.orderID)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		statuses = make(map[int]int)
		failures int
	)

	start := time.Now()
	for i := 0; i < opts.deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			code, err := deliver(ctx, opts, fmt.Sprintf("evt_stress_%d", i%opts.distinctIDs))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				return
			}
			statuses[code]++
		}(i)
	}
	wg.Wait()
	duration := time.Since(start)

	client := storefront.NewClient(opts.baseURL, storefront.WithToken(opts.token), storefront.WithHTTPClient(httpClient))
	order, err := client.GetOrder(ctx, opts.orderID)
	if err != nil {
		return fmt.Errorf("读取订单失败: %w", err)
	}

	confirmed := 0
	for _, step := range order.ProgressSteps {
		if step.Status == "Payment Confirmed" {
			confirmed++
		}
	}

	fmt.Println("--------------------------------------------------")
	fmt.Printf("压测结束，耗时: %v\n", duration)
	fmt.Printf("QPS: %.2f\n", float64(opts.deliveries)/duration.Seconds())
	for code, n := range statuses {
		fmt.Printf("HTTP %d: %d\n", code, n)
	}
	fmt.Printf("请求失败: %d\n", failures)
	fmt.Printf("订单支付状态: %s\n", order.PaymentStatus)
	fmt.Printf("Payment Confirmed 条数: %d (预期: 1)\n", confirmed)
	fmt.Println("--------------------------------------------------")

	if confirmed != 1 || order.PaymentStatus != storefront.PaymentPaid {
		return fmt.Errorf("idempotency violated: %d confirmations, payment_status=%s", confirmed, order.PaymentStatus)
	}
	return nil
}

func deliver(ctx context.Context, opts options, eventID string) (int, error) {
	payload := []byte(fmt.Sprintf(
		`{"id":%q,"object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_stress","object":"checkout.session","amount_total":2000,"currency":"eur","payment_intent":"pi_stress","metadata":{"order_id":%q}}}}`,
		eventID, opts.orderID,
	))
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    opts.secret,
		Timestamp: time.Now(),
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, opts.baseURL+"/stripe-webhook", bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signed.Header)

	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
