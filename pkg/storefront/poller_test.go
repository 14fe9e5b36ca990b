package storefront

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedFetcher 按顺序返回支付状态，超出脚本后保持最后一个
type scriptedFetcher struct {
	mu       sync.Mutex
	initial  string
	statuses []string
	err      error
	errAt    int
	fetches  int
}

func (f *scriptedFetcher) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.err != nil && f.errAt == f.fetches {
		return nil, f.err
	}
	return &Order{ID: orderID, Email: "buyer@example.com", PaymentStatus: f.initial, Status: "pending"}, nil
}

func (f *scriptedFetcher) GetPaymentStatus(ctx context.Context, orderID string) (*PaymentSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.err != nil && f.errAt == f.fetches {
		return nil, f.err
	}
	idx := f.fetches - 2
	status := PaymentUnpaid
	if len(f.statuses) > 0 {
		if idx >= len(f.statuses) {
			idx = len(f.statuses) - 1
		}
		status = f.statuses[idx]
	}
	snapshot := &PaymentSnapshot{ID: orderID, PaymentStatus: status, Status: "pending", Email: "buyer@example.com"}
	if status == PaymentPaid {
		snapshot.Status = "processing"
	}
	return snapshot, nil
}

type countingCart struct{ clears int }

func (c *countingCart) Clear() error {
	c.clears++
	return nil
}

type noticeLog struct{ notices []Notice }

func (n *noticeLog) Notify(notice Notice) { n.notices = append(n.notices, notice) }

func newTestPoller(f OrderFetcher, cart CartClearer, notices Notifier) (*Poller, *[]time.Duration) {
	p := NewPoller(f, cart, notices)
	var slept []time.Duration
	p.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	return p, &slept
}

func TestPoller_AlreadyPaid(t *testing.T) {
	f := &scriptedFetcher{initial: PaymentPaid}
	cart := &countingCart{}
	notices := &noticeLog{}
	p, slept := newTestPoller(f, cart, notices)

	res := p.Run(context.Background(), "order-1")

	assert.Equal(t, StateSuccess, res.State)
	assert.True(t, res.Confirmed)
	assert.Equal(t, 1, res.Fetches)
	assert.Equal(t, 1, cart.clears)
	assert.Empty(t, *slept)
	assert.Empty(t, notices.notices)
}

func TestPoller_PaidDuringPolling(t *testing.T) {
	f := &scriptedFetcher{initial: PaymentUnpaid, statuses: []string{PaymentUnpaid, PaymentUnpaid, PaymentPaid}}
	cart := &countingCart{}
	notices := &noticeLog{}
	p, slept := newTestPoller(f, cart, notices)

	res := p.Run(context.Background(), "order-1")

	assert.Equal(t, StateSuccess, res.State)
	assert.True(t, res.Confirmed)
	assert.Equal(t, 4, res.Fetches)
	assert.Equal(t, "processing", res.Order.Status)
	assert.Len(t, *slept, 3)
	assert.Equal(t, 1, cart.clears)
	require.Len(t, notices.notices, 1)
	assert.Equal(t, "Order Confirmed", notices.notices[0].Title)
	assert.Contains(t, notices.notices[0].Description, "buyer@example.com")
}

func TestPoller_OptimisticSuccessAfterBoundedAttempts(t *testing.T) {
	f := &scriptedFetcher{initial: PaymentUnpaid}
	cart := &countingCart{}
	notices := &noticeLog{}
	p, slept := newTestPoller(f, cart, notices)

	res := p.Run(context.Background(), "order-1")

	assert.Equal(t, StateSuccess, res.State)
	assert.False(t, res.Confirmed)
	assert.Equal(t, 1+DefaultPollAttempts, res.Fetches)
	assert.Equal(t, 1+DefaultPollAttempts, f.fetches)

	require.Len(t, *slept, DefaultPollAttempts)
	var waited time.Duration
	for _, d := range *slept {
		waited += d
	}
	assert.Equal(t, 10*time.Second, waited)

	assert.Equal(t, 1, cart.clears)
	require.Len(t, notices.notices, 1)
	assert.Equal(t, "Order Received", notices.notices[0].Title)
}

func TestPoller_MissingOrderID(t *testing.T) {
	f := &scriptedFetcher{}
	p, _ := newTestPoller(f, &countingCart{}, nil)

	res := p.Run(context.Background(), "")

	assert.Equal(t, StateError, res.State)
	assert.ErrorIs(t, res.Err, ErrMissingOrderID)
	assert.Zero(t, f.fetches)
}

func TestPoller_FetchErrorStopsLoop(t *testing.T) {
	tests := []struct {
		name  string
		errAt int
	}{
		{"initial fetch", 1},
		{"poll fetch", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &scriptedFetcher{initial: PaymentUnpaid, err: errors.New("connection reset"), errAt: tt.errAt}
			cart := &countingCart{}
			notices := &noticeLog{}
			p, _ := newTestPoller(f, cart, notices)

			res := p.Run(context.Background(), "order-1")

			assert.Equal(t, StateError, res.State)
			assert.Equal(t, tt.errAt, res.Fetches)
			assert.Equal(t, tt.errAt, f.fetches)
			assert.Zero(t, cart.clears)
			require.Len(t, notices.notices, 1)
			assert.True(t, notices.notices[0].Destructive)
		})
	}
}

func TestPoller_ContextCancelled(t *testing.T) {
	f := &scriptedFetcher{initial: PaymentUnpaid}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p, _ := newTestPoller(f, &countingCart{}, nil)
	res := p.Run(ctx, "order-1")

	assert.Equal(t, StateError, res.State)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Equal(t, 1, f.fetches)
}

func TestPoller_RunsOnce(t *testing.T) {
	f := &scriptedFetcher{initial: PaymentUnpaid, statuses: []string{PaymentPaid}}
	cart := &countingCart{}
	p, _ := newTestPoller(f, cart, nil)

	var wg sync.WaitGroup
	results := make([]PollResult, 3)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = p.Run(context.Background(), "order-1")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 2, f.fetches)
	assert.Equal(t, 1, cart.clears)
	for _, res := range results {
		assert.Equal(t, StateSuccess, res.State)
	}
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
