package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPoolProcessesTask(t *testing.T) {
	p := NewPool(2, 10, nil)
	done := make(chan Task, 1)
	p.Handle(TaskPaymentConfirmed, func(ctx context.Context, task Task) error {
		done <- task
		return nil
	})
	p.Start()
	defer p.Stop()

	assert.True(t, p.Enqueue(Task{Kind: TaskPaymentConfirmed, OrderID: "o-1"}))

	select {
	case task := <-done:
		assert.Equal(t, "o-1", task.OrderID)
	case <-time.After(2 * time.Second):
		t.Fatal("task was not processed")
	}
}

func TestPoolRetriesFailedTask(t *testing.T) {
	p := NewPool(1, 10, nil)
	p.SetRetryDelay(time.Millisecond)

	var attempts int32
	done := make(chan struct{})
	p.Handle(TaskRefundCreated, func(ctx context.Context, task Task) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("temporary")
		}
		close(done)
		return nil
	})
	p.Start()
	defer p.Stop()

	p.Enqueue(Task{Kind: TaskRefundCreated, OrderID: "o-2"})

	select {
	case <-done:
		assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
	case <-time.After(2 * time.Second):
		t.Fatal("task was not retried")
	}
}

func TestPoolQueueFull(t *testing.T) {
	// 未启动的协程池不会消费任务
	p := NewPool(1, 2, nil)
	assert.True(t, p.Enqueue(Task{Kind: TaskPaymentFailed}))
	assert.True(t, p.Enqueue(Task{Kind: TaskPaymentFailed}))
	assert.False(t, p.Enqueue(Task{Kind: TaskPaymentFailed}))
}
