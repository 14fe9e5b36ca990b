package worker

import (
	"context"
	"sync"
	"time"

	"storefront/pkg/logger"
	"storefront/pkg/metrics"

	"go.uber.org/zap"
)

// 任务类型
const (
	TaskPaymentConfirmed = "payment_confirmed"
	TaskPaymentFailed    = "payment_failed"
	TaskRefundCreated    = "refund_created"
)

// Task 支付事件后的异步通知任务
type Task struct {
	Kind      string
	ProfileID string
	OrderID   string
	Title     string
	Message   string
	Retry     int // 重试次数
}

// HandlerFunc 任务处理函数
type HandlerFunc func(ctx context.Context, task Task) error

// Pool 通知任务协程池，失败任务进入重试队列
type Pool struct {
	taskQueue  chan Task
	retryQueue chan Task
	handlers   map[string]HandlerFunc
	mu         sync.RWMutex

	workerNum  int
	maxRetry   int
	retryDelay time.Duration
	timeout    time.Duration
	metrics    *metrics.MetricsCollector

	quit     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewPool 创建协程池，collector 可为 nil
func NewPool(workerNum, bufferSize int, collector *metrics.MetricsCollector) *Pool {
	if workerNum <= 0 {
		workerNum = 1
	}
	if bufferSize <= 1 {
		bufferSize = 2
	}
	return &Pool{
		taskQueue:  make(chan Task, bufferSize),
		retryQueue: make(chan Task, bufferSize/2),
		handlers:   make(map[string]HandlerFunc),
		workerNum:  workerNum,
		maxRetry:   3, // 最多重试3次
		retryDelay: time.Second,
		timeout:    10 * time.Second,
		metrics:    collector,
		quit:       make(chan struct{}),
	}
}

// Handle 注册任务处理函数
func (p *Pool) Handle(kind string, fn HandlerFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[kind] = fn
}

// SetRetryDelay 设置重试基础间隔，第 n 次重试等待 n 倍间隔
func (p *Pool) SetRetryDelay(d time.Duration) {
	p.retryDelay = d
}

func (p *Pool) Start() {
	for i := 0; i < p.workerNum; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	// 启动重试处理协程
	p.wg.Add(1)
	go p.retryWorker()
	logger.Log.Info("worker pool started", zap.Int("workers", p.workerNum))
}

// Stop 停止所有协程，等待正在执行的任务结束
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		close(p.quit)
		p.wg.Wait()
		logger.Log.Info("worker pool stopped", zap.Int("pending", len(p.taskQueue)+len(p.retryQueue)))
	})
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.quit:
			return
		case task := <-p.taskQueue:
			p.run(id, task)
		}
	}
}

func (p *Pool) run(id int, task Task) {
	err := p.processTask(task)
	if p.metrics != nil {
		p.metrics.RecordWorkerTask(task.Kind, err == nil)
	}
	if err == nil {
		return
	}

	logger.Log.Warn("task failed",
		zap.Int("worker", id),
		zap.String("kind", task.Kind),
		zap.String("order_id", task.OrderID),
		zap.Int("retry", task.Retry),
		zap.Error(err),
	)

	// 如果未达到最大重试次数，加入重试队列
	if task.Retry >= p.maxRetry {
		p.logFailedTask(task, err)
		return
	}
	task.Retry++
	select {
	case p.retryQueue <- task:
	default:
		p.logFailedTask(task, err)
	}
}

func (p *Pool) retryWorker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.quit:
			return
		case task := <-p.retryQueue:
			// 延迟重试，避免立即重试
			select {
			case <-p.quit:
				return
			case <-time.After(time.Duration(task.Retry) * p.retryDelay):
			}

			select {
			case p.taskQueue <- task:
			default:
				p.logFailedTask(task, nil)
			}
		}
	}
}

func (p *Pool) processTask(task Task) error {
	p.mu.RLock()
	fn, ok := p.handlers[task.Kind]
	p.mu.RUnlock()
	if !ok {
		logger.Log.Warn("no handler for task", zap.String("kind", task.Kind))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	return fn(ctx, task)
}

func (p *Pool) logFailedTask(task Task, err error) {
	logger.Log.Error("task dropped",
		zap.String("kind", task.Kind),
		zap.String("order_id", task.OrderID),
		zap.String("profile_id", task.ProfileID),
		zap.Int("retry", task.Retry),
		zap.Error(err),
	)
}

// Enqueue 投递任务，队列已满时丢弃并返回 false
func (p *Pool) Enqueue(task Task) bool {
	select {
	case p.taskQueue <- task:
		return true
	default:
		p.logFailedTask(task, nil)
		return false
	}
}
