package database

import (
	"database/sql"
	"sync"
	"time"

	"storefront/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// PoolSnapshot 连接池快照
type PoolSnapshot struct {
	Timestamp       time.Time     `json:"timestamp"`
	OpenConnections int           `json:"open_connections"`
	InUse           int           `json:"in_use"`
	Idle            int           `json:"idle"`
	WaitCount       int64         `json:"wait_count"`
	WaitDuration    time.Duration `json:"wait_duration"`
}

// PoolMonitor 定期采样连接池，连接耗尽或出现排队时告警
type PoolMonitor struct {
	db       *sql.DB
	interval time.Duration
	// alertRatio 使用中连接占上限的比例超过该值时告警
	alertRatio float64

	mu   sync.RWMutex
	last PoolSnapshot

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewPoolMonitor(db *sql.DB, interval time.Duration) *PoolMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &PoolMonitor{
		db:         db,
		interval:   interval,
		alertRatio: 0.8,
		stopCh:     make(chan struct{}),
	}
}

// RegisterMetrics 把 database/sql 的连接池指标注册到 Prometheus
func (m *PoolMonitor) RegisterMetrics(reg prometheus.Registerer, dbName string) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return reg.Register(collectors.NewDBStatsCollector(m.db, dbName))
}

func (m *PoolMonitor) Start() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.Sample()
			}
		}
	}()
}

func (m *PoolMonitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.wg.Wait()
	})
}

// Sample 采样一次并检查告警条件
func (m *PoolMonitor) Sample() PoolSnapshot {
	stats := m.db.Stats()
	snap := PoolSnapshot{
		Timestamp:       time.Now(),
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
		Idle:            stats.Idle,
		WaitCount:       stats.WaitCount,
		WaitDuration:    stats.WaitDuration,
	}

	m.mu.Lock()
	prev := m.last
	m.last = snap
	m.mu.Unlock()

	if stats.MaxOpenConnections > 0 && float64(stats.InUse) >= float64(stats.MaxOpenConnections)*m.alertRatio {
		logger.Log.Warn("database pool near exhaustion",
			zap.Int("in_use", stats.InUse),
			zap.Int("max_open", stats.MaxOpenConnections))
	}
	if !prev.Timestamp.IsZero() && snap.WaitCount > prev.WaitCount {
		logger.Log.Warn("database pool requests waited for a connection",
			zap.Int64("waits", snap.WaitCount-prev.WaitCount),
			zap.Duration("wait_duration", snap.WaitDuration-prev.WaitDuration))
	}
	return snap
}

// Last 最近一次采样
func (m *PoolMonitor) Last() PoolSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}
