package services

import (
	"context"
	"sync"
	"time"

	"eigenda-sidecar/internal/metrics"
	"eigenda-sidecar/internal/models"
	"eigenda-sidecar/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MonitoringService 监控服务，负责定期更新 Prometheus metrics
type MonitoringService struct {
	db       *gorm.DB
	repo     repository.ProofRequestRepository
	logger   *logrus.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewMonitoringService 创建监控服务
func NewMonitoringService(db *gorm.DB, repo repository.ProofRequestRepository, logger *logrus.Logger) *MonitoringService {
	return &MonitoringService{
		db:       db,
		repo:     repo,
		logger:   logger,
		interval: 10 * time.Second,
		stopCh:   make(chan struct{}),
	}
}

// Start 启动监控服务
func (m *MonitoringService) Start() {
	m.logger.Info("🚀 Starting monitoring service...")
	m.wg.Add(1)
	go m.loop()
}

// Stop 停止监控服务，可重复调用
func (m *MonitoringService) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.wg.Wait()
		m.logger.Info("✅ Monitoring service stopped")
	})
}

func (m *MonitoringService) loop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.update()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.update()
		}
	}
}

func (m *MonitoringService) update() {
	ctx, cancel := context.WithTimeout(context.Background(), m.interval)
	defer cancel()
	m.updateDatabaseMetrics(ctx)
	m.updateQueueMetrics(ctx)
}

// updateDatabaseMetrics 更新数据库指标
func (m *MonitoringService) updateDatabaseMetrics(ctx context.Context) {
	sqlDB, err := m.db.DB()
	if err != nil {
		metrics.DBConnectionStatus.Set(0)
		return
	}

	stats := sqlDB.Stats()
	metrics.DBConnectionPoolSize.Set(float64(stats.MaxOpenConnections))
	metrics.DBConnectionActive.Set(float64(stats.OpenConnections - stats.Idle))
	metrics.DBConnectionIdle.Set(float64(stats.Idle))

	if err := sqlDB.PingContext(ctx); err != nil {
		metrics.DBConnectionStatus.Set(0)
	} else {
		metrics.DBConnectionStatus.Set(1)
	}
}

func (m *MonitoringService) updateQueueMetrics(ctx context.Context) {
	counts, err := m.repo.CountByState(ctx)
	if err != nil {
		m.logger.WithError(err).Warn("[Monitoring] failed to count proof requests")
		return
	}
	metrics.QueueDepth.WithLabelValues(string(models.ProofRequestStateQueued)).Set(float64(counts.Queued))
	metrics.QueueDepth.WithLabelValues(string(models.ProofRequestStateDone)).Set(float64(counts.Done))
	metrics.QueueDepth.WithLabelValues(string(models.ProofRequestStateFailed)).Set(float64(counts.Failed))
}
