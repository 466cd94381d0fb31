package metrics

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Collector 指标收集器
// 周期性刷新数据库连接池与提案状态分布指标
type Collector struct {
	db       *gorm.DB
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewCollector 创建指标收集器
func NewCollector(db *gorm.DB, interval time.Duration) *Collector {
	ctx, cancel := context.WithCancel(context.Background())
	return &Collector{
		db:       db,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start 启动指标收集器
func (c *Collector) Start() {
	go c.collect()
}

// Stop 停止指标收集器
func (c *Collector) Stop() {
	c.cancel()
	<-c.done
}

// collect 定期收集指标
func (c *Collector) collect() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	defer close(c.done)

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			_ = UpdateDatabaseConnections(c.db)
			c.updateLifecycleDistribution()
		}
	}
}

// updateLifecycleDistribution 刷新生命周期状态分布
func (c *Collector) updateLifecycleDistribution() {
	var results []struct {
		LifecycleStatus string
		Count           int64
	}
	err := c.db.Table("submissions").
		Select("lifecycle_status, COUNT(*) as count").
		Group("lifecycle_status").
		Scan(&results).Error
	if err != nil {
		return
	}
	for _, r := range results {
		UpdateSubmissionsByLifecycle(r.LifecycleStatus, float64(r.Count))
	}
}
