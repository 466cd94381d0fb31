package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

var (
	// API 请求计数器
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	// API 请求响应时间
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 提案创建数
	submissionsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "submissions_created_total",
			Help: "Total number of submissions created",
		},
	)

	// 生命周期动作数
	lifecycleActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifecycle_actions_total",
			Help: "Total number of lifecycle actions executed",
		},
		[]string{"action", "result"}, // result: ok, illegal, error
	)

	// 审批决定数
	approvalDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "approval_decisions_total",
			Help: "Total number of approval stage decisions recorded",
		},
		[]string{"stage", "decision"},
	)

	// 对账执行数
	reconciliationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconciliations_total",
			Help: "Total number of reconciliation passes",
		},
		[]string{"result"}, // advanced, noop, error
	)

	// 数据库连接数
	databaseConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_active",
			Help: "Number of active database connections",
		},
	)

	databaseConnectionsIdle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	databaseConnectionsMax = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_max",
			Help: "Maximum number of database connections",
		},
	)

	// 提案生命周期状态分布
	submissionsByLifecycle = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "submissions_by_lifecycle",
			Help: "Number of submissions by lifecycle status",
		},
		[]string{"lifecycle_status"},
	)
)

var (
	once sync.Once
)

func init() {
	prometheus.MustRegister(apiRequestsTotal)
	prometheus.MustRegister(apiRequestDuration)
	prometheus.MustRegister(submissionsCreatedTotal)
	prometheus.MustRegister(lifecycleActionsTotal)
	prometheus.MustRegister(approvalDecisionsTotal)
	prometheus.MustRegister(reconciliationsTotal)
	prometheus.MustRegister(databaseConnectionsActive)
	prometheus.MustRegister(databaseConnectionsIdle)
	prometheus.MustRegister(databaseConnectionsMax)
	prometheus.MustRegister(submissionsByLifecycle)

	// Go 运行时指标只注册一次,已注册时忽略错误
	once.Do(func() {
		_ = prometheus.Register(prometheus.NewGoCollector())
		_ = prometheus.Register(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	})
}

// Handler 返回 Prometheus 指标处理器
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAPIRequest 记录 API 请求
func RecordAPIRequest(method, path string, status int, duration float64) {
	statusText := http.StatusText(status)
	if statusText == "" {
		statusText = fmt.Sprintf("%d", status)
	}
	apiRequestsTotal.WithLabelValues(method, path, statusText).Inc()
	apiRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordSubmissionCreated 记录提案创建
func RecordSubmissionCreated() {
	submissionsCreatedTotal.Inc()
}

// RecordLifecycleAction 记录生命周期动作
func RecordLifecycleAction(action string, result string) {
	lifecycleActionsTotal.WithLabelValues(action, result).Inc()
}

// RecordApprovalDecision 记录审批决定
func RecordApprovalDecision(stage string, decision string) {
	approvalDecisionsTotal.WithLabelValues(stage, decision).Inc()
}

// RecordReconciliation 记录一次对账
func RecordReconciliation(result string) {
	reconciliationsTotal.WithLabelValues(result).Inc()
}

// UpdateDatabaseConnections 更新数据库连接数指标
func UpdateDatabaseConnections(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	stats := sqlDB.Stats()
	databaseConnectionsActive.Set(float64(stats.OpenConnections - stats.Idle))
	databaseConnectionsIdle.Set(float64(stats.Idle))
	databaseConnectionsMax.Set(float64(stats.MaxOpenConnections))

	return nil
}

// UpdateSubmissionsByLifecycle 更新生命周期状态分布指标
func UpdateSubmissionsByLifecycle(lifecycleStatus string, count float64) {
	submissionsByLifecycle.WithLabelValues(lifecycleStatus).Set(count)
}
