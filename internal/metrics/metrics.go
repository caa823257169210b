package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ============================================
	// 数据库连接指标
	// ============================================
	DBConnectionPoolSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sidecar_db_connection_pool_size",
		Help: "Database connection pool size",
	})

	DBConnectionActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sidecar_db_connection_active",
		Help: "Number of active database connections",
	})

	DBConnectionIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sidecar_db_connection_idle",
		Help: "Number of idle database connections",
	})

	DBConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sidecar_db_connection_status",
		Help: "Database connection status (1=healthy, 0=unhealthy)",
	})

	// ============================================
	// 证明请求指标
	// ============================================
	RequestsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sidecar_requests_submitted_total",
		Help: "Total number of proof requests accepted",
	})

	ProofsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sidecar_proofs_completed_total",
		Help: "Total number of proof requests that reached done",
	})

	ProofsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sidecar_proofs_failed_total",
			Help: "Total number of proof requests that reached failed",
		},
		[]string{"reason"},
	)

	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sidecar_queue_depth",
			Help: "Proof requests by state",
		},
		[]string{"state"},
	)

	PipelineStepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sidecar_pipeline_step_duration_seconds",
			Help:    "Duration of each proof pipeline step in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
		},
		[]string{"step"},
	)

	// ============================================
	// API 指标
	// ============================================
	RPCRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sidecar_rpc_requests_total",
			Help: "JSON-RPC calls by method and result code",
		},
		[]string{"method", "code"},
	)

	// ============================================
	// NATS 连接和消息指标
	// ============================================
	NATSConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sidecar_nats_connection_status",
		Help: "NATS connection status (1=connected, 0=disconnected)",
	})

	NATSMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sidecar_nats_messages_published_total",
			Help: "Total number of NATS messages published",
		},
		[]string{"subject", "status"},
	)
)
