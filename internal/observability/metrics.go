// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ledger metrics
	TradesRecorded prometheus.Counter
	TradesRejected *prometheus.CounterVec
	LedgerSize     prometheus.Gauge
	TradeNetPnL    prometheus.Histogram

	// Analysis metrics
	AnalysisRunsTotal *prometheus.CounterVec
	AnalysisDuration  prometheus.Histogram
	PatternsFound     prometheus.Gauge
	StrategiesActive  prometheus.Gauge
	RegimeShifts      prometheus.Counter

	// Selection metrics
	StrategySelections *prometheus.CounterVec

	// Publishing metrics
	EventsPublished *prometheus.CounterVec
	PublishErrors   *prometheus.CounterVec
	WSClients       prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulAnalysis prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "trade_pattern_lab"
	}
	f := promauto.With(reg)

	return &Metrics{
		// Ledger metrics
		TradesRecorded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "trades_recorded_total",
			Help:      "Total number of trade outcomes appended to the ledger",
		}),
		TradesRejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "trades_rejected_total",
			Help:      "Total number of trade outcomes rejected by reason",
		}, []string{"reason"}),
		LedgerSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "size",
			Help:      "Current number of trades in the ledger",
		}),
		TradeNetPnL: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "trade_net_pnl",
			Help:      "Net P&L of recorded trades",
			Buckets:   []float64{-50, -20, -10, -5, -1, 0, 1, 5, 10, 20, 50},
		}),

		// Analysis metrics
		AnalysisRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "runs_total",
			Help:      "Total number of analysis passes by status",
		}, []string{"status"}),
		AnalysisDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "Duration of analysis passes",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		PatternsFound: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "patterns",
			Help:      "Number of patterns in the pattern database",
		}),
		StrategiesActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "strategies",
			Help:      "Number of validated strategies",
		}),
		RegimeShifts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "regime_shifts_total",
			Help:      "Total number of passes that flagged win-rate drift",
		}),

		// Selection metrics
		StrategySelections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "selections_total",
			Help:      "Total number of strategy selections by outcome",
		}, []string{"outcome"}),

		// Publishing metrics
		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "events_published_total",
			Help:      "Total number of events published by sink",
		}, []string{"sink"}),
		PublishErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "publish_errors_total",
			Help:      "Total number of failed publishes by sink",
		}, []string{"sink"}),
		WSClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "ws_clients",
			Help:      "Number of connected websocket clients",
		}),

		// Database metrics
		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulAnalysis: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_analysis_timestamp",
			Help:      "Unix timestamp of last complete analysis pass",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", prometheus.DefaultRegisterer)

// RecordTrade records an appended trade and the new ledger size.
func (m *Metrics) RecordTrade(netPnL float64, ledgerSize int) {
	m.TradesRecorded.Inc()
	m.TradeNetPnL.Observe(netPnL)
	m.LedgerSize.Set(float64(ledgerSize))
}

// RecordRejected records a trade that never reached the ledger.
func (m *Metrics) RecordRejected(reason string) {
	m.TradesRejected.WithLabelValues(reason).Inc()
}

// RecordAnalysis records an analysis pass.
func (m *Metrics) RecordAnalysis(status string, durationSeconds float64, patterns, strategies int, shifted bool, unixNow int64) {
	m.AnalysisRunsTotal.WithLabelValues(status).Inc()
	m.AnalysisDuration.Observe(durationSeconds)
	m.PatternsFound.Set(float64(patterns))
	m.StrategiesActive.Set(float64(strategies))
	if shifted {
		m.RegimeShifts.Inc()
	}
	if status == "complete" {
		m.LastSuccessfulAnalysis.Set(float64(unixNow))
	}
}

// RecordSelection records a strategy selection; fallback marks the safe default.
func (m *Metrics) RecordSelection(fallback bool) {
	outcome := "validated"
	if fallback {
		outcome = "safe_default"
	}
	m.StrategySelections.WithLabelValues(outcome).Inc()
}

// RecordPublish records one publish attempt to a sink.
func (m *Metrics) RecordPublish(sink string, err error) {
	if err != nil {
		m.PublishErrors.WithLabelValues(sink).Inc()
		return
	}
	m.EventsPublished.WithLabelValues(sink).Inc()
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
