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
	// Funnel metrics
	TokensDiscovered prometheus.Counter
	FunnelSurvivors  *prometheus.CounterVec
	SecurityFailOpen prometheus.Counter
	TokensScored     prometheus.Counter
	CompositeScore   prometheus.Histogram

	// Trading metrics
	PositionsOpened prometheus.Counter
	PositionsClosed *prometheus.CounterVec
	TradePnLUSD     prometheus.Histogram
	ExitRetries     prometheus.Counter
	OpenPositions   prometheus.Gauge
	CashUSD         prometheus.Gauge
	EquityUSD       prometheus.Gauge

	// Monitor metrics
	MonitorCycleDuration  prometheus.Histogram
	SnapshotWriteFailures prometheus.Counter
	PriceLookups          *prometheus.CounterVec

	// Scan metrics
	ScanRunsTotal *prometheus.CounterVec
	ScanDuration  prometheus.Histogram
	StageDuration *prometheus.HistogramVec

	// Source metrics
	SourceCallLatency *prometheus.HistogramVec
	SourceErrors      *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "revival_scanner"
	}

	return &Metrics{
		// Funnel metrics
		TokensDiscovered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "funnel",
			Name:      "tokens_discovered_total",
			Help:      "Total number of tokens returned by discovery",
		}),
		FunnelSurvivors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "funnel",
			Name:      "survivors_total",
			Help:      "Total number of tokens surviving each funnel stage",
		}, []string{"stage"}),
		SecurityFailOpen: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "funnel",
			Name:      "security_fail_open_total",
			Help:      "Total number of tokens passed through on security vendor failure",
		}),
		TokensScored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "funnel",
			Name:      "tokens_scored_total",
			Help:      "Total number of tokens fully scored",
		}),
		CompositeScore: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "funnel",
			Name:      "composite_score",
			Help:      "Distribution of composite scores",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),

		// Trading metrics
		PositionsOpened: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "paper",
			Name:      "positions_opened_total",
			Help:      "Total number of paper positions opened",
		}),
		PositionsClosed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "paper",
			Name:      "positions_closed_total",
			Help:      "Total number of exit fills by reason",
		}, []string{"reason"}),
		TradePnLUSD: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "paper",
			Name:      "trade_pnl_usd",
			Help:      "Distribution of per-fill realized P&L in USD",
			Buckets:   []float64{-1000, -500, -200, -100, -50, 0, 50, 100, 200, 500, 1000},
		}),
		ExitRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "paper",
			Name:      "exit_retries_total",
			Help:      "Total number of simulated failed exit attempts",
		}),
		OpenPositions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "paper",
			Name:      "open_positions",
			Help:      "Current number of open positions",
		}),
		CashUSD: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "paper",
			Name:      "cash_usd",
			Help:      "Current cash balance in USD",
		}),
		EquityUSD: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "paper",
			Name:      "equity_usd",
			Help:      "Current equity (cash plus open value) in USD",
		}),

		// Monitor metrics
		MonitorCycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "cycle_duration_seconds",
			Help:      "Monitor cycle duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		SnapshotWriteFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "snapshot_write_failures_total",
			Help:      "Total number of portfolio snapshot writes that failed after retry",
		}),
		PriceLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "price_lookups_total",
			Help:      "Total number of per-token price lookups by result",
		}, []string{"result"}),

		// Scan metrics
		ScanRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "runs_total",
			Help:      "Total number of scan cycles by status",
		}, []string{"status"}),
		ScanDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "duration_seconds",
			Help:      "Scan cycle duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "stage_duration_seconds",
			Help:      "Funnel stage duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),

		// Source metrics
		SourceCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "call_latency_seconds",
			Help:      "Vendor API call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source", "call"}),
		SourceErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "errors_total",
			Help:      "Total number of vendor API call errors",
		}, []string{"source", "call"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordDiscovered counts tokens returned by the discovery stage.
func RecordDiscovered(n int) {
	DefaultMetrics.TokensDiscovered.Add(float64(n))
}

// RecordFunnelStage counts tokens surviving a funnel stage.
func RecordFunnelStage(stage string, survivors int) {
	DefaultMetrics.FunnelSurvivors.WithLabelValues(stage).Add(float64(survivors))
}

// RecordSecurityFailOpen counts a token passed through on vendor failure.
func RecordSecurityFailOpen() {
	DefaultMetrics.SecurityFailOpen.Inc()
}

// RecordTokenScored records a completed composite score.
func RecordTokenScored(composite float64) {
	DefaultMetrics.TokensScored.Inc()
	DefaultMetrics.CompositeScore.Observe(composite)
}

// RecordPositionOpened increments the opened positions counter.
func RecordPositionOpened() {
	DefaultMetrics.PositionsOpened.Inc()
}

// RecordExitFill records one exit fill and its realized P&L.
func RecordExitFill(reason string, pnlUSD float64) {
	DefaultMetrics.PositionsClosed.WithLabelValues(reason).Inc()
	DefaultMetrics.TradePnLUSD.Observe(pnlUSD)
}

// RecordExitRetry counts a simulated failed exit attempt.
func RecordExitRetry() {
	DefaultMetrics.ExitRetries.Inc()
}

// UpdatePortfolio updates the portfolio gauges from a snapshot.
func UpdatePortfolio(cashUSD, equityUSD float64, openPositions int) {
	DefaultMetrics.CashUSD.Set(cashUSD)
	DefaultMetrics.EquityUSD.Set(equityUSD)
	DefaultMetrics.OpenPositions.Set(float64(openPositions))
}

// RecordMonitorCycle records one monitor cycle duration.
func RecordMonitorCycle(seconds float64) {
	DefaultMetrics.MonitorCycleDuration.Observe(seconds)
}

// RecordSnapshotFailure counts a snapshot write that failed after retry.
func RecordSnapshotFailure() {
	DefaultMetrics.SnapshotWriteFailures.Inc()
}

// RecordPriceLookup counts a per-token price lookup by result
// (stream, http or missing).
func RecordPriceLookup(result string) {
	DefaultMetrics.PriceLookups.WithLabelValues(result).Inc()
}

// RecordScanRun records a scan cycle.
func RecordScanRun(status string, seconds float64) {
	DefaultMetrics.ScanRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.ScanDuration.Observe(seconds)
}

// RecordStageDuration records one funnel stage duration.
func RecordStageDuration(stage string, seconds float64) {
	DefaultMetrics.StageDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordSourceCall records a vendor API call.
func RecordSourceCall(source, call string, seconds float64, err error) {
	DefaultMetrics.SourceCallLatency.WithLabelValues(source, call).Observe(seconds)
	if err != nil {
		DefaultMetrics.SourceErrors.WithLabelValues(source, call).Inc()
	}
}
