package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Sizing metrics
	sizingDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_engine_sizing_decisions_total",
			Help: "Total number of sizing decisions by method",
		},
		[]string{"method"},
	)

	sizingRiskAmount = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "risk_engine_sizing_risk_amount",
			Help:    "Distribution of dollar risk per accepted sizing decision",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		},
		[]string{"symbol"},
	)

	// Portfolio heat metrics
	portfolioHeat = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "risk_engine_portfolio_heat",
			Help: "Aggregate open risk as a fraction of equity",
		},
	)

	heatUtilization = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "risk_engine_heat_utilization",
			Help: "Portfolio heat divided by the configured maximum",
		},
	)

	openPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "risk_engine_open_positions",
			Help: "Number of open risk-tracked positions",
		},
	)

	positionsClosedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_engine_positions_closed_total",
			Help: "Total number of closed positions by outcome",
		},
		[]string{"strategy", "outcome"},
	)

	// Circuit breaker metrics
	breakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "risk_engine_circuit_breaker_state",
			Help: "Circuit breaker state per strategy (0=normal, 1=reduced, 2=paused)",
		},
		[]string{"strategy"},
	)

	consecutiveLosses = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "risk_engine_consecutive_losses",
			Help: "Current losing streak per strategy",
		},
		[]string{"strategy"},
	)

	// Persistence metrics
	persistenceFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_engine_persistence_failures_total",
			Help: "Total number of state load/save failures",
		},
		[]string{"operation"},
	)
)

func init() {
	prometheus.MustRegister(sizingDecisionsTotal)
	prometheus.MustRegister(sizingRiskAmount)
	prometheus.MustRegister(portfolioHeat)
	prometheus.MustRegister(heatUtilization)
	prometheus.MustRegister(openPositions)
	prometheus.MustRegister(positionsClosedTotal)
	prometheus.MustRegister(breakerState)
	prometheus.MustRegister(consecutiveLosses)
	prometheus.MustRegister(persistenceFailuresTotal)
}

// MetricsHandler handles Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordSizingDecision counts a sizing decision and, when it produced a
// non-zero size, observes its dollar risk
func RecordSizingDecision(method, symbol string, riskAmount float64) {
	sizingDecisionsTotal.WithLabelValues(method).Inc()
	if riskAmount > 0 {
		sizingRiskAmount.WithLabelValues(symbol).Observe(riskAmount)
	}
}

// UpdatePortfolioHeat publishes the current heat snapshot
func UpdatePortfolioHeat(heat, utilization float64, positions int) {
	portfolioHeat.Set(heat)
	heatUtilization.Set(utilization)
	openPositions.Set(float64(positions))
}

// RecordPositionClosed counts a closed position
func RecordPositionClosed(strategy, outcome string) {
	positionsClosedTotal.WithLabelValues(strategy, outcome).Inc()
}

// UpdateCircuitBreaker publishes a strategy's breaker state
func UpdateCircuitBreaker(strategy string, state int, losses int) {
	breakerState.WithLabelValues(strategy).Set(float64(state))
	consecutiveLosses.WithLabelValues(strategy).Set(float64(losses))
}

// RecordPersistenceFailure counts a failed load or save
func RecordPersistenceFailure(operation string) {
	persistenceFailuresTotal.WithLabelValues(operation).Inc()
}
