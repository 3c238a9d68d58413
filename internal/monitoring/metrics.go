package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Trading metrics
	tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "regime_bot_trades_total",
			Help: "Total number of closed trades",
		},
		[]string{"symbol", "side", "reason"},
	)

	tradePnL = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "regime_bot_trade_pnl",
			Help:    "Distribution of realized trade PnL",
			Buckets: []float64{-500, -100, -50, -10, 0, 10, 50, 100, 500},
		},
		[]string{"symbol"},
	)

	openPositions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "regime_bot_open_positions",
			Help: "Number of open positions",
		},
		[]string{"symbol"},
	)

	trailingStop = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "regime_bot_trailing_stop",
			Help: "Current stop level of the open position",
		},
		[]string{"symbol"},
	)

	// Market data metrics
	currentPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "regime_bot_current_price",
			Help: "Current price of trading symbol",
		},
		[]string{"symbol"},
	)

	// Decision metrics
	currentRegime = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "regime_bot_regime",
			Help: "Current market regime as an enum value",
		},
		[]string{"symbol"},
	)

	regimeChangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "regime_bot_regime_changes_total",
			Help: "Total number of confirmed regime transitions",
		},
		[]string{"symbol"},
	)

	signalScore = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "regime_bot_signal_score",
			Help: "Fused strategy score in [-1, 1]",
		},
		[]string{"symbol"},
	)

	signalConfidence = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "regime_bot_signal_confidence",
			Help: "Fused signal confidence in [0, 100]",
		},
		[]string{"symbol"},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "regime_bot_errors_total",
			Help: "Total number of errors by category",
		},
		[]string{"category"},
	)
)

func init() {
	prometheus.MustRegister(tradesTotal)
	prometheus.MustRegister(tradePnL)
	prometheus.MustRegister(openPositions)
	prometheus.MustRegister(trailingStop)
	prometheus.MustRegister(currentPrice)
	prometheus.MustRegister(currentRegime)
	prometheus.MustRegister(regimeChangesTotal)
	prometheus.MustRegister(signalScore)
	prometheus.MustRegister(signalConfidence)
	prometheus.MustRegister(errorsTotal)
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

// RecordTrade records a closed trade
func RecordTrade(symbol, side, reason string, pnl float64) {
	tradesTotal.WithLabelValues(symbol, side, reason).Inc()
	tradePnL.WithLabelValues(symbol).Observe(pnl)
}

// SetOpenPositions updates the open position gauge
func SetOpenPositions(symbol string, count int) {
	openPositions.WithLabelValues(symbol).Set(float64(count))
}

// SetTrailingStop updates the stop-level gauge
func SetTrailingStop(symbol string, stop float64) {
	trailingStop.WithLabelValues(symbol).Set(stop)
}

// UpdatePrice updates the current price metric
func UpdatePrice(symbol string, price float64) {
	currentPrice.WithLabelValues(symbol).Set(price)
}

// UpdateRegime updates the current regime gauge
func UpdateRegime(symbol string, regimeValue int) {
	currentRegime.WithLabelValues(symbol).Set(float64(regimeValue))
}

// RecordRegimeChange records a confirmed regime transition
func RecordRegimeChange(symbol string) {
	regimeChangesTotal.WithLabelValues(symbol).Inc()
}

// UpdateSignal updates the fused signal gauges
func UpdateSignal(symbol string, score, confidence float64) {
	signalScore.WithLabelValues(symbol).Set(score)
	signalConfidence.WithLabelValues(symbol).Set(confidence)
}

// RecordError records an error metric
func RecordError(category string) {
	errorsTotal.WithLabelValues(category).Inc()
}
