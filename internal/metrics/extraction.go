package metrics

import "github.com/prometheus/client_golang/prometheus"

// Extraction-pipeline Prometheus metrics.
var (
	ParserRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "casamatch",
			Name:      "parser_requests_total",
			Help:      "Total number of language-model parse requests",
		},
		[]string{"provider", "model", "status"},
	)

	ParserRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "casamatch",
			Name:      "parser_request_duration_seconds",
			Help:      "Language-model parse request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider", "model"},
	)

	ParserErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "casamatch",
			Name:      "parser_errors_total",
			Help:      "Total language-model parse errors by failure class",
		},
		[]string{"provider", "model", "error_class"},
	)

	ParserCostTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "casamatch",
			Name:      "parser_estimated_cost_usd_total",
			Help:      "Estimated cumulative provider spend in USD",
		},
		[]string{"provider"},
	)

	ParseCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "casamatch",
			Name:      "parse_cache_total",
			Help:      "Parse cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	ExtractionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "casamatch",
			Name:      "extractions_total",
			Help:      "Listings processed by extraction method",
		},
		[]string{"method"}, // regex_only / hybrid / llm_only
	)

	SkippedRecordsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "casamatch",
			Name:      "skipped_records_total",
			Help:      "Raw listings skipped as malformed",
		},
	)

	RecommendationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "casamatch",
			Name:      "recommendations_total",
			Help:      "Recommendation queries served",
		},
	)
)

var extractionRegistered bool

// RegisterExtractionMetrics registers pipeline metrics. Must be called once from main.
func RegisterExtractionMetrics() {
	if extractionRegistered {
		return
	}
	prometheus.MustRegister(ParserRequestsTotal)
	prometheus.MustRegister(ParserRequestDuration)
	prometheus.MustRegister(ParserErrorsTotal)
	prometheus.MustRegister(ParserCostTotal)
	prometheus.MustRegister(ParseCacheTotal)
	prometheus.MustRegister(ExtractionsTotal)
	prometheus.MustRegister(SkippedRecordsTotal)
	prometheus.MustRegister(RecommendationsTotal)
	extractionRegistered = true
}
