// Package usage reports extraction usage: provider calls, estimated spend,
// cache effectiveness.
package usage

import (
	"context"
	"fmt"
	"time"
)

// Report is the externally visible usage summary.
type Report struct {
	GeneratedAt      time.Time          `json:"generated_at"`
	LLMCalls         map[string]int64   `json:"llm_calls_by_provider"`
	EstimatedCostUSD map[string]float64 `json:"estimated_cost_usd_by_provider"`
	TotalCostUSD     float64            `json:"total_cost_usd"`
	CacheHits        int64              `json:"cache_hits"`
	CacheMisses      int64              `json:"cache_misses"`
	CacheHitRate     float64            `json:"cache_hit_rate"`
	Extractions      map[string]int64   `json:"extractions_by_method"`
}

// Service handles usage reporting.
type Service struct {
	counters CounterReader
}

// New creates a Service.
func New(counters CounterReader) *Service {
	return &Service{counters: counters}
}

// GetReport builds the current usage report.
func (s *Service) GetReport(ctx context.Context) (Report, error) {
	snap, err := s.counters.Read(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("usage report: %w", err)
	}

	report := Report{
		GeneratedAt:      time.Now().UTC(),
		LLMCalls:         snap.LLMCalls,
		EstimatedCostUSD: snap.EstimatedCostUSD,
		CacheHits:        snap.CacheHits,
		CacheMisses:      snap.CacheMisses,
		Extractions:      snap.Extractions,
	}
	for _, cost := range snap.EstimatedCostUSD {
		report.TotalCostUSD += cost
	}
	if total := snap.CacheHits + snap.CacheMisses; total > 0 {
		report.CacheHitRate = float64(snap.CacheHits) / float64(total)
	}
	return report, nil
}
