// Package usagestore persists extraction usage counters in the key-value
// store: provider calls, estimated cost, cache traffic. Counters survive
// restarts, unlike the process-local Prometheus series.
package usagestore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/urbo-labs/casamatch/internal/db"
)

const (
	keyPrefix       = "casamatch:usage:"
	keyCacheHits    = keyPrefix + "cache_hits"
	keyCacheMisses  = keyPrefix + "cache_misses"
	callsPrefix     = keyPrefix + "llm_calls:"
	costPrefix      = keyPrefix + "cost_microusd:"
	extractedPrefix = keyPrefix + "extractions:"
)

// Snapshot is the aggregated counter state.
type Snapshot struct {
	LLMCalls         map[string]int64   `json:"llm_calls_by_provider"`
	EstimatedCostUSD map[string]float64 `json:"estimated_cost_usd_by_provider"`
	CacheHits        int64              `json:"cache_hits"`
	CacheMisses      int64              `json:"cache_misses"`
	Extractions      map[string]int64   `json:"extractions_by_method"`
}

// Store records and reports usage counters.
type Store struct {
	kv db.KVStore
}

// New creates a usage store.
func New(kv db.KVStore) *Store {
	return &Store{kv: kv}
}

// RecordLLMCall counts one provider invocation and its estimated cost.
// Cost is kept in integer micro-dollars so increments stay atomic.
func (s *Store) RecordLLMCall(ctx context.Context, provider string, costUSD float64) error {
	if err := s.kv.IncrBy(ctx, callsPrefix+provider, 1); err != nil {
		return fmt.Errorf("usage incr calls: %w", err)
	}
	micro := int64(costUSD * 1e6)
	if micro > 0 {
		if err := s.kv.IncrBy(ctx, costPrefix+provider, micro); err != nil {
			return fmt.Errorf("usage incr cost: %w", err)
		}
	}
	return nil
}

// RecordExtraction counts one completed extraction by method.
func (s *Store) RecordExtraction(ctx context.Context, method string) error {
	if err := s.kv.IncrBy(ctx, extractedPrefix+method, 1); err != nil {
		return fmt.Errorf("usage incr extractions: %w", err)
	}
	return nil
}

// RecordCacheHit counts a parse-cache hit. Errors are swallowed; usage
// accounting must never fail an extraction.
func (s *Store) RecordCacheHit(ctx context.Context) {
	_ = s.kv.IncrBy(ctx, keyCacheHits, 1)
}

// RecordCacheMiss counts a parse-cache miss.
func (s *Store) RecordCacheMiss(ctx context.Context) {
	_ = s.kv.IncrBy(ctx, keyCacheMisses, 1)
}

// Read loads the current counter state.
func (s *Store) Read(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{
		LLMCalls:         map[string]int64{},
		EstimatedCostUSD: map[string]float64{},
		Extractions:      map[string]int64{},
	}

	keys, err := s.kv.Scan(ctx, keyPrefix+"*")
	if err != nil {
		return Snapshot{}, fmt.Errorf("usage scan: %w", err)
	}

	for _, key := range keys {
		n, err := s.readCounter(ctx, key)
		if err != nil {
			return Snapshot{}, err
		}
		switch {
		case key == keyCacheHits:
			snap.CacheHits = n
		case key == keyCacheMisses:
			snap.CacheMisses = n
		case strings.HasPrefix(key, callsPrefix):
			snap.LLMCalls[strings.TrimPrefix(key, callsPrefix)] = n
		case strings.HasPrefix(key, costPrefix):
			snap.EstimatedCostUSD[strings.TrimPrefix(key, costPrefix)] = float64(n) / 1e6
		case strings.HasPrefix(key, extractedPrefix):
			snap.Extractions[strings.TrimPrefix(key, extractedPrefix)] = n
		}
	}
	return snap, nil
}

func (s *Store) readCounter(ctx context.Context, key string) (int64, error) {
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("usage get %q: %w", key, err)
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("usage counter %q: %w", key, err)
	}
	return n, nil
}
