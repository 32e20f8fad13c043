// Package extraction orchestrates the two-stage listing pipeline: the
// deterministic pattern stage first, the language-model fallback only when
// the pattern output is insufficient, then a deterministic merge.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/urbo-labs/casamatch/internal/domain"
	"github.com/urbo-labs/casamatch/internal/domain/geo"
	"github.com/urbo-labs/casamatch/internal/extract"
	"github.com/urbo-labs/casamatch/internal/metrics"
)

// Service turns raw listings into structured properties.
type Service struct {
	fallback FallbackParser
	bbox     geo.BoundingBox
	workers  int
	usage    UsageRecorder
	logger   *zap.Logger
}

// New creates an extraction service.
func New(fallback FallbackParser, bbox geo.BoundingBox, logger *zap.Logger) *Service {
	return &Service{
		fallback: fallback,
		bbox:     bbox,
		workers:  4,
		logger:   logger,
	}
}

// WithWorkers configures batch parallelism.
func (s *Service) WithWorkers(n int) *Service {
	if n > 0 {
		s.workers = n
	}
	return s
}

// WithUsageRecorder attaches persistent usage accounting. nil disables it.
func (s *Service) WithUsageRecorder(u UsageRecorder) *Service {
	s.usage = u
	return s
}

// Extract processes one raw listing. Provider failures are recovered
// locally: the worst case is a pattern-only feature set with unresolved
// fields left nil. Only a record with no text at all is rejected.
func (s *Service) Extract(ctx context.Context, raw domain.RawListing) (domain.Property, error) {
	if raw.Malformed() {
		metrics.SkippedRecordsTotal.Inc()
		return domain.Property{}, fmt.Errorf("listing %q: %w", raw.ID, domain.ErrMalformedRecord)
	}

	pattern := extract.Features(raw.Title, raw.Description)

	var llm *domain.FeatureSet
	var provider string

	if !pattern.Sufficient() {
		req := domain.ParseRequest{Title: raw.Title, Description: raw.Description}
		if !pattern.Empty() {
			// Fill-the-gap prompt: ask only for what the pattern stage missed.
			req.MissingFields = pattern.MissingFields()
		}

		fs, prov, err := s.fallback.Parse(ctx, req)
		if err != nil {
			s.logger.Warn("Fallback parse failed, keeping pattern-only result",
				zap.String("listing_id", raw.ID),
				zap.Error(err),
			)
		} else {
			llm = &fs
			provider = prov
		}
	}

	features := extract.Merge(pattern, llm, provider)
	metrics.ExtractionsTotal.WithLabelValues(string(features.Method)).Inc()
	if s.usage != nil {
		if err := s.usage.RecordExtraction(ctx, string(features.Method)); err != nil {
			s.logger.Warn("Failed to record extraction usage", zap.Error(err))
		}
	}

	return s.toProperty(raw, features), nil
}

// toProperty anchors the feature set to validated coordinates. Coordinates
// outside the service region degrade the record instead of rejecting it.
func (s *Service) toProperty(raw domain.RawListing, features domain.FeatureSet) domain.Property {
	id := raw.ID
	if id == "" {
		id = uuid.NewString()
	}

	prop := domain.Property{
		ID:           id,
		ProviderCode: raw.ProviderCode,
		Features:     features,
	}

	if raw.Latitude != nil && raw.Longitude != nil {
		prop.Latitude = *raw.Latitude
		prop.Longitude = *raw.Longitude
		prop.CoordinatesValid = s.bbox.Contains(prop.Latitude, prop.Longitude)
		if !prop.CoordinatesValid {
			s.logger.Debug("Coordinates outside service region",
				zap.String("listing_id", id),
				zap.Float64("lat", prop.Latitude),
				zap.Float64("lon", prop.Longitude),
			)
		}
	}

	return prop
}

// BatchResult reports one batch run. Properties preserves input order with
// skipped records removed.
type BatchResult struct {
	Properties []domain.Property
	Skipped    int
}

// ExtractBatch processes listings with bounded parallelism. Listings are
// independent; the parse cache and provider rate limits are the only shared
// resources. A malformed record is counted and skipped, never fatal.
func (s *Service) ExtractBatch(ctx context.Context, listings []domain.RawListing) BatchResult {
	type slot struct {
		prop domain.Property
		err  error
	}

	slots := make([]slot, len(listings))
	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup

	for i, raw := range listings {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, raw domain.RawListing) {
			defer wg.Done()
			defer func() { <-sem }()
			slots[i].prop, slots[i].err = s.Extract(ctx, raw)
		}(i, raw)
	}
	wg.Wait()

	result := BatchResult{Properties: make([]domain.Property, 0, len(listings))}
	for _, sl := range slots {
		if sl.err != nil {
			if errors.Is(sl.err, domain.ErrMalformedRecord) {
				result.Skipped++
				continue
			}
			// Extract never returns other error classes today; treat any
			// future ones as skips too rather than failing the batch.
			s.logger.Error("Unexpected extraction failure", zap.Error(sl.err))
			result.Skipped++
			continue
		}
		result.Properties = append(result.Properties, sl.prop)
	}
	return result
}
