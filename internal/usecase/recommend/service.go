// Package recommend ranks structured properties against a buyer profile
// using weighted multi-criteria scoring over budget, location, service
// proximity, and amenities.
package recommend

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/urbo-labs/casamatch/internal/config"
	"github.com/urbo-labs/casamatch/internal/domain"
	"github.com/urbo-labs/casamatch/internal/metrics"
)

// Service computes recommendations. Scoring is read-only over materialized
// data, so concurrent requests need no locking.
type Service struct {
	properties PropertyReader
	scorer     *scorer
	minScore   float64
	maxResults int
	logger     *zap.Logger
}

// New creates a recommendation service.
func New(properties PropertyReader, index ServiceIndex, cfg config.Config, logger *zap.Logger) *Service {
	return &Service{
		properties: properties,
		scorer: &scorer{
			weights:   cfg.Scoring.Weights,
			centroids: cfg.Region.ZoneCentroids,
			index:     index,
			radiusM:   cfg.Services.DefaultRadiusM,
		},
		minScore:   cfg.Scoring.MinScore,
		maxResults: cfg.Scoring.MaxResults,
		logger:     logger,
	}
}

// Recommend scores every stored property against the profile, drops results
// below the threshold, and returns the top matches sorted descending by
// score with price as the tiebreaker. limit <= 0 means the configured
// maximum.
func (s *Service) Recommend(ctx context.Context, profile domain.BuyerProfile, limit int) ([]domain.Recommendation, error) {
	if profile.BudgetMin <= 0 || profile.BudgetMin >= profile.BudgetMax {
		return nil, fmt.Errorf("budget range [%g, %g]: %w",
			profile.BudgetMin, profile.BudgetMax, domain.ErrInvalidPriceRange)
	}
	if limit <= 0 || limit > s.maxResults {
		limit = s.maxResults
	}

	props, err := s.properties.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("recommend: %w", err)
	}

	results := make([]scored, 0, len(props))
	for _, prop := range props {
		sc, ok := s.scoreOne(prop, profile)
		if !ok {
			continue
		}
		if sc.total() >= s.minScore {
			results = append(results, sc)
		}
	}

	sort.SliceStable(results, func(a, b int) bool {
		sa, sb := results[a].total(), results[b].total()
		if sa != sb {
			return sa > sb
		}
		return lessByPrice(results[a].property, results[b].property)
	})
	if len(results) > limit {
		results = results[:limit]
	}

	out := make([]domain.Recommendation, len(results))
	for i, sc := range results {
		out[i] = domain.Recommendation{
			PropertyID:    sc.property.ID,
			Score:         sc.total(),
			Breakdown:     sc.breakdown,
			Justification: s.justify(sc, profile),
			Nearby:        sc.nearby,
		}
	}
	metrics.RecommendationsTotal.Inc()
	return out, nil
}

// scoreOne isolates panics to the offending record. A property with data
// bad enough to blow up the scorer is logged and skipped.
func (s *Service) scoreOne(prop domain.Property, profile domain.BuyerProfile) (sc scored, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Scoring panicked, skipping property",
				zap.String("property_id", prop.ID),
				zap.Any("panic", r),
			)
			ok = false
		}
	}()
	return s.scorer.score(prop, profile), true
}

// lessByPrice orders known prices ascending; unknown prices sort last.
func lessByPrice(a, b domain.Property) bool {
	pa, pb := a.Features.Price, b.Features.Price
	switch {
	case pa != nil && pb != nil:
		return *pa < *pb
	case pa != nil:
		return true
	default:
		return false
	}
}

// justify builds the human-readable explanation from the sub-scores that
// actually carried the result. Output is Spanish, matching the listings.
func (s *Service) justify(sc scored, profile domain.BuyerProfile) string {
	var parts []string
	w := s.scorer.weights

	if w.Location > 0 && sc.breakdown.Location >= w.Location*0.99 {
		if zoneEqual(sc.property.Features.Zone, profile.PreferredZone) {
			parts = append(parts, fmt.Sprintf("ubicada en la zona preferida (%s)", profile.PreferredZone))
		} else if profile.PreferredZone == "" {
			parts = append(parts, "sin restriccion de zona")
		}
	} else if sc.breakdown.Location > 0 && profile.PreferredZone != "" {
		parts = append(parts, fmt.Sprintf("cerca de la zona preferida (%s)", profile.PreferredZone))
	}

	if sc.breakdown.Budget >= w.Budget*0.99 && sc.property.Features.Price != nil {
		parts = append(parts, "precio dentro del presupuesto")
	} else if sc.breakdown.Budget > 0 {
		parts = append(parts, "precio cercano al presupuesto")
	}

	if len(sc.nearby) > 0 {
		cats := make([]string, 0, len(sc.nearby))
		for c := range sc.nearby {
			cats = append(cats, c)
		}
		sort.Strings(cats)
		parts = append(parts, fmt.Sprintf("servicios cercanos: %s", strings.Join(cats, ", ")))
	}

	if len(profile.DesiredAmenities) > 0 && sc.breakdown.Amenity > 0 {
		parts = append(parts, "cuenta con comodidades deseadas")
	}

	if len(parts) == 0 {
		return "coincidencia parcial con el perfil"
	}
	return strings.Join(parts, "; ")
}
