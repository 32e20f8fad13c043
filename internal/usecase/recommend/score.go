package recommend

import (
	"strings"

	"github.com/urbo-labs/casamatch/internal/config"
	"github.com/urbo-labs/casamatch/internal/domain"
	"github.com/urbo-labs/casamatch/internal/domain/geo"
)

// centroidDecayM is the distance at which the partial location score reaches
// zero when the property sits outside the preferred zone.
const centroidDecayM = 5_000

// scorer computes the weighted compatibility score for one property against
// one profile. Stateless apart from configuration and reference data.
type scorer struct {
	weights   config.WeightsConfig
	centroids map[string]geo.Point
	index     ServiceIndex
	radiusM   float64
}

type scored struct {
	property  domain.Property
	breakdown domain.ScoreBreakdown
	nearby    map[string]domain.NearbyService
}

func (s scored) total() float64 {
	b := s.breakdown
	return b.Location + b.Budget + b.Proximity + b.Amenity
}

func (sc *scorer) score(prop domain.Property, profile domain.BuyerProfile) scored {
	out := scored{property: prop}

	out.breakdown.Budget = sc.weights.Budget * budgetFit(prop.Features.Price, profile)
	out.breakdown.Amenity = sc.weights.Amenity * amenityOverlap(prop.Features.Amenities, profile.DesiredAmenities)

	// Without validated coordinates the geospatial terms contribute nothing,
	// but the property stays scoreable on budget and amenities.
	if prop.CoordinatesValid {
		out.breakdown.Location = sc.weights.Location * sc.locationMatch(prop, profile)
		proximity, nearby := sc.proximityCoverage(prop, profile)
		out.breakdown.Proximity = sc.weights.Proximity * proximity
		out.nearby = nearby
	}

	return out
}

// budgetFit is 1.0 inside the range and decays linearly with the relative
// overshoot of the violated bound. An unknown price scores zero.
func budgetFit(price *float64, profile domain.BuyerProfile) float64 {
	if price == nil {
		return 0
	}
	p := *price
	switch {
	case p >= profile.BudgetMin && p <= profile.BudgetMax:
		return 1
	case p < profile.BudgetMin:
		return clamp01(1 - (profile.BudgetMin-p)/profile.BudgetMin)
	default:
		return clamp01(1 - (p-profile.BudgetMax)/profile.BudgetMax)
	}
}

// locationMatch is 1.0 on an exact zone match, a distance decay toward the
// preferred zone's centroid when one is configured, and zero otherwise. A
// profile without a zone preference treats every location as acceptable.
func (sc *scorer) locationMatch(prop domain.Property, profile domain.BuyerProfile) float64 {
	if profile.PreferredZone == "" {
		return 1
	}
	if zoneEqual(prop.Features.Zone, profile.PreferredZone) {
		return 1
	}
	centroid, ok := sc.lookupCentroid(profile.PreferredZone)
	if !ok {
		return 0
	}
	d := geo.Haversine(prop.Latitude, prop.Longitude, centroid.Lat, centroid.Lon)
	return clamp01(1 - d/centroidDecayM)
}

func (sc *scorer) lookupCentroid(zone string) (geo.Point, bool) {
	if p, ok := sc.centroids[zone]; ok {
		return p, true
	}
	for name, p := range sc.centroids {
		if strings.EqualFold(name, zone) {
			return p, true
		}
	}
	return geo.Point{}, false
}

// proximityCoverage is the fraction of needed categories with at least one
// service point inside the radius, each category weighing the same. The
// nearest satisfying point per category is reported back to the caller.
func (sc *scorer) proximityCoverage(prop domain.Property, profile domain.BuyerProfile) (float64, map[string]domain.NearbyService) {
	if len(profile.NeededServices) == 0 {
		return 1, nil
	}

	nearby := make(map[string]domain.NearbyService)
	satisfied := 0
	for _, category := range profile.NeededServices {
		n, ok := sc.index.NearestWithin(prop.Latitude, prop.Longitude, category, sc.radiusM)
		if !ok {
			continue
		}
		satisfied++
		nearby[category] = n
	}
	if satisfied == 0 {
		return 0, nil
	}
	return float64(satisfied) / float64(len(profile.NeededServices)), nearby
}

// amenityOverlap is the Jaccard overlap between desired and present
// amenities. Both sides are treated as sets, so repeated entries in the
// request count once. A profile without amenity wishes scores full marks.
func amenityOverlap(present, desired []string) float64 {
	if len(desired) == 0 {
		return 1
	}

	union := make(map[string]struct{}, len(present)+len(desired))
	presentSet := make(map[string]struct{}, len(present))
	for _, a := range present {
		key := strings.ToLower(strings.TrimSpace(a))
		presentSet[key] = struct{}{}
		union[key] = struct{}{}
	}

	intersection := 0
	desiredSet := make(map[string]struct{}, len(desired))
	for _, a := range desired {
		key := strings.ToLower(strings.TrimSpace(a))
		if _, seen := desiredSet[key]; seen {
			continue
		}
		desiredSet[key] = struct{}{}
		union[key] = struct{}{}
		if _, ok := presentSet[key]; ok {
			intersection++
		}
	}
	return float64(intersection) / float64(len(union))
}

func zoneEqual(zone *string, preferred string) bool {
	return zone != nil && preferred != "" && strings.EqualFold(*zone, preferred)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
