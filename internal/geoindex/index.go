// Package geoindex holds the in-memory spatial index over the urban-service
// directory. The directory is small (hundreds of points per city) and
// read-only after load, so the index is a category-bucketed slice with a
// linear haversine scan. No locking is needed once built.
package geoindex

import (
	"sort"

	"github.com/urbo-labs/casamatch/internal/domain"
	"github.com/urbo-labs/casamatch/internal/domain/geo"
)

// Index answers nearest-neighbor and radius queries over service points.
type Index struct {
	byCategory map[string][]domain.ServicePoint
	total      int
}

// New builds an index from the directory, dropping points whose coordinates
// fall outside the service region.
func New(points []domain.ServicePoint, bbox geo.BoundingBox) *Index {
	idx := &Index{byCategory: make(map[string][]domain.ServicePoint)}
	for _, p := range points {
		if !bbox.Contains(p.Latitude, p.Longitude) {
			continue
		}
		idx.byCategory[p.Category] = append(idx.byCategory[p.Category], p)
		idx.total++
	}
	return idx
}

// Len returns the number of indexed points.
func (i *Index) Len() int { return i.total }

// Categories returns the categories present in the index, sorted.
func (i *Index) Categories() []string {
	cats := make([]string, 0, len(i.byCategory))
	for c := range i.byCategory {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}

// Nearest returns the closest point of the category, or false when the
// category has no points.
func (i *Index) Nearest(lat, lon float64, category string) (domain.NearbyService, bool) {
	points := i.byCategory[category]
	if len(points) == 0 {
		return domain.NearbyService{}, false
	}

	best := domain.NearbyService{DistanceM: -1}
	for _, p := range points {
		d := geo.Haversine(lat, lon, p.Latitude, p.Longitude)
		if best.DistanceM < 0 || d < best.DistanceM {
			best = domain.NearbyService{Point: p, DistanceM: d}
		}
	}
	return best, true
}

// Within returns all points of the category inside radiusM meters, nearest
// first. Equal distances keep directory order.
func (i *Index) Within(lat, lon float64, category string, radiusM float64) []domain.NearbyService {
	var out []domain.NearbyService
	for _, p := range i.byCategory[category] {
		d := geo.Haversine(lat, lon, p.Latitude, p.Longitude)
		if d <= radiusM {
			out = append(out, domain.NearbyService{Point: p, DistanceM: d})
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].DistanceM < out[b].DistanceM })
	return out
}

// NearestWithin is Nearest constrained to a radius. It returns false when
// no point of the category lies inside radiusM meters.
func (i *Index) NearestWithin(lat, lon float64, category string, radiusM float64) (domain.NearbyService, bool) {
	best, ok := i.Nearest(lat, lon, category)
	if !ok || best.DistanceM > radiusM {
		return domain.NearbyService{}, false
	}
	return best, true
}
