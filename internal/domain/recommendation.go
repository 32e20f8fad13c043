package domain

// ScoreBreakdown carries the weighted sub-scores behind a recommendation.
// Each component is already multiplied by its weight; Score is their sum.
type ScoreBreakdown struct {
	Location  float64 `json:"location"`
	Budget    float64 `json:"budget"`
	Proximity float64 `json:"proximity"`
	Amenity   float64 `json:"amenity"`
}

// Recommendation is one ranked result for a buyer profile. Computed per
// query, never persisted.
type Recommendation struct {
	PropertyID    string                   `json:"property_id"`
	Score         float64                  `json:"score"`
	Breakdown     ScoreBreakdown           `json:"breakdown"`
	Justification string                   `json:"justification"`
	Nearby        map[string]NearbyService `json:"nearby_services,omitempty"`
}
