package domain

// Service-point categories used by the proximity scorer. The directory may
// carry others; these are the ones buyer profiles reference.
const (
	ServiceEducation = "education"
	ServiceHealth    = "health"
	ServiceCommerce  = "commerce"
	ServiceTransport = "transport"
	ServiceLeisure   = "leisure"
)

// ServicePoint is a point of interest from the urban-service directory.
// Read-only reference data.
type ServicePoint struct {
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory,omitempty"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// NearbyService pairs a service point with its distance from a property.
type NearbyService struct {
	Point     ServicePoint `json:"point"`
	DistanceM float64      `json:"distance_m"`
}
