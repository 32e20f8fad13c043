package domain

import (
	"sort"
	"strings"
)

// RawListing is one scraped record as delivered by the ingestion boundary.
// Immutable once ingested; the core never mutates it.
type RawListing struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	ProviderCode string   `json:"provider_code"`
	ContactName  string   `json:"contact_name,omitempty"`
	ContactPhone string   `json:"contact_phone,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
}

// Malformed reports whether the listing carries no extractable text at all.
// Such records are counted and skipped, never fatal.
func (r RawListing) Malformed() bool {
	return strings.TrimSpace(r.Title) == "" && strings.TrimSpace(r.Description) == ""
}

// Text returns the extraction input: title and description joined.
func (r RawListing) Text() string {
	if r.Description == "" {
		return r.Title
	}
	return r.Title + ". " + r.Description
}

// Currency is the detected transacting currency. Detected, never converted.
type Currency string

const (
	CurrencyUSD     Currency = "USD"
	CurrencyBOB     Currency = "BOB"
	CurrencyUnknown Currency = "unknown"
)

// Method records which extraction path produced a feature set.
type Method string

const (
	MethodRegexOnly Method = "regex_only"
	MethodHybrid    Method = "hybrid"
	MethodLLMOnly   Method = "llm_only"
)

// FeatureSet is the structured output of the extraction stage. Nil pointers
// mean the field could not be determined. Created once per raw listing and
// never mutated afterwards; re-extraction produces a new value.
type FeatureSet struct {
	Price        *float64 `json:"price,omitempty"`
	Currency     Currency `json:"currency"`
	Bedrooms     *int     `json:"bedrooms,omitempty"`
	Bathrooms    *int     `json:"bathrooms,omitempty"`
	Garages      *int     `json:"garages,omitempty"`
	SurfaceM2    *float64 `json:"surface_m2,omitempty"`
	Zone         *string  `json:"zone,omitempty"`
	PropertyType *string  `json:"property_type,omitempty"`
	Operation    *string  `json:"operation,omitempty"` // venta, alquiler, anticretico
	AgentName    *string  `json:"agent_name,omitempty"`
	AgentContact *string  `json:"agent_contact,omitempty"`
	Amenities    []string `json:"amenities,omitempty"`

	Method       Method `json:"extraction_method"`
	ProviderUsed string `json:"provider_used,omitempty"` // empty unless a model was invoked
}

// Sufficient reports whether the pattern stage found enough to skip the
// model fallback: a price plus either a zone or a surface area.
func (f FeatureSet) Sufficient() bool {
	return f.Price != nil && (f.Zone != nil || f.SurfaceM2 != nil)
}

// FieldCount returns the number of populated attribute fields. Currency and
// method metadata are not counted.
func (f FeatureSet) FieldCount() int {
	n := 0
	for _, set := range []bool{
		f.Price != nil, f.Bedrooms != nil, f.Bathrooms != nil, f.Garages != nil,
		f.SurfaceM2 != nil, f.Zone != nil, f.PropertyType != nil, f.Operation != nil,
		f.AgentName != nil, f.AgentContact != nil,
	} {
		if set {
			n++
		}
	}
	if len(f.Amenities) > 0 {
		n++
	}
	return n
}

// Empty reports whether no attribute field was extracted.
func (f FeatureSet) Empty() bool { return f.FieldCount() == 0 }

// MissingFields lists the attribute names still unresolved, in a stable
// order. Used to build fill-the-gap prompts.
func (f FeatureSet) MissingFields() []string {
	var missing []string
	for _, c := range []struct {
		name string
		set  bool
	}{
		{"price", f.Price != nil},
		{"bedrooms", f.Bedrooms != nil},
		{"bathrooms", f.Bathrooms != nil},
		{"garages", f.Garages != nil},
		{"surface_m2", f.SurfaceM2 != nil},
		{"zone", f.Zone != nil},
		{"property_type", f.PropertyType != nil},
		{"operation", f.Operation != nil},
		{"agent_name", f.AgentName != nil},
		{"agent_contact", f.AgentContact != nil},
	} {
		if !c.set {
			missing = append(missing, c.name)
		}
	}
	return missing
}

// NormalizeAmenities deduplicates and sorts the amenity tag set in place.
func (f *FeatureSet) NormalizeAmenities() {
	if len(f.Amenities) == 0 {
		return
	}
	seen := make(map[string]struct{}, len(f.Amenities))
	out := f.Amenities[:0]
	for _, a := range f.Amenities {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" {
			continue
		}
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	sort.Strings(out)
	f.Amenities = out
}

// Property is a feature set anchored to a validated geocoordinate pair.
// CoordinatesValid is true only when both coordinates fall inside the
// configured service-region bounding box.
type Property struct {
	ID           string     `json:"id"`
	ProviderCode string     `json:"provider_code,omitempty"`
	Features     FeatureSet `json:"features"`

	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	CoordinatesValid bool    `json:"coordinates_valid"`
}
