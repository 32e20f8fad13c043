package openai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/urbo-labs/casamatch/internal/domain"
	"github.com/urbo-labs/casamatch/internal/extract"
)

// payload is the fixed response schema. Anything that does not unmarshal
// into it is treated as a provider failure.
type payload struct {
	Price        *float64 `json:"price"`
	Currency     *string  `json:"currency"`
	Bedrooms     *int     `json:"bedrooms"`
	Bathrooms    *int     `json:"bathrooms"`
	Garages      *int     `json:"garages"`
	SurfaceM2    *float64 `json:"surface_m2"`
	Zone         *string  `json:"zone"`
	PropertyType *string  `json:"property_type"`
	Operation    *string  `json:"operation"`
	AgentName    *string  `json:"agent_name"`
	AgentContact *string  `json:"agent_contact"`
	Amenities    []string `json:"amenities"`
}

// decodePayload validates and converts the model output. Malformed output
// (bad JSON, wrong types, out-of-enum currency) maps to ErrMalformedResponse
// so the chain treats it like any other provider failure.
func decodePayload(content string) (domain.FeatureSet, error) {
	content = stripCodeFence(content)

	var pl payload
	if err := json.Unmarshal([]byte(content), &pl); err != nil {
		return domain.FeatureSet{}, fmt.Errorf("decode payload: %v: %w",
			err, domain.ErrMalformedResponse)
	}

	fs := domain.FeatureSet{
		Currency:     domain.CurrencyUnknown,
		Bedrooms:     nonNegative(pl.Bedrooms),
		Bathrooms:    nonNegative(pl.Bathrooms),
		Garages:      nonNegative(pl.Garages),
		Zone:         cleanString(pl.Zone),
		PropertyType: cleanString(pl.PropertyType),
		Operation:    cleanString(pl.Operation),
		AgentName:    cleanString(pl.AgentName),
		AgentContact: cleanString(pl.AgentContact),
		Amenities:    pl.Amenities,
	}

	if pl.Currency != nil {
		switch strings.ToUpper(strings.TrimSpace(*pl.Currency)) {
		case "USD":
			fs.Currency = domain.CurrencyUSD
		case "BOB", "BS":
			fs.Currency = domain.CurrencyBOB
		case "", "UNKNOWN", "NULL":
			// leave unknown
		default:
			return domain.FeatureSet{}, fmt.Errorf("currency %q outside enum: %w",
				*pl.Currency, domain.ErrMalformedResponse)
		}
	}

	// Same plausibility window as the pattern stage; an implausible model
	// price degrades to null instead of failing the record.
	if pl.Price != nil && *pl.Price >= extract.MinPlausiblePrice && *pl.Price <= extract.MaxPlausiblePrice {
		fs.Price = pl.Price
	}
	if pl.SurfaceM2 != nil && *pl.SurfaceM2 > 0 {
		fs.SurfaceM2 = pl.SurfaceM2
	}

	fs.NormalizeAmenities()
	return fs, nil
}

func nonNegative(v *int) *int {
	if v == nil || *v < 0 {
		return nil
	}
	return v
}

func cleanString(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	return &s
}

// stripCodeFence tolerates models that wrap JSON in a markdown fence despite
// the JSON response format.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
