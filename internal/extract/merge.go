package extract

import "github.com/urbo-labs/casamatch/internal/domain"

// Merge deterministically combines the pattern-derived feature set with the
// model-derived one. Per field, the pattern value wins when non-nil; the
// model value fills the gaps. llm is nil when the fallback parser was never
// invoked or contributed nothing.
func Merge(pattern domain.FeatureSet, llm *domain.FeatureSet, provider string) domain.FeatureSet {
	if llm == nil {
		merged := pattern
		merged.Method = domain.MethodRegexOnly
		merged.ProviderUsed = ""
		return merged
	}

	merged := pattern
	merged.Price = pickFloat(pattern.Price, llm.Price)
	merged.SurfaceM2 = pickFloat(pattern.SurfaceM2, llm.SurfaceM2)
	merged.Bedrooms = pickInt(pattern.Bedrooms, llm.Bedrooms)
	merged.Bathrooms = pickInt(pattern.Bathrooms, llm.Bathrooms)
	merged.Garages = pickInt(pattern.Garages, llm.Garages)
	merged.Zone = pickString(pattern.Zone, llm.Zone)
	merged.PropertyType = pickString(pattern.PropertyType, llm.PropertyType)
	merged.Operation = pickString(pattern.Operation, llm.Operation)
	merged.AgentName = pickString(pattern.AgentName, llm.AgentName)
	merged.AgentContact = pickString(pattern.AgentContact, llm.AgentContact)

	if pattern.Currency == domain.CurrencyUnknown && llm.Currency != "" {
		merged.Currency = llm.Currency
	}

	merged.Amenities = append(append([]string(nil), pattern.Amenities...), llm.Amenities...)
	merged.NormalizeAmenities()

	switch {
	case pattern.Empty() && !llm.Empty():
		merged.Method = domain.MethodLLMOnly
	case !pattern.Empty() && !llm.Empty():
		merged.Method = domain.MethodHybrid
	default:
		merged.Method = domain.MethodRegexOnly
	}

	if merged.Method == domain.MethodRegexOnly {
		merged.ProviderUsed = ""
	} else {
		merged.ProviderUsed = provider
	}

	return merged
}

func pickFloat(pattern, llm *float64) *float64 {
	if pattern != nil {
		return pattern
	}
	return llm
}

func pickInt(pattern, llm *int) *int {
	if pattern != nil {
		return pattern
	}
	return llm
}

func pickString(pattern, llm *string) *string {
	if pattern != nil {
		return pattern
	}
	return llm
}
