package domain

import "context"

// ParseRequest asks a language-model provider to extract listing attributes.
// When MissingFields is non-empty the prompt requests only those fields;
// otherwise it requests a full extraction.
type ParseRequest struct {
	Title         string
	Description   string
	MissingFields []string
}

// Parser is the contract for a language-model extraction provider. Shared
// between layers so providers, caches, and the fallback chain compose.
type Parser interface {
	Parse(ctx context.Context, req ParseRequest) (FeatureSet, error)
	Name() string
}

// ParserHealthChecker verifies provider availability.
type ParserHealthChecker interface {
	HealthCheck(ctx context.Context) error
}
