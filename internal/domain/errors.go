package domain

import "errors"

var (
	// ErrMalformedRecord signals a raw listing with neither title nor description.
	ErrMalformedRecord = errors.New("malformed raw record")
	// ErrInvalidCoordinates signals coordinates outside the service region.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	// ErrInvalidPriceRange signals a price outside the plausible range.
	ErrInvalidPriceRange = errors.New("invalid price range")
	// ErrPropertyNotFound signals a missing property record.
	ErrPropertyNotFound = errors.New("property not found")

	// ErrProviderRateLimited signals an HTTP 429 from a language-model provider.
	ErrProviderRateLimited = errors.New("provider rate limited")
	// ErrProviderServerError signals a 5xx from a language-model provider.
	ErrProviderServerError = errors.New("provider server error")
	// ErrProviderAuthError signals a 401/403 or missing credentials; never retried.
	ErrProviderAuthError = errors.New("provider auth error")
	// ErrProviderTimeout signals an exceeded provider deadline.
	ErrProviderTimeout = errors.New("provider timeout")
	// ErrProviderUnavailable signals a connection-level provider failure.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrMalformedResponse signals provider output that failed schema validation.
	ErrMalformedResponse = errors.New("malformed provider response")
	// ErrProvidersExhausted signals that every provider in the chain failed.
	ErrProvidersExhausted = errors.New("all providers exhausted")
)

// Retryable reports whether a provider error warrants one retry before
// falling back to the next provider. Auth and schema errors are not retried.
func Retryable(err error) bool {
	return errors.Is(err, ErrProviderRateLimited) ||
		errors.Is(err, ErrProviderServerError) ||
		errors.Is(err, ErrProviderTimeout) ||
		errors.Is(err, ErrProviderUnavailable)
}
