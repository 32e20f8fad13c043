package extraction

import (
	"context"

	"github.com/urbo-labs/casamatch/internal/domain"
)

// FallbackParser is the consumer contract for the language-model fallback:
// the provider chain, usually wrapped by the parse cache. Returns the
// feature set and the name of the provider that produced it.
type FallbackParser interface {
	Parse(ctx context.Context, req domain.ParseRequest) (domain.FeatureSet, string, error)
}

// UsageRecorder persists per-method extraction counters.
type UsageRecorder interface {
	RecordExtraction(ctx context.Context, method string) error
}
