package extraction

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/urbo-labs/casamatch/internal/domain"
)

// scriptedParser returns the queued outcomes in order, then repeats the last.
type scriptedParser struct {
	name    string
	results []scriptedResult
	calls   int
}

type scriptedResult struct {
	fs  domain.FeatureSet
	err error
}

func (p *scriptedParser) Parse(_ context.Context, _ domain.ParseRequest) (domain.FeatureSet, error) {
	idx := p.calls
	if idx >= len(p.results) {
		idx = len(p.results) - 1
	}
	p.calls++
	r := p.results[idx]
	return r.fs, r.err
}

func (p *scriptedParser) Name() string { return p.name }

func okFeatures() domain.FeatureSet {
	price := 120_000.0
	zone := "Equipetrol"
	return domain.FeatureSet{Price: &price, Zone: &zone}
}

func TestChainRetriesOnceOnRetryable(t *testing.T) {
	primary := &scriptedParser{name: "openai", results: []scriptedResult{
		{err: domain.ErrProviderRateLimited},
		{fs: okFeatures()},
	}}

	chain := NewChain(zap.NewNop()).Add(primary, time.Second)

	fs, provider, err := chain.Parse(context.Background(), domain.ParseRequest{Title: "depto"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if provider != "openai" {
		t.Fatalf("provider = %q, want openai", provider)
	}
	if primary.calls != 2 {
		t.Fatalf("primary calls = %d, want 2 (one retry)", primary.calls)
	}
	if fs.Price == nil || *fs.Price != 120_000 {
		t.Fatalf("unexpected features: %+v", fs)
	}
}

func TestChainFallsBackToSecondaryOnRateLimit(t *testing.T) {
	primary := &scriptedParser{name: "openai", results: []scriptedResult{
		{err: domain.ErrProviderRateLimited},
	}}
	secondary := &scriptedParser{name: "anthropic", results: []scriptedResult{
		{fs: okFeatures()},
	}}

	chain := NewChain(zap.NewNop()).
		Add(primary, time.Second).
		Add(secondary, time.Second)

	_, provider, err := chain.Parse(context.Background(), domain.ParseRequest{Title: "depto"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if provider != "anthropic" {
		t.Fatalf("provider = %q, want anthropic", provider)
	}
	if primary.calls != 2 {
		t.Fatalf("primary calls = %d, want 2 before fallback", primary.calls)
	}
	if secondary.calls != 1 {
		t.Fatalf("secondary calls = %d, want 1", secondary.calls)
	}
}

func TestChainDoesNotRetryAuthErrors(t *testing.T) {
	primary := &scriptedParser{name: "openai", results: []scriptedResult{
		{err: domain.ErrProviderAuthError},
	}}
	secondary := &scriptedParser{name: "anthropic", results: []scriptedResult{
		{fs: okFeatures()},
	}}

	chain := NewChain(zap.NewNop()).
		Add(primary, time.Second).
		Add(secondary, time.Second)

	_, provider, err := chain.Parse(context.Background(), domain.ParseRequest{Title: "casa"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if provider != "anthropic" {
		t.Fatalf("provider = %q, want anthropic", provider)
	}
	if primary.calls != 1 {
		t.Fatalf("primary calls = %d, want 1 (auth errors never retried)", primary.calls)
	}
}

func TestChainDoesNotRetryMalformedResponse(t *testing.T) {
	primary := &scriptedParser{name: "openai", results: []scriptedResult{
		{err: domain.ErrMalformedResponse},
	}}

	chain := NewChain(zap.NewNop()).Add(primary, time.Second)

	_, _, err := chain.Parse(context.Background(), domain.ParseRequest{Title: "casa"})
	if !errors.Is(err, domain.ErrProvidersExhausted) {
		t.Fatalf("err = %v, want ErrProvidersExhausted", err)
	}
	if primary.calls != 1 {
		t.Fatalf("primary calls = %d, want 1", primary.calls)
	}
}

func TestChainExhaustionWrapsEveryFailure(t *testing.T) {
	primary := &scriptedParser{name: "openai", results: []scriptedResult{
		{err: domain.ErrProviderServerError},
	}}
	secondary := &scriptedParser{name: "anthropic", results: []scriptedResult{
		{err: domain.ErrProviderAuthError},
	}}

	chain := NewChain(zap.NewNop()).
		Add(primary, time.Second).
		Add(secondary, time.Second)

	_, _, err := chain.Parse(context.Background(), domain.ParseRequest{Title: "casa"})
	if !errors.Is(err, domain.ErrProvidersExhausted) {
		t.Fatalf("err = %v, want ErrProvidersExhausted", err)
	}
	if !errors.Is(err, domain.ErrProviderServerError) {
		t.Fatalf("exhaustion should carry the primary failure, got %v", err)
	}
	if !errors.Is(err, domain.ErrProviderAuthError) {
		t.Fatalf("exhaustion should carry the secondary failure, got %v", err)
	}
	if primary.calls != 2 {
		t.Fatalf("primary calls = %d, want 2 (server errors retried once)", primary.calls)
	}
}

func TestChainEmptyReturnsExhausted(t *testing.T) {
	chain := NewChain(zap.NewNop())
	_, _, err := chain.Parse(context.Background(), domain.ParseRequest{Title: "casa"})
	if !errors.Is(err, domain.ErrProvidersExhausted) {
		t.Fatalf("err = %v, want ErrProvidersExhausted", err)
	}
}

func TestChainStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	primary := &scriptedParser{name: "openai", results: []scriptedResult{
		{err: domain.ErrProviderTimeout},
	}}
	secondary := &scriptedParser{name: "anthropic", results: []scriptedResult{
		{fs: okFeatures()},
	}}

	chain := NewChain(zap.NewNop()).
		Add(&cancellingParser{inner: primary, cancel: cancel}, time.Second).
		Add(secondary, time.Second)

	_, _, err := chain.Parse(ctx, domain.ParseRequest{Title: "casa"})
	if !errors.Is(err, domain.ErrProvidersExhausted) {
		t.Fatalf("err = %v, want ErrProvidersExhausted", err)
	}
	if secondary.calls != 0 {
		t.Fatalf("secondary calls = %d, want 0 after cancellation", secondary.calls)
	}
}

// cancellingParser cancels the surrounding context as a side effect of the
// first call, simulating a caller that gave up mid-chain.
type cancellingParser struct {
	inner  *scriptedParser
	cancel context.CancelFunc
}

func (p *cancellingParser) Parse(ctx context.Context, req domain.ParseRequest) (domain.FeatureSet, error) {
	defer p.cancel()
	return p.inner.Parse(ctx, req)
}

func (p *cancellingParser) Name() string { return p.inner.Name() }
