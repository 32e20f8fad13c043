package extraction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/urbo-labs/casamatch/internal/domain"
)

// Chain is a prioritized list of interchangeable language-model providers.
// Each provider gets one retry on a retryable failure class; auth and
// malformed-output failures move straight to the next provider.
type Chain struct {
	providers []chainEntry
	logger    *zap.Logger
}

type chainEntry struct {
	parser  domain.Parser
	timeout time.Duration
}

// NewChain creates an empty provider chain.
func NewChain(logger *zap.Logger) *Chain {
	return &Chain{logger: logger}
}

// Add appends a provider with its per-call timeout. Order defines priority.
func (c *Chain) Add(p domain.Parser, timeout time.Duration) *Chain {
	c.providers = append(c.providers, chainEntry{parser: p, timeout: timeout})
	return c
}

// Len returns the number of configured providers.
func (c *Chain) Len() int { return len(c.providers) }

// Parse iterates the providers until one returns a valid feature set.
// Exhaustion wraps ErrProvidersExhausted together with every per-provider
// failure, so callers can still classify the individual causes.
func (c *Chain) Parse(ctx context.Context, req domain.ParseRequest) (domain.FeatureSet, string, error) {
	if len(c.providers) == 0 {
		return domain.FeatureSet{}, "", domain.ErrProvidersExhausted
	}

	var failures []error

	for _, entry := range c.providers {
		fs, err := c.attempt(ctx, entry, req)
		if err == nil {
			return fs, entry.parser.Name(), nil
		}

		c.logger.Warn("Provider failed, falling back",
			zap.String("provider", entry.parser.Name()),
			zap.Error(err),
		)
		failures = append(failures, err)

		if ctx.Err() != nil {
			break
		}
	}

	return domain.FeatureSet{}, "", fmt.Errorf("%w: %w",
		domain.ErrProvidersExhausted, errors.Join(failures...))
}

// attempt calls one provider with its timeout, retrying at most once on a
// retryable failure class.
func (c *Chain) attempt(ctx context.Context, entry chainEntry, req domain.ParseRequest) (domain.FeatureSet, error) {
	fs, err := c.call(ctx, entry, req)
	if err == nil {
		return fs, nil
	}

	if !domain.Retryable(err) || ctx.Err() != nil {
		return domain.FeatureSet{}, err
	}

	c.logger.Debug("Retrying provider once",
		zap.String("provider", entry.parser.Name()),
		zap.Error(err),
	)
	return c.call(ctx, entry, req)
}

func (c *Chain) call(ctx context.Context, entry chainEntry, req domain.ParseRequest) (domain.FeatureSet, error) {
	if entry.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, entry.timeout)
		defer cancel()
	}
	return entry.parser.Parse(ctx, req)
}
