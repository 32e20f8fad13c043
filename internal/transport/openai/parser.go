// Package openai implements the language-model fallback parser against any
// OpenAI-compatible chat-completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/urbo-labs/casamatch/internal/domain"
	"github.com/urbo-labs/casamatch/internal/metrics"
)

// UsageRecorder persists per-provider call and cost counters. Accounting
// failures never fail a parse.
type UsageRecorder interface {
	RecordLLMCall(ctx context.Context, provider string, costUSD float64) error
}

// Parser is an extraction provider using an OpenAI-compatible API.
type Parser struct {
	client      *openai.Client
	model       string
	provider    string
	hasKey      bool
	costPerCall float64
	usage       UsageRecorder
	logger      *zap.Logger
}

// Config holds the parser provider settings.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Provider       string
	CostPerCallUSD float64
	Logger         *zap.Logger
}

// NewParser creates an OpenAI-compatible extraction provider.
func NewParser(cfg *Config) *Parser {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Parser{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		provider:    cfg.Provider,
		hasKey:      cfg.APIKey != "",
		costPerCall: cfg.CostPerCallUSD,
		logger:      log,
	}
}

// WithUsageRecorder attaches persistent usage accounting. nil disables it.
func (p *Parser) WithUsageRecorder(u UsageRecorder) *Parser {
	p.usage = u
	return p
}

// Name implements domain.Parser.
func (p *Parser) Name() string { return p.provider }

// Parse implements domain.Parser. Submits one prompt and validates the
// structured response against the fixed field schema.
func (p *Parser) Parse(ctx context.Context, req domain.ParseRequest) (domain.FeatureSet, error) {
	if !p.hasKey {
		// Missing credentials is a configuration failure, never retried.
		return domain.FeatureSet{}, fmt.Errorf("provider %s has no API key: %w",
			p.provider, domain.ErrProviderAuthError)
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(req)},
		},
	}

	start := time.Now()

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)

	duration := time.Since(start)

	if err != nil {
		classified := p.classifyError(err)
		metrics.ParserRequestsTotal.WithLabelValues(p.provider, p.model, "error").Inc()
		metrics.ParserErrorsTotal.WithLabelValues(p.provider, p.model, errorClass(classified)).Inc()
		return domain.FeatureSet{}, classified
	}

	metrics.ParserCostTotal.WithLabelValues(p.provider).Add(p.costPerCall)
	if p.usage != nil {
		if err := p.usage.RecordLLMCall(ctx, p.provider, p.costPerCall); err != nil {
			p.logger.Warn("Failed to record provider usage",
				zap.String("provider", p.provider), zap.Error(err))
		}
	}

	if len(resp.Choices) == 0 {
		metrics.ParserRequestsTotal.WithLabelValues(p.provider, p.model, "error").Inc()
		metrics.ParserErrorsTotal.WithLabelValues(p.provider, p.model, "empty_response").Inc()
		return domain.FeatureSet{}, fmt.Errorf("empty completion: %w", domain.ErrMalformedResponse)
	}

	fs, err := decodePayload(resp.Choices[0].Message.Content)
	if err != nil {
		metrics.ParserRequestsTotal.WithLabelValues(p.provider, p.model, "error").Inc()
		metrics.ParserErrorsTotal.WithLabelValues(p.provider, p.model, "malformed_response").Inc()
		p.logger.Warn("Provider returned malformed payload",
			zap.String("provider", p.provider), zap.Error(err))
		return domain.FeatureSet{}, err
	}

	metrics.ParserRequestsTotal.WithLabelValues(p.provider, p.model, "success").Inc()
	metrics.ParserRequestDuration.WithLabelValues(p.provider, p.model).Observe(duration.Seconds())

	return fs, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (p *Parser) HealthCheck(ctx context.Context) error {
	if _, err := p.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// classifyError maps transport failures onto the domain failure taxonomy so
// the fallback chain can decide between retry, provider switch, and surfacing
// a config error.
func (p *Parser) classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("provider %s: %w", p.provider, domain.ErrProviderTimeout)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return p.classifyStatus(apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode > 0 {
			return p.classifyStatus(reqErr.HTTPStatusCode, string(reqErr.Body))
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("provider %s: %w", p.provider, domain.ErrProviderTimeout)
	}

	return fmt.Errorf("provider %s: %v: %w", p.provider, err, domain.ErrProviderUnavailable)
}

func (p *Parser) classifyStatus(status int, detail string) error {
	switch {
	case status == 401 || status == 403:
		return fmt.Errorf("provider %s: status %d: %s: %w",
			p.provider, status, detail, domain.ErrProviderAuthError)
	case status == 429:
		return fmt.Errorf("provider %s: status %d: %w",
			p.provider, status, domain.ErrProviderRateLimited)
	case status >= 500:
		return fmt.Errorf("provider %s: status %d: %s: %w",
			p.provider, status, detail, domain.ErrProviderServerError)
	default:
		return fmt.Errorf("provider %s: status %d: %s: %w",
			p.provider, status, detail, domain.ErrProviderUnavailable)
	}
}

func errorClass(err error) string {
	switch {
	case errors.Is(err, domain.ErrProviderRateLimited):
		return "rate_limited"
	case errors.Is(err, domain.ErrProviderServerError):
		return "server_error"
	case errors.Is(err, domain.ErrProviderAuthError):
		return "config_error"
	case errors.Is(err, domain.ErrProviderTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrMalformedResponse):
		return "malformed_response"
	default:
		return "unavailable"
	}
}
