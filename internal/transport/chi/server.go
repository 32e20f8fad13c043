// Package chi implements the HTTP API surface: extraction ingest,
// property reads, recommendations, usage, and health.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/urbo-labs/casamatch/internal/domain"
	"github.com/urbo-labs/casamatch/internal/logger"
	extractionuc "github.com/urbo-labs/casamatch/internal/usecase/extraction"
	healthuc "github.com/urbo-labs/casamatch/internal/usecase/health"
	recommenduc "github.com/urbo-labs/casamatch/internal/usecase/recommend"
	usageuc "github.com/urbo-labs/casamatch/internal/usecase/usage"
)

const maxBatchSize = 500

// PropertyWriter persists extracted properties.
type PropertyWriter interface {
	UpsertBatch(ctx context.Context, props []domain.Property) error
}

// Server wires the use-case services to HTTP handlers.
type Server struct {
	extraction *extractionuc.Service
	properties recommenduc.PropertyReader
	writer     PropertyWriter
	recommend  *recommenduc.Service
	usage      *usageuc.Service
	health     *healthuc.Service
	validate   *validator.Validate
	logger     *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(
	extraction *extractionuc.Service,
	properties recommenduc.PropertyReader,
	writer PropertyWriter,
	recommend *recommenduc.Service,
	usage *usageuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	return &Server{
		extraction: extraction,
		properties: properties,
		writer:     writer,
		recommend:  recommend,
		usage:      usage,
		health:     health,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		logger:     logger,
	}
}

// Mount registers all routes on the router.
func (s *Server) Mount(r chi.Router) {
	r.Post("/v1/extract", s.handleExtract)
	r.Get("/v1/properties", s.handleListProperties)
	r.Get("/v1/properties/{id}", s.handleGetProperty)
	r.Post("/v1/recommend", s.handleRecommend)
	r.Get("/v1/usage", s.handleUsage)
	r.Get("/healthz", s.handleHealth)
}

type extractRequest struct {
	Listings []domain.RawListing `json:"listings" validate:"required,min=1"`
	Persist  *bool               `json:"persist,omitempty"`
}

type extractResponse struct {
	Properties []domain.Property `json:"properties"`
	Skipped    int               `json:"skipped"`
}

// handleExtract runs the extraction pipeline over a batch of raw listings
// and, unless persist=false, stores the resulting properties.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	if len(req.Listings) > maxBatchSize {
		writeError(w, http.StatusRequestEntityTooLarge, "batch_too_large",
			"Too many listings in one batch")
		return
	}

	result := s.extraction.ExtractBatch(r.Context(), req.Listings)

	if req.Persist == nil || *req.Persist {
		if err := s.writer.UpsertBatch(r.Context(), result.Properties); err != nil {
			s.handleDomainError(w, r, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, extractResponse{
		Properties: result.Properties,
		Skipped:    result.Skipped,
	})
}

func (s *Server) handleListProperties(w http.ResponseWriter, r *http.Request) {
	props, err := s.properties.List(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"properties": props,
		"count":      len(props),
	})
}

func (s *Server) handleGetProperty(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	prop, err := s.properties.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prop)
}

type recommendRequest struct {
	Profile domain.BuyerProfile `json:"profile"`
	Limit   int                 `json:"limit,omitempty"`
}

type recommendResponse struct {
	Results []domain.Recommendation `json:"results"`
	Count   int                     `json:"count"`
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(req.Profile); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	results, err := s.recommend.Recommend(r.Context(), req.Profile, req.Limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recommendResponse{Results: results, Count: len(results)})
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	report, err := s.usage.GetReport(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())
	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// handleDomainError maps domain sentinels onto HTTP statuses without
// exposing internals. Logs through the request-scoped logger so the
// entries carry the request fields attached by the middleware.
func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))

	switch {
	case errors.Is(err, domain.ErrPropertyNotFound):
		writeError(w, http.StatusNotFound, "property_not_found", domain.ErrPropertyNotFound.Error())
	case errors.Is(err, domain.ErrInvalidPriceRange):
		writeError(w, http.StatusBadRequest, "invalid_budget_range", domain.ErrInvalidPriceRange.Error())
	case errors.Is(err, domain.ErrMalformedRecord):
		writeError(w, http.StatusBadRequest, "malformed_record", domain.ErrMalformedRecord.Error())
	default:
		s.logger.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
