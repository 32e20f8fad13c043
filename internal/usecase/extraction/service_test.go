package extraction

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/urbo-labs/casamatch/internal/domain"
	"github.com/urbo-labs/casamatch/internal/domain/geo"
)

// fakeFallback counts invocations and returns a fixed outcome.
type fakeFallback struct {
	fs       domain.FeatureSet
	provider string
	err      error
	calls    int
	lastReq  domain.ParseRequest
}

func (f *fakeFallback) Parse(_ context.Context, req domain.ParseRequest) (domain.FeatureSet, string, error) {
	f.calls++
	f.lastReq = req
	return f.fs, f.provider, f.err
}

func newService(fb FallbackParser) *Service {
	return New(fb, geo.SantaCruzBox, zap.NewNop())
}

func TestExtractSufficientPatternSkipsFallback(t *testing.T) {
	fb := &fakeFallback{}
	svc := newService(fb)

	raw := domain.RawListing{
		ID:    "sc-001",
		Title: "Departamento en venta en Equipetrol",
		Description: "Hermoso departamento de 3 dormitorios y 2 baños en Equipetrol, " +
			"120 m2, precio $us 185.000.",
	}

	prop, err := svc.Extract(context.Background(), raw)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if fb.calls != 0 {
		t.Fatalf("fallback calls = %d, want 0 when pattern output is sufficient", fb.calls)
	}
	if prop.Features.Method != domain.MethodRegexOnly {
		t.Fatalf("method = %q, want regex_only", prop.Features.Method)
	}
	if prop.Features.ProviderUsed != "" {
		t.Fatalf("provider = %q, want empty for regex_only", prop.Features.ProviderUsed)
	}
	if prop.Features.Price == nil || *prop.Features.Price != 185_000 {
		t.Fatalf("price = %v, want 185000", prop.Features.Price)
	}
}

func TestExtractInsufficientPatternCallsFallback(t *testing.T) {
	price := 95_000.0
	fb := &fakeFallback{
		fs:       domain.FeatureSet{Price: &price},
		provider: "openai",
	}
	svc := newService(fb)

	// Zone matches but no price: insufficient, so the gap goes to the model.
	raw := domain.RawListing{
		ID:          "sc-002",
		Title:       "Casa en la Zona Sur",
		Description: "Casa de 2 dormitorios en la Zona Sur, consultar precio.",
	}

	prop, err := svc.Extract(context.Background(), raw)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if fb.calls != 1 {
		t.Fatalf("fallback calls = %d, want 1", fb.calls)
	}
	if len(fb.lastReq.MissingFields) == 0 {
		t.Fatal("expected a fill-the-gap request naming missing fields")
	}
	for _, f := range fb.lastReq.MissingFields {
		if f == "zone" || f == "bedrooms" {
			t.Fatalf("field %q was already extracted, should not be requested", f)
		}
	}
	if prop.Features.Method != domain.MethodHybrid {
		t.Fatalf("method = %q, want hybrid", prop.Features.Method)
	}
	if prop.Features.Price == nil || *prop.Features.Price != 95_000 {
		t.Fatalf("price = %v, want 95000 from fallback", prop.Features.Price)
	}
	if prop.Features.Zone == nil || *prop.Features.Zone != "Zona Sur" {
		t.Fatalf("zone = %v, want pattern value Zona Sur", prop.Features.Zone)
	}
}

func TestExtractEmptyPatternRequestsFullParse(t *testing.T) {
	price := 60_000.0
	zone := "Centro"
	fb := &fakeFallback{
		fs:       domain.FeatureSet{Price: &price, Zone: &zone},
		provider: "openai",
	}
	svc := newService(fb)

	raw := domain.RawListing{
		ID:          "sc-003",
		Title:       "Oportunidad unica",
		Description: "Excelente inversion, consultar por interno.",
	}

	prop, err := svc.Extract(context.Background(), raw)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if fb.lastReq.MissingFields != nil {
		t.Fatalf("MissingFields = %v, want nil for a full parse", fb.lastReq.MissingFields)
	}
	if prop.Features.Method != domain.MethodLLMOnly {
		t.Fatalf("method = %q, want llm_only", prop.Features.Method)
	}
	if prop.Features.ProviderUsed != "openai" {
		t.Fatalf("provider = %q, want openai", prop.Features.ProviderUsed)
	}
}

func TestExtractFallbackFailureKeepsPatternResult(t *testing.T) {
	fb := &fakeFallback{err: fmt.Errorf("chain: %w", domain.ErrProvidersExhausted)}
	svc := newService(fb)

	raw := domain.RawListing{
		ID:          "sc-004",
		Title:       "Terreno en el Urubo",
		Description: "Terreno de 500 m2, consultar precio.",
	}

	prop, err := svc.Extract(context.Background(), raw)
	if err != nil {
		t.Fatalf("Extract should never fail on provider errors, got: %v", err)
	}
	if prop.Features.Method != domain.MethodRegexOnly {
		t.Fatalf("method = %q, want regex_only after fallback failure", prop.Features.Method)
	}
	if prop.Features.SurfaceM2 == nil || *prop.Features.SurfaceM2 != 500 {
		t.Fatalf("surface = %v, want 500 from pattern stage", prop.Features.SurfaceM2)
	}
	if prop.Features.Price != nil {
		t.Fatalf("price = %v, want nil", prop.Features.Price)
	}
}

func TestExtractWithRealChainFallsBackToSecondary(t *testing.T) {
	price := 75_000.0
	zone := "Equipetrol"
	primary := &scriptedParser{name: "openai", results: []scriptedResult{
		{err: domain.ErrProviderRateLimited},
	}}
	secondary := &scriptedParser{name: "anthropic", results: []scriptedResult{
		{fs: domain.FeatureSet{Price: &price, Zone: &zone}},
	}}
	chain := NewChain(zap.NewNop()).
		Add(primary, time.Second).
		Add(secondary, time.Second)

	svc := newService(chain)

	raw := domain.RawListing{
		ID:          "sc-005",
		Title:       "Departamento amoblado",
		Description: "Departamento amoblado de 2 dormitorios, excelente ubicacion.",
	}

	prop, err := svc.Extract(context.Background(), raw)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if secondary.calls != 1 {
		t.Fatalf("secondary calls = %d, want 1 after primary rate limit", secondary.calls)
	}
	if prop.Features.Method != domain.MethodHybrid && prop.Features.Method != domain.MethodLLMOnly {
		t.Fatalf("method = %q, want hybrid or llm_only", prop.Features.Method)
	}
	if prop.Features.ProviderUsed != "anthropic" {
		t.Fatalf("provider = %q, want anthropic", prop.Features.ProviderUsed)
	}
}

func TestExtractMalformedRecord(t *testing.T) {
	svc := newService(&fakeFallback{})

	_, err := svc.Extract(context.Background(), domain.RawListing{ID: "sc-006"})
	if !errors.Is(err, domain.ErrMalformedRecord) {
		t.Fatalf("err = %v, want ErrMalformedRecord", err)
	}
}

func TestExtractCoordinateValidation(t *testing.T) {
	inLat, inLon := -17.78, -63.18
	outLat, outLon := -16.50, -68.15 // La Paz, outside the service region

	tests := []struct {
		name  string
		lat   *float64
		lon   *float64
		valid bool
	}{
		{"inside region", &inLat, &inLon, true},
		{"outside region", &outLat, &outLon, false},
		{"missing", nil, nil, false},
	}

	svc := newService(&fakeFallback{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := domain.RawListing{
				ID:          "sc-007",
				Title:       "Casa en venta",
				Description: "Casa en Equipetrol, precio $us 120.000.",
				Latitude:    tt.lat,
				Longitude:   tt.lon,
			}
			prop, err := svc.Extract(context.Background(), raw)
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			if prop.CoordinatesValid != tt.valid {
				t.Fatalf("CoordinatesValid = %v, want %v", prop.CoordinatesValid, tt.valid)
			}
		})
	}
}

func TestExtractGeneratesIDWhenMissing(t *testing.T) {
	svc := newService(&fakeFallback{})

	raw := domain.RawListing{
		Title:       "Casa en venta",
		Description: "Casa en Equipetrol, precio $us 120.000.",
	}
	prop, err := svc.Extract(context.Background(), raw)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if prop.ID == "" {
		t.Fatal("expected a generated property ID")
	}
}

func TestExtractBatchPreservesOrderAndCountsSkips(t *testing.T) {
	svc := newService(&fakeFallback{err: domain.ErrProvidersExhausted}).WithWorkers(3)

	listings := []domain.RawListing{
		{ID: "a", Title: "Casa", Description: "Casa en Equipetrol, $us 100.000."},
		{ID: "b"}, // no text, skipped
		{ID: "c", Title: "Depto", Description: "Depto en el Centro, $us 80.000."},
		{ID: "d", Title: "Terreno", Description: "Terreno 300 m2, $us 45.000."},
	}

	res := svc.ExtractBatch(context.Background(), listings)
	if res.Skipped != 1 {
		t.Fatalf("skipped = %d, want 1", res.Skipped)
	}
	want := []string{"a", "c", "d"}
	if len(res.Properties) != len(want) {
		t.Fatalf("got %d properties, want %d", len(res.Properties), len(want))
	}
	for i, id := range want {
		if res.Properties[i].ID != id {
			t.Fatalf("Properties[%d].ID = %q, want %q", i, res.Properties[i].ID, id)
		}
	}
}
