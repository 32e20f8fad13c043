package openai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/urbo-labs/casamatch/internal/domain"
)

func TestDecodePayload_Valid(t *testing.T) {
	content := `{
		"price": 120000,
		"currency": "USD",
		"bedrooms": 3,
		"bathrooms": null,
		"garages": 1,
		"surface_m2": 220.5,
		"zone": "Las Palmas",
		"property_type": "casa",
		"operation": "venta",
		"agent_name": null,
		"agent_contact": null,
		"amenities": ["pool", "security"]
	}`

	fs, err := decodePayload(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fs.Price == nil || *fs.Price != 120_000 {
		t.Errorf("price = %v, want 120000", fs.Price)
	}
	if fs.Currency != domain.CurrencyUSD {
		t.Errorf("currency = %s, want USD", fs.Currency)
	}
	if fs.Bathrooms != nil {
		t.Error("null bathrooms should stay nil")
	}
	if fs.Zone == nil || *fs.Zone != "Las Palmas" {
		t.Errorf("zone = %v, want Las Palmas", fs.Zone)
	}
	if len(fs.Amenities) != 2 {
		t.Errorf("amenities = %v, want 2 tags", fs.Amenities)
	}
}

func TestDecodePayload_CodeFence(t *testing.T) {
	content := "```json\n{\"price\": 95000, \"currency\": \"BOB\"}\n```"
	fs, err := decodePayload(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fs.Price == nil || *fs.Price != 95_000 {
		t.Errorf("price = %v, want 95000", fs.Price)
	}
	if fs.Currency != domain.CurrencyBOB {
		t.Errorf("currency = %s, want BOB", fs.Currency)
	}
}

func TestDecodePayload_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "the price is around 120k dollars"},
		{"wrong type", `{"price": "expensive"}`},
		{"bad currency enum", `{"price": 120000, "currency": "EUR"}`},
		{"truncated", `{"price": 120000, "curr`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodePayload(tt.content)
			if !errors.Is(err, domain.ErrMalformedResponse) {
				t.Errorf("err = %v, want ErrMalformedResponse", err)
			}
		})
	}
}

func TestDecodePayload_ImplausibleValuesDegrade(t *testing.T) {
	fs, err := decodePayload(`{"price": 12, "surface_m2": -5, "bedrooms": -1}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fs.Price != nil {
		t.Error("implausible price should degrade to nil")
	}
	if fs.SurfaceM2 != nil {
		t.Error("negative surface should degrade to nil")
	}
	if fs.Bedrooms != nil {
		t.Error("negative bedrooms should degrade to nil")
	}
}

func TestBuildPrompt_FillTheGap(t *testing.T) {
	p := BuildPrompt(domain.ParseRequest{
		Title:         "Casa en venta",
		Description:   "linda casa",
		MissingFields: []string{"price", "zone"},
	})
	if !strings.Contains(p, "ONLY these fields") || !strings.Contains(p, "price, zone") {
		t.Errorf("fill-the-gap prompt missing field list:\n%s", p)
	}
}

func TestBuildPrompt_FullExtraction(t *testing.T) {
	p := BuildPrompt(domain.ParseRequest{Title: "Casa", Description: "sin datos"})
	if !strings.Contains(p, "Extract all fields") {
		t.Errorf("full prompt wrong shape:\n%s", p)
	}
	if !strings.Contains(p, `"surface_m2"`) {
		t.Error("prompt should embed the JSON schema")
	}
}

func TestParse_MissingKeyIsAuthError(t *testing.T) {
	p := NewParser(&Config{Provider: "openai", Model: "gpt-4o-mini"})
	_, err := p.Parse(context.Background(), domain.ParseRequest{Title: "x"})
	if !errors.Is(err, domain.ErrProviderAuthError) {
		t.Fatalf("err = %v, want ErrProviderAuthError", err)
	}
}
