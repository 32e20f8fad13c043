package config

import (
	"os"
	"testing"

	"github.com/urbo-labs/casamatch/internal/domain/geo"
)

func validConfig() Config {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
		LLM: LLMConfig{
			Primary: ProviderConfig{Name: "openai", Model: "gpt-4o-mini", APIKey: "test-key"},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_OK(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for port 0")
	}
}

func TestValidate_MissingAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty database.addrs")
	}
}

func TestValidate_MissingPrimaryProvider(t *testing.T) {
	cfg := validConfig()
	cfg.LLM.Primary = ProviderConfig{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unconfigured primary provider")
	}
}

func TestValidate_WeightsMustSumToOne(t *testing.T) {
	cfg := validConfig()
	cfg.Scoring.Weights = WeightsConfig{Location: 0.5, Budget: 0.5, Proximity: 0.5, Amenity: 0.1}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for weights not summing to 1.0")
	}
}

func TestValidate_MalformedBoundingBox(t *testing.T) {
	cfg := validConfig()
	cfg.Region.BoundingBox = geo.BoundingBox{MinLat: 10, MaxLat: -10, MinLon: 0, MaxLon: 1}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for inverted bounding box")
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.Scoring.Weights.Location != 0.35 || cfg.Scoring.Weights.Budget != 0.25 ||
		cfg.Scoring.Weights.Proximity != 0.30 || cfg.Scoring.Weights.Amenity != 0.10 {
		t.Errorf("unexpected default weights: %+v", cfg.Scoring.Weights)
	}
	if cfg.Scoring.MinScore != 0.3 {
		t.Errorf("default min_score = %g, want 0.3", cfg.Scoring.MinScore)
	}
	if cfg.Services.DefaultRadiusM != 2000 {
		t.Errorf("default radius = %g, want 2000", cfg.Services.DefaultRadiusM)
	}
	if cfg.Extraction.Workers != 4 {
		t.Errorf("default workers = %d, want 4", cfg.Extraction.Workers)
	}
	if cfg.Region.BoundingBox != geo.SantaCruzBox {
		t.Errorf("default bounding box should be the Santa Cruz box")
	}
	if _, ok := cfg.Region.ZoneCentroids["Equipetrol"]; !ok {
		t.Error("default centroids should cover Equipetrol")
	}
}

func TestExpandEnvVars(t *testing.T) {
	os.Setenv("CASAMATCH_TEST_KEY", "secret")
	defer os.Unsetenv("CASAMATCH_TEST_KEY")

	in := []byte("api_key: ${CASAMATCH_TEST_KEY}\nbase_url: ${CASAMATCH_TEST_URL:-https://api.openai.com/v1}")
	out := string(expandEnvVars(in))

	want := "api_key: secret\nbase_url: https://api.openai.com/v1"
	if out != want {
		t.Errorf("expandEnvVars:\ngot:  %q\nwant: %q", out, want)
	}
}
