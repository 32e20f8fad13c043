package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/urbo-labs/casamatch/internal/domain/geo"
)

// Config holds the casamatch API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	LLM        LLMConfig        `yaml:"llm"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Region     RegionConfig     `yaml:"region"`
	Services   ServicesConfig   `yaml:"services"`
	Scoring    ScoringConfig    `yaml:"scoring"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds key-value store connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// LLMConfig holds the fallback-parser provider chain settings.
type LLMConfig struct {
	Primary       ProviderConfig `yaml:"primary"`
	Secondary     ProviderConfig `yaml:"secondary"`
	CacheTTLHours int            `yaml:"cache_ttl_hours"` // 0 = no expiry
}

// ProviderConfig holds one language-model provider's settings.
type ProviderConfig struct {
	Name           string  `yaml:"name"`
	APIKey         string  `yaml:"api_key"`
	BaseURL        string  `yaml:"base_url"`
	Model          string  `yaml:"model"`
	TimeoutSec     int     `yaml:"timeout_sec"`
	CostPerCallUSD float64 `yaml:"cost_per_call_usd"`
}

// Configured reports whether the provider block is filled in at all.
func (p ProviderConfig) Configured() bool {
	return p.Name != "" && p.Model != ""
}

// ExtractionConfig holds batch extraction settings.
type ExtractionConfig struct {
	Workers int `yaml:"workers"`
}

// RegionConfig holds the service-region geometry.
type RegionConfig struct {
	BoundingBox   geo.BoundingBox      `yaml:"bounding_box"`
	ZoneCentroids map[string]geo.Point `yaml:"zone_centroids"`
}

// ServicesConfig holds service-directory settings.
type ServicesConfig struct {
	DirectoryPath  string  `yaml:"directory_path"`
	DefaultRadiusM float64 `yaml:"default_radius_m"`
}

// ScoringConfig holds recommendation scoring settings.
type ScoringConfig struct {
	Weights    WeightsConfig `yaml:"weights"`
	MinScore   float64       `yaml:"min_score"`
	MaxResults int           `yaml:"max_results"`
}

// WeightsConfig holds the multi-criteria weights. Must sum to 1.0.
type WeightsConfig struct {
	Location  float64 `yaml:"location"`
	Budget    float64 `yaml:"budget"`
	Proximity float64 `yaml:"proximity"`
	Amenity   float64 `yaml:"amenity"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.LLM.Primary.TimeoutSec <= 0 {
		c.LLM.Primary.TimeoutSec = 20
	}
	if c.LLM.Secondary.TimeoutSec <= 0 {
		c.LLM.Secondary.TimeoutSec = 20
	}
	if c.Extraction.Workers <= 0 {
		c.Extraction.Workers = 4
	}
	if c.Region.BoundingBox == (geo.BoundingBox{}) {
		c.Region.BoundingBox = geo.SantaCruzBox
	}
	if len(c.Region.ZoneCentroids) == 0 {
		c.Region.ZoneCentroids = defaultZoneCentroids()
	}
	if c.Services.DirectoryPath == "" {
		c.Services.DirectoryPath = "data/service_points.json"
	}
	if c.Services.DefaultRadiusM <= 0 {
		c.Services.DefaultRadiusM = 2000
	}
	if c.Scoring.Weights == (WeightsConfig{}) {
		c.Scoring.Weights = WeightsConfig{
			Location:  0.35,
			Budget:    0.25,
			Proximity: 0.30,
			Amenity:   0.10,
		}
	}
	if c.Scoring.MinScore <= 0 {
		c.Scoring.MinScore = 0.3
	}
	if c.Scoring.MaxResults <= 0 {
		c.Scoring.MaxResults = 50
	}
}

// defaultZoneCentroids covers the zones the recommender sees most often.
// Deployments override the full gazetteer via region.zone_centroids.
func defaultZoneCentroids() map[string]geo.Point {
	return map[string]geo.Point{
		"Equipetrol":       {Lat: -17.7650, Lon: -63.1950},
		"Equipetrol Norte": {Lat: -17.7560, Lon: -63.2010},
		"Centro":           {Lat: -17.7834, Lon: -63.1821},
		"Zona Norte":       {Lat: -17.7370, Lon: -63.1760},
		"Zona Sur":         {Lat: -17.8230, Lon: -63.1800},
		"Urubo":            {Lat: -17.7350, Lon: -63.2600},
		"Urbari":           {Lat: -17.7900, Lon: -63.2000},
		"Las Palmas":       {Lat: -17.7760, Lon: -63.2200},
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if !c.LLM.Primary.Configured() {
		return fmt.Errorf("llm.primary requires name and model")
	}
	if !c.Region.BoundingBox.Valid() {
		return fmt.Errorf("region.bounding_box is malformed")
	}
	w := c.Scoring.Weights
	sum := w.Location + w.Budget + w.Proximity + w.Amenity
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("scoring.weights must sum to 1.0, got %g", sum)
	}
	if c.Scoring.MinScore < 0 || c.Scoring.MinScore > 1 {
		return fmt.Errorf("scoring.min_score must be in [0,1], got %g", c.Scoring.MinScore)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
