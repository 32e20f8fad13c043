// Package servicedir loads the urban-service directory from a JSON file.
// The directory is reference data shipped with the deployment, loaded once
// at startup.
package servicedir

import (
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/urbo-labs/casamatch/internal/domain"
)

// Load reads the directory file and returns its points. Entries with a
// missing name, category, or zero coordinates are dropped with a warning
// instead of failing the load.
func Load(path string, logger *zap.Logger) ([]domain.ServicePoint, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("service directory read %q: %w", path, err)
	}

	var points []domain.ServicePoint
	if err := json.Unmarshal(raw, &points); err != nil {
		return nil, fmt.Errorf("service directory decode %q: %w", path, err)
	}

	valid := points[:0]
	dropped := 0
	for _, p := range points {
		if p.Name == "" || p.Category == "" || (p.Latitude == 0 && p.Longitude == 0) {
			dropped++
			continue
		}
		valid = append(valid, p)
	}
	if dropped > 0 {
		logger.Warn("Dropped incomplete service directory entries",
			zap.String("path", path),
			zap.Int("dropped", dropped),
		)
	}
	logger.Info("Service directory loaded",
		zap.String("path", path),
		zap.Int("points", len(valid)),
	)
	return valid, nil
}
