package recommend

import (
	"context"

	"github.com/urbo-labs/casamatch/internal/domain"
)

// PropertyReader loads the scored property set.
type PropertyReader interface {
	List(ctx context.Context) ([]domain.Property, error)
	Get(ctx context.Context, id string) (domain.Property, error)
}

// ServiceIndex answers proximity queries over the urban-service directory.
type ServiceIndex interface {
	NearestWithin(lat, lon float64, category string, radiusM float64) (domain.NearbyService, bool)
}
