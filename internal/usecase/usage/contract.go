package usage

import (
	"context"

	"github.com/urbo-labs/casamatch/internal/repository/usagestore"
)

// CounterReader provides read access to the persisted usage counters.
type CounterReader interface {
	Read(ctx context.Context) (usagestore.Snapshot, error)
}
