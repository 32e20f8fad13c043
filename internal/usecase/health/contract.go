package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// ParserChecker checks a fallback-parser provider's availability.
type ParserChecker interface {
	HealthCheck(ctx context.Context) error
	Name() string
}
