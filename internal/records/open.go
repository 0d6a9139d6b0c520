package records

import (
	"context"
	"fmt"

	"postroll/internal/config"
)

// Open constructs the driver selected by cfg.Records. The returned store owns
// its connection pool; callers share it for the life of the process.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Records.Driver {
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg.Records.DatabaseURL, int32(cfg.Records.MaxConns))
	case config.DriverSQLite, "":
		if err := cfg.EnsureDirectories(); err != nil {
			return nil, fmt.Errorf("ensure directories: %w", err)
		}
		return OpenSQLite(ctx, cfg.SQLitePath())
	default:
		return nil, fmt.Errorf("records: unsupported driver %q", cfg.Records.Driver)
	}
}
