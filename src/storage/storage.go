package storage

import (
	"fmt"

	"rl-dashboard/src/interfaces"
	"rl-dashboard/src/logger"
	"rl-dashboard/src/models"
)

// -----------------------------------------------------------------------------
// Recorder factory. The recorder tails the live stream into a local database
// so closed sessions keep an offline trail of metrics, trades and snapshots.
// -----------------------------------------------------------------------------

// NewDatabase selects the recorder backend from the configured db type.
func NewDatabase(cfg *models.MConfig, log *logger.Logger) (interfaces.IDatabase, error) {
	switch cfg.Storage.DBType {
	case "sqlite":
		return NewAsyncSQLiteDB(cfg, log)
	case "postgres":
		return NewPostgresDB(cfg, log)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Storage.DBType)
	}
}

// -----------------------------------------------------------------------------

// optArg converts an optional metric into a SQL argument, mapping the
// no-value state to NULL.
func optArg(v models.MOptFloat) interface{} {
	if !v.Valid {
		return nil
	}
	return v.Value
}
