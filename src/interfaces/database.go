package interfaces

import "rl-dashboard/src/models"

// -----------------------------------------------------------------------------
// IDatabase defines the contract for the local history cache of received
// realtime updates.
// -----------------------------------------------------------------------------

type IDatabase interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveAgentMetric records one training metric frame.
	SaveAgentMetric(metric *models.MAgentMetric) error

	// -----------------------------------------------------------------------------

	// SaveTrade records one trade execution notification.
	SaveTrade(trade *models.MTrade) error

	// -----------------------------------------------------------------------------

	// SavePortfolioSnapshot records one portfolio state update.
	SavePortfolioSnapshot(update *models.MPortfolioUpdate) error

	// -----------------------------------------------------------------------------

	// CleanupOldData removes rows older than the retention policy.
	CleanupOldData() error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
