package interfaces

import "rl-dashboard/src/models"

// -----------------------------------------------------------------------------
// IHistorySource fetches historical training metrics used to seed series
// buffers before live updates take over. The returned metrics have the same
// logical shape as live agent_metric frames.
// -----------------------------------------------------------------------------

type IHistorySource interface {

	// -----------------------------------------------------------------------------

	// AgentStats fetches the stored metrics for one agent run.
	AgentStats(agentRunID string) (*models.MAgentStats, error)
}
