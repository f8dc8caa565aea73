package history

import (
	"encoding/json"
	"fmt"

	"rl-dashboard/src/interfaces"
	"rl-dashboard/src/logger"
	"rl-dashboard/src/models"
	"rl-dashboard/src/utils"
)

// -----------------------------------------------------------------------------
// HistoryService fetches stored training metrics over REST and seeds chart
// windows with them. After seeding, live frames append to the same windows,
// so a chart never distinguishes replayed history from live data.
// -----------------------------------------------------------------------------

type HistoryService struct {
	Config  *models.MConfig
	Network interfaces.INetworkManager
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------

func NewHistoryService(cfg *models.MConfig, nm interfaces.INetworkManager, log *logger.Logger) *HistoryService {
	return &HistoryService{
		Config:  cfg,
		Network: nm,
		Logger:  log,
	}
}

// -----------------------------------------------------------------------------

// AgentStats fetches the stored metrics for one agent run.
func (hs *HistoryService) AgentStats(agentRunID string) (*models.MAgentStats, error) {
	url := fmt.Sprintf("%s/api/v1/agent/%s/stats", hs.Config.API.BaseURL, agentRunID)

	body, err := hs.Network.Get(url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch agent stats for %s: %w", agentRunID, err)
	}

	var stats models.MAgentStats
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, fmt.Errorf("decode agent stats for %s: %w", agentRunID, err)
	}

	hs.Logger.Debug("Fetched %d/%d stored metrics for run %s",
		len(stats.Metrics), stats.TotalMetrics, agentRunID)

	return &stats, nil
}

// -----------------------------------------------------------------------------

// SeedRewardSeries loads an agent run's stored metrics into a chart window.
// An oversized history keeps only its newest points; subsequent live frames
// append behind them.
func (hs *HistoryService) SeedRewardSeries(buf *utils.SeriesBuffer, agentRunID string) error {
	stats, err := hs.AgentStats(agentRunID)
	if err != nil {
		return err
	}

	points := make([]models.MSeriesPoint, len(stats.Metrics))
	for i := range stats.Metrics {
		points[i] = stats.Metrics[i].SeriesPoint()
	}

	buf.Seed(points)
	hs.Logger.Info("Seeded reward series for run %s with %d points (window %d)",
		agentRunID, len(points), buf.Capacity())

	return nil
}
