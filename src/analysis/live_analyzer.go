package analysis

import (
	"sync"

	"rl-dashboard/src/logger"
	"rl-dashboard/src/models"
	"rl-dashboard/src/utils"
)

// -----------------------------------------------------------------------------
// LiveAnalyzer maintains windowed reward and NAV series for one agent run and
// derives rolling statistics from them. HandleAgentMetric has the
// subscription callback signature, so the analyzer plugs straight into an
// agent_stats channel subscription.
// -----------------------------------------------------------------------------

type MRunSummary struct {
	AgentRunID       string  `json:"agent_run_id"`
	Points           int     `json:"points"`
	LastStep         int64   `json:"last_step"`
	CumulativeReward float64 `json:"cumulative_reward"`
	MeanReward       float64 `json:"mean_reward"`
	RewardStd        float64 `json:"reward_std"`
	RollingSharpe    float64 `json:"rolling_sharpe"`
	MaxDrawdown      float64 `json:"max_drawdown"`
}

// -----------------------------------------------------------------------------

type LiveAnalyzer struct {
	AgentRunID string
	Rewards    *utils.SeriesBuffer
	NAVs       *utils.SeriesBuffer
	Logger     *logger.Logger

	mu       sync.RWMutex
	lastStep int64
}

// -----------------------------------------------------------------------------

func NewLiveAnalyzer(agentRunID string, capacity int, log *logger.Logger) *LiveAnalyzer {
	return &LiveAnalyzer{
		AgentRunID: agentRunID,
		Rewards:    utils.NewSeriesBuffer(capacity),
		NAVs:       utils.NewSeriesBuffer(capacity),
		Logger:     log,
	}
}

// -----------------------------------------------------------------------------

// SeedRewards loads historical points into the reward window, e.g. from the
// stored-metrics REST endpoint.
func (la *LiveAnalyzer) SeedRewards(points []models.MSeriesPoint) {
	la.Rewards.Seed(points)

	if last, ok := la.Rewards.Last(); ok {
		la.mu.Lock()
		la.lastStep = last.Ordinal
		la.mu.Unlock()
	}
}

// -----------------------------------------------------------------------------

// HandleAgentMetric appends one live training metric to the windows.
func (la *LiveAnalyzer) HandleAgentMetric(msg *models.MInboundMessage) {
	metric, err := msg.AgentMetric()
	if err != nil {
		la.Logger.Warning("Analyzer: undecodable agent metric on %s: %v", msg.Channel, err)
		return
	}

	la.Rewards.Append(metric.SeriesPoint())
	la.NAVs.Append(models.MSeriesPoint{
		Ordinal: int64(metric.Step),
		Value:   metric.PortfolioNAV.Float64(),
	})

	la.mu.Lock()
	la.lastStep = int64(metric.Step)
	la.mu.Unlock()
}

// -----------------------------------------------------------------------------

// Summary derives rolling statistics from the current windows.
func (la *LiveAnalyzer) Summary() MRunSummary {
	rewards := la.Rewards.Values()
	navs := la.NAVs.Values()

	la.mu.RLock()
	lastStep := la.lastStep
	la.mu.RUnlock()

	summary := MRunSummary{
		AgentRunID: la.AgentRunID,
		Points:     len(rewards),
		LastStep:   lastStep,
	}

	if len(rewards) > 0 {
		summary.CumulativeReward = rewards[len(rewards)-1]
		summary.MeanReward, summary.RewardStd = CalculateMeanStd(rewards)
	}

	summary.RollingSharpe = RollingSharpe(navs)
	summary.MaxDrawdown = MaxDrawdown(navs)

	return summary
}
