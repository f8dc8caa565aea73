package models

// -----------------------------------------------------------------------------
// Training metric and agent run shapes. The same structs back the REST history
// response and the live agent_metric frames, so a chart consumer cannot tell
// the two sources apart.
// -----------------------------------------------------------------------------

type MAgentMetric struct {
	AgentRunID       string    `json:"agent_run_id,omitempty"`
	Timestamp        string    `json:"timestamp,omitempty"`
	Step             MFloat    `json:"step"`
	EpisodeReward    MOptFloat `json:"episode_reward"`
	CumulativeReward MFloat    `json:"cumulative_reward"`
	Loss             MOptFloat `json:"loss"`
	PortfolioNAV     MFloat    `json:"portfolio_nav"`
	RollingSharpe    MOptFloat `json:"rolling_sharpe"`
}

// -----------------------------------------------------------------------------

// SeriesPoint projects the metric onto the reward chart's point shape.
func (m *MAgentMetric) SeriesPoint() MSeriesPoint {
	return MSeriesPoint{
		Ordinal:   int64(m.Step),
		Value:     m.CumulativeReward.Float64(),
		Secondary: m.Loss,
	}
}

// -----------------------------------------------------------------------------

type MAgentRun struct {
	ID          string `json:"id"`
	PortfolioID string `json:"portfolio_id"`
	Algorithm   string `json:"algorithm"`
	Mode        string `json:"mode"`
	Status      string `json:"status"`
	StartTime   string `json:"start_time,omitempty"`
	EndTime     string `json:"end_time,omitempty"`
}

// -----------------------------------------------------------------------------

// MAgentStats is the historical-metrics REST response.
type MAgentStats struct {
	AgentRun     MAgentRun      `json:"agent_run"`
	Metrics      []MAgentMetric `json:"metrics"`
	TotalMetrics int            `json:"total_metrics"`
}

// -----------------------------------------------------------------------------
// Portfolio and trade payloads
// -----------------------------------------------------------------------------

type MPositionDetail struct {
	Ticker               string `json:"ticker"`
	Quantity             MFloat `json:"quantity"`
	AvgPurchasePrice     MFloat `json:"avg_purchase_price"`
	CurrentPrice         MFloat `json:"current_price"`
	MarketValue          MFloat `json:"market_value"`
	UnrealizedPnL        MFloat `json:"unrealized_pnl"`
	UnrealizedPnLPercent MFloat `json:"unrealized_pnl_percent"`
}

type MPortfolioUpdate struct {
	PortfolioID string            `json:"portfolio_id,omitempty"`
	NAV         MFloat            `json:"nav"`
	PnL         MFloat            `json:"pnl"`
	PnLPercent  MFloat            `json:"pnl_percent"`
	Positions   []MPositionDetail `json:"positions,omitempty"`
}

type MTrade struct {
	ID          string    `json:"id,omitempty"`
	PortfolioID string    `json:"portfolio_id,omitempty"`
	Ticker      string    `json:"ticker"`
	Side        string    `json:"side"` // "BUY" or "SELL"
	Quantity    MFloat    `json:"quantity"`
	Price       MFloat    `json:"price"`
	TotalValue  MFloat    `json:"total_value"`
	Slippage    MOptFloat `json:"slippage"`
	Fees        MOptFloat `json:"fees"`
	ExecutedAt  string    `json:"executed_at,omitempty"`
	Simulated   bool      `json:"simulated,omitempty"`
}

type MMarketData struct {
	Ticker    string    `json:"ticker"`
	Price     MFloat    `json:"price"`
	Volume    MOptFloat `json:"volume"`
	Timestamp int64     `json:"timestamp"`
}
