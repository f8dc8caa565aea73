package storage

import (
	"encoding/json"
	"testing"

	"rl-dashboard/src/logger"
	"rl-dashboard/src/models"
)

// -----------------------------------------------------------------------------

type fakeDB struct {
	metrics   []*models.MAgentMetric
	trades    []*models.MTrade
	snapshots []*models.MPortfolioUpdate
}

func (f *fakeDB) Initialize() error     { return nil }
func (f *fakeDB) CleanupOldData() error { return nil }
func (f *fakeDB) Close() error          { return nil }

func (f *fakeDB) SaveAgentMetric(m *models.MAgentMetric) error {
	f.metrics = append(f.metrics, m)
	return nil
}

func (f *fakeDB) SaveTrade(t *models.MTrade) error {
	f.trades = append(f.trades, t)
	return nil
}

func (f *fakeDB) SavePortfolioSnapshot(p *models.MPortfolioUpdate) error {
	f.snapshots = append(f.snapshots, p)
	return nil
}

// -----------------------------------------------------------------------------

func inbound(t *testing.T, raw string) *models.MInboundMessage {
	t.Helper()

	var env models.MEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		t.Fatal(err)
	}
	return models.NewInboundMessage(&env, []byte(raw))
}

// -----------------------------------------------------------------------------

func TestRecorderHandlers(t *testing.T) {
	db := &fakeDB{}
	rec := NewRecorder(db, logger.NewLogger("ERROR", "test"))

	rec.HandleAgentMetric(inbound(t,
		`{"type":"agent_metric","agent_run_id":"run-1","metric":{"step":5,"cumulative_reward":"9.5","portfolio_nav":100000}}`))
	rec.HandleTrade(inbound(t,
		`{"type":"trade_executed","portfolio_id":"pf-1","trade":{"ticker":"AAPL","side":"SELL","quantity":2,"price":190,"total_value":380}}`))
	rec.HandlePortfolioUpdate(inbound(t,
		`{"type":"portfolio_update","portfolio_id":"pf-1","data":{"nav":100380,"pnl":380,"pnl_percent":0.38}}`))

	if len(db.metrics) != 1 || db.metrics[0].AgentRunID != "run-1" {
		t.Errorf("metrics = %+v", db.metrics)
	}
	if db.metrics[0].CumulativeReward.Float64() != 9.5 {
		t.Errorf("reward = %v", db.metrics[0].CumulativeReward.Float64())
	}
	if len(db.trades) != 1 || db.trades[0].PortfolioID != "pf-1" {
		t.Errorf("trades = %+v", db.trades)
	}
	if len(db.snapshots) != 1 || db.snapshots[0].NAV.Float64() != 100380 {
		t.Errorf("snapshots = %+v", db.snapshots)
	}
}

// -----------------------------------------------------------------------------

func TestRecorderSkipsUndecodable(t *testing.T) {
	db := &fakeDB{}
	rec := NewRecorder(db, logger.NewLogger("ERROR", "test"))

	rec.HandleAgentMetric(inbound(t,
		`{"type":"agent_metric","agent_run_id":"run-1","metric":[1,2]}`))

	if len(db.metrics) != 0 {
		t.Errorf("undecodable metric recorded: %+v", db.metrics)
	}
}
