package storage

import (
	"database/sql"
	"fmt"
	"time"

	"rl-dashboard/src/logger"
	"rl-dashboard/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type AsyncSQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteDB, error) {
	return &AsyncSQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

// createTables is idempotent: the recorder's trail survives restarts.
func (d *AsyncSQLiteDB) createTables() error {
	// SQLite types: INTEGER for int64, REAL for float64, TEXT for string
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS agent_metrics (
			agent_run_id TEXT,
			step INTEGER,
			episode_reward REAL,
			cumulative_reward REAL,
			loss REAL,
			portfolio_nav REAL,
			rolling_sharpe REAL,
			recorded_at INTEGER,
			PRIMARY KEY (agent_run_id, step)
		);
		`,
		`
		CREATE TABLE IF NOT EXISTS trades (
			id TEXT PRIMARY KEY,
			portfolio_id TEXT,
			ticker TEXT,
			side TEXT,
			quantity REAL,
			price REAL,
			total_value REAL,
			slippage REAL,
			fees REAL,
			executed_at TEXT,
			simulated INTEGER,
			recorded_at INTEGER
		);
		`,
		`
		CREATE TABLE IF NOT EXISTS portfolio_snapshots (
			portfolio_id TEXT,
			nav REAL,
			pnl REAL,
			pnl_percent REAL,
			positions INTEGER,
			recorded_at INTEGER,
			PRIMARY KEY (portfolio_id, recorded_at)
		);
		`,
	}

	for _, query := range queries {
		if _, err := d.DB.Exec(query); err != nil {
			return fmt.Errorf("failed to create recorder tables: %w", err)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) SaveAgentMetric(m *models.MAgentMetric) error {
	query := `
		INSERT INTO agent_metrics (agent_run_id, step, episode_reward, cumulative_reward, loss, portfolio_nav, rolling_sharpe, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (agent_run_id, step) DO UPDATE SET
			episode_reward = excluded.episode_reward,
			cumulative_reward = excluded.cumulative_reward,
			loss = excluded.loss,
			portfolio_nav = excluded.portfolio_nav,
			rolling_sharpe = excluded.rolling_sharpe,
			recorded_at = excluded.recorded_at
	`

	_, err := d.DB.Exec(query,
		m.AgentRunID, int64(m.Step), optArg(m.EpisodeReward), m.CumulativeReward.Float64(),
		optArg(m.Loss), m.PortfolioNAV.Float64(), optArg(m.RollingSharpe), time.Now().UTC().Unix())
	return err
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) SaveTrade(t *models.MTrade) error {
	query := `
		INSERT OR REPLACE INTO trades (id, portfolio_id, ticker, side, quantity, price, total_value, slippage, fees, executed_at, simulated, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := d.DB.Exec(query,
		t.ID, t.PortfolioID, t.Ticker, t.Side, t.Quantity.Float64(), t.Price.Float64(),
		t.TotalValue.Float64(), optArg(t.Slippage), optArg(t.Fees), t.ExecutedAt, t.Simulated,
		time.Now().UTC().Unix())
	return err
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) SavePortfolioSnapshot(p *models.MPortfolioUpdate) error {
	query := `
		INSERT OR REPLACE INTO portfolio_snapshots (portfolio_id, nav, pnl, pnl_percent, positions, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := d.DB.Exec(query,
		p.PortfolioID, p.NAV.Float64(), p.PnL.Float64(), p.PnLPercent.Float64(),
		len(p.Positions), time.Now().UTC().Unix())
	return err
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) CleanupOldData() error {
	retentionDays := d.Config.Storage.RetentionDays
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Unix()

	d.Logger.Info("Cleaning up data older than %d days (recorded_at < %d)...", retentionDays, cutoff)

	for _, table := range []string{"agent_metrics", "trades", "portfolio_snapshots"} {
		if _, err := d.DB.Exec(fmt.Sprintf("DELETE FROM %s WHERE recorded_at < ?", table), cutoff); err != nil {
			d.Logger.Error("Cleanup %s error: %v", table, err)
		}
	}

	d.Logger.Info("Cleanup completed")
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
