package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rl-dashboard/src/logger"
	"rl-dashboard/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

// NewPostgresDB names the schema after the executable so several dashboard
// processes can share one database without clashing.
func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	return &PostgresDB{
		Config: cfg,
		Schema: name,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

// createTables is idempotent: the recorder's trail survives restarts.
func (d *PostgresDB) createTables() error {
	queries := []string{
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."agent_metrics" (
			agent_run_id TEXT,
			step BIGINT,
			episode_reward DOUBLE PRECISION,
			cumulative_reward DOUBLE PRECISION,
			loss DOUBLE PRECISION,
			portfolio_nav DOUBLE PRECISION,
			rolling_sharpe DOUBLE PRECISION,
			recorded_at BIGINT,
			PRIMARY KEY (agent_run_id, step)
		);
		`, d.Schema),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."trades" (
			id TEXT PRIMARY KEY,
			portfolio_id TEXT,
			ticker TEXT,
			side TEXT,
			quantity DOUBLE PRECISION,
			price DOUBLE PRECISION,
			total_value DOUBLE PRECISION,
			slippage DOUBLE PRECISION,
			fees DOUBLE PRECISION,
			executed_at TEXT,
			simulated BOOLEAN,
			recorded_at BIGINT
		);
		`, d.Schema),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."portfolio_snapshots" (
			portfolio_id TEXT,
			nav DOUBLE PRECISION,
			pnl DOUBLE PRECISION,
			pnl_percent DOUBLE PRECISION,
			positions INTEGER,
			recorded_at BIGINT,
			PRIMARY KEY (portfolio_id, recorded_at)
		);
		`, d.Schema),
	}

	for _, query := range queries {
		if _, err := d.DB.Exec(query); err != nil {
			return fmt.Errorf("failed to create recorder tables: %w", err)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveAgentMetric(m *models.MAgentMetric) error {
	query := fmt.Sprintf(`
		INSERT INTO "%s"."agent_metrics" (agent_run_id, step, episode_reward, cumulative_reward, loss, portfolio_nav, rolling_sharpe, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (agent_run_id, step) DO UPDATE SET
			episode_reward = EXCLUDED.episode_reward,
			cumulative_reward = EXCLUDED.cumulative_reward,
			loss = EXCLUDED.loss,
			portfolio_nav = EXCLUDED.portfolio_nav,
			rolling_sharpe = EXCLUDED.rolling_sharpe,
			recorded_at = EXCLUDED.recorded_at
	`, d.Schema)

	_, err := d.DB.Exec(query,
		m.AgentRunID, int64(m.Step), optArg(m.EpisodeReward), m.CumulativeReward.Float64(),
		optArg(m.Loss), m.PortfolioNAV.Float64(), optArg(m.RollingSharpe), time.Now().UTC().Unix())
	return err
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveTrade(t *models.MTrade) error {
	query := fmt.Sprintf(`
		INSERT INTO "%s"."trades" (id, portfolio_id, ticker, side, quantity, price, total_value, slippage, fees, executed_at, simulated, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`, d.Schema)

	_, err := d.DB.Exec(query,
		t.ID, t.PortfolioID, t.Ticker, t.Side, t.Quantity.Float64(), t.Price.Float64(),
		t.TotalValue.Float64(), optArg(t.Slippage), optArg(t.Fees), t.ExecutedAt, t.Simulated,
		time.Now().UTC().Unix())
	return err
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SavePortfolioSnapshot(p *models.MPortfolioUpdate) error {
	query := fmt.Sprintf(`
		INSERT INTO "%s"."portfolio_snapshots" (portfolio_id, nav, pnl, pnl_percent, positions, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (portfolio_id, recorded_at) DO UPDATE SET
			nav = EXCLUDED.nav,
			pnl = EXCLUDED.pnl,
			pnl_percent = EXCLUDED.pnl_percent,
			positions = EXCLUDED.positions
	`, d.Schema)

	_, err := d.DB.Exec(query,
		p.PortfolioID, p.NAV.Float64(), p.PnL.Float64(), p.PnLPercent.Float64(),
		len(p.Positions), time.Now().UTC().Unix())
	return err
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) CleanupOldData() error {
	retentionDays := d.Config.Storage.RetentionDays
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Unix()

	d.Logger.Info("Cleaning up data older than %d days (recorded_at < %d)...", retentionDays, cutoff)

	for _, table := range []string{"agent_metrics", "trades", "portfolio_snapshots"} {
		query := fmt.Sprintf(`DELETE FROM "%s"."%s" WHERE recorded_at < $1`, d.Schema, table)
		if _, err := d.DB.Exec(query, cutoff); err != nil {
			d.Logger.Error("Cleanup %s error: %v", table, err)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
