package server

import (
	"fmt"
	"math/rand"
	"time"

	"rl-dashboard/src/logger"
	"rl-dashboard/src/models"
	"rl-dashboard/src/utils"
)

// -----------------------------------------------------------------------------
// Simulator drives the stand-in backend: every tick it advances a fake
// training run and portfolio, publishing the same frame shapes the real
// backend emits. Market data quotes are gated on exchange hours.
// -----------------------------------------------------------------------------

type Simulator struct {
	Server    *SimServer
	Config    *models.MConfig
	Scheduler *utils.MarketScheduler
	Logger    *logger.Logger

	rng *rand.Rand

	// Run state
	step       int64
	cumReward  float64
	nav        float64
	prices     map[string]float64
	tradeCount int64

	done chan struct{}
}

// -----------------------------------------------------------------------------
// Outbound frame shapes
// -----------------------------------------------------------------------------

type metricFrame struct {
	Type       string              `json:"type"`
	AgentRunID string              `json:"agent_run_id"`
	Metric     models.MAgentMetric `json:"metric"`
}

type portfolioFrame struct {
	Type        string                  `json:"type"`
	PortfolioID string                  `json:"portfolio_id"`
	Data        models.MPortfolioUpdate `json:"data"`
}

type tradeFrame struct {
	Type        string        `json:"type"`
	PortfolioID string        `json:"portfolio_id"`
	Trade       models.MTrade `json:"trade"`
}

type marketDataFrame struct {
	Type   string             `json:"type"`
	Ticker string             `json:"ticker"`
	Data   models.MMarketData `json:"data"`
}

// -----------------------------------------------------------------------------

func NewSimulator(srv *SimServer, cfg *models.MConfig, log *logger.Logger) *Simulator {
	prices := make(map[string]float64)
	for _, symbol := range cfg.Simulator.Symbols {
		prices[symbol] = 50 + rand.Float64()*200
	}

	return &Simulator{
		Server:    srv,
		Config:    cfg,
		Scheduler: utils.NewMarketScheduler(cfg.Simulator.Symbols, log.Named("MarketScheduler")),
		Logger:    log,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		nav:       100_000,
		prices:    prices,
		done:      make(chan struct{}),
	}
}

// -----------------------------------------------------------------------------

// Run blocks, emitting one batch of frames per tick until Stop is called.
func (sim *Simulator) Run() {
	interval := time.Duration(sim.Config.Simulator.TickIntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sim.Logger.Info("Simulator emitting every %v for run %s / portfolio %s",
		interval, sim.Config.Simulator.AgentRunID, sim.Config.Simulator.PortfolioID)

	for {
		select {
		case <-sim.done:
			return
		case <-ticker.C:
			sim.Tick()
		}
	}
}

// -----------------------------------------------------------------------------

func (sim *Simulator) Stop() {
	close(sim.done)
}

// -----------------------------------------------------------------------------

// Tick advances the fake run by one step and publishes its frames.
func (sim *Simulator) Tick() {
	sim.step++

	sim.emitAgentMetric()
	sim.emitPortfolioUpdate()

	// Trades are bursty, not per-tick
	if sim.rng.Float64() < 0.3 {
		sim.emitTrade()
	}

	for _, symbol := range sim.Config.Simulator.Symbols {
		if sim.Scheduler.IsSymbolOpen(symbol) {
			sim.emitMarketData(symbol)
		}
	}
}

// -----------------------------------------------------------------------------

func (sim *Simulator) emitAgentMetric() {
	runID := sim.Config.Simulator.AgentRunID

	reward := sim.rng.NormFloat64() * 10
	sim.cumReward += reward
	sim.nav *= 1 + sim.rng.NormFloat64()*0.002

	metric := models.MAgentMetric{
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		Step:             models.MFloat(sim.step),
		EpisodeReward:    models.OptFloat(reward),
		CumulativeReward: models.MFloat(sim.cumReward),
		PortfolioNAV:     models.MFloat(sim.nav),
	}

	// Loss and sharpe surface only once training has warmed up
	if sim.step > 5 {
		metric.Loss = models.OptFloat(sim.rng.Float64() * 0.5)
		metric.RollingSharpe = models.OptFloat(sim.rng.NormFloat64())
	}

	sim.Server.RecordMetric(runID, metric)
	sim.Server.Broadcast(
		models.ChannelName(models.TopicAgentStats, runID),
		&metricFrame{Type: models.MsgAgentMetric, AgentRunID: runID, Metric: metric})
}

// -----------------------------------------------------------------------------

func (sim *Simulator) emitPortfolioUpdate() {
	portfolioID := sim.Config.Simulator.PortfolioID

	pnl := sim.nav - 100_000
	update := models.MPortfolioUpdate{
		NAV:        models.MFloat(sim.nav),
		PnL:        models.MFloat(pnl),
		PnLPercent: models.MFloat(pnl / 100_000 * 100),
	}

	for symbol, price := range sim.prices {
		update.Positions = append(update.Positions, models.MPositionDetail{
			Ticker:       symbol,
			Quantity:     models.MFloat(10),
			CurrentPrice: models.MFloat(price),
			MarketValue:  models.MFloat(10 * price),
		})
	}

	sim.Server.Broadcast(
		models.ChannelName(models.TopicPortfolioUpdates, portfolioID),
		&portfolioFrame{Type: models.MsgPortfolioUpdate, PortfolioID: portfolioID, Data: update})
}

// -----------------------------------------------------------------------------

func (sim *Simulator) emitTrade() {
	portfolioID := sim.Config.Simulator.PortfolioID
	symbols := sim.Config.Simulator.Symbols
	if len(symbols) == 0 {
		return
	}

	symbol := symbols[sim.rng.Intn(len(symbols))]
	side := "BUY"
	if sim.rng.Float64() < 0.5 {
		side = "SELL"
	}

	sim.tradeCount++
	quantity := float64(1 + sim.rng.Intn(20))
	price := sim.prices[symbol]

	trade := models.MTrade{
		ID:         fmt.Sprintf("sim-trade-%d", sim.tradeCount),
		Ticker:     symbol,
		Side:       side,
		Quantity:   models.MFloat(quantity),
		Price:      models.MFloat(price),
		TotalValue: models.MFloat(quantity * price),
		Slippage:   models.OptFloat(sim.rng.Float64() * 0.01),
		Fees:       models.OptFloat(quantity * price * 0.001),
		ExecutedAt: time.Now().UTC().Format(time.RFC3339),
		Simulated:  true,
	}

	sim.Server.Broadcast(
		models.ChannelName(models.TopicTradeExecuted, portfolioID),
		&tradeFrame{Type: models.MsgTradeExecuted, PortfolioID: portfolioID, Trade: trade})
}

// -----------------------------------------------------------------------------

func (sim *Simulator) emitMarketData(symbol string) {
	price := sim.prices[symbol] * (1 + sim.rng.NormFloat64()*0.001)
	sim.prices[symbol] = price

	tick := models.MMarketData{
		Ticker:    symbol,
		Price:     models.MFloat(price),
		Volume:    models.OptFloat(float64(sim.rng.Intn(10_000))),
		Timestamp: time.Now().UTC().Unix(),
	}

	sim.Server.Broadcast(
		models.ChannelName(models.TopicMarketData, symbol),
		&marketDataFrame{Type: models.MsgMarketData, Ticker: symbol, Data: tick})
}
