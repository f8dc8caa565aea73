package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rl-dashboard/src/analysis"
	"rl-dashboard/src/config"
	"rl-dashboard/src/helpers"
	"rl-dashboard/src/history"
	"rl-dashboard/src/interfaces"
	"rl-dashboard/src/logger"
	"rl-dashboard/src/models"
	"rl-dashboard/src/network"
	"rl-dashboard/src/realtime"
	"rl-dashboard/src/storage"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// Load config from YAML file
	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(cfg.LogLevel, cfg.Name)

	// 1. Recorder database
	db, err := storage.NewDatabase(cfg.MConfig, appLogger.Named("Storage"))
	if err != nil {
		appLogger.Critical("Failed to init db: %v", err)
	}
	if err := helpers.RetryWithBackoff("database initialization", 3, 2*time.Second, db.Initialize); err != nil {
		appLogger.Critical("Failed to migrate db: %v", err)
	}
	defer db.Close()

	recorder := storage.NewRecorder(db, appLogger.Named("Recorder"))

	// 2. REST collaborator for history seeding
	var networkManager interfaces.INetworkManager = network.NewAsyncNetworkManager(cfg.MConfig, appLogger.Named("Network"))
	var historySource interfaces.IHistorySource = history.NewHistoryService(cfg.MConfig, networkManager, appLogger.Named("History"))

	// 3. Realtime client
	client := realtime.NewClient(cfg.MConfig, func() string { return cfg.Session.Token }, appLogger.Named("Realtime"))

	// 4. Per-run analyzers and startup subscriptions
	analyzers := make(map[string]*analysis.LiveAnalyzer)

	for _, ch := range cfg.Channels {
		channel := models.ChannelName(ch.Topic, ch.EntityID)

		switch ch.Topic {
		case models.TopicAgentStats:
			analyzer := analysis.NewLiveAnalyzer(ch.EntityID, cfg.Buffer.Capacity, appLogger.Named("Analyzer"))
			analyzers[ch.EntityID] = analyzer

			// Seed the reward window from stored history before live data
			if stats, err := historySource.AgentStats(ch.EntityID); err != nil {
				appLogger.Warning("History seed failed for run %s: %v", ch.EntityID, err)
			} else {
				points := make([]models.MSeriesPoint, len(stats.Metrics))
				for i := range stats.Metrics {
					points[i] = stats.Metrics[i].SeriesPoint()
				}
				analyzer.SeedRewards(points)
			}

			client.Subscribe(channel, analyzer.HandleAgentMetric)
			client.Subscribe(channel, recorder.HandleAgentMetric)

		case models.TopicPortfolioUpdates:
			client.Subscribe(channel, recorder.HandlePortfolioUpdate)

		case models.TopicTradeExecuted:
			client.Subscribe(channel, recorder.HandleTrade)

		case models.TopicMarketData:
			client.Subscribe(channel, func(msg *models.MInboundMessage) {
				if tick, err := msg.MarketData(); err == nil {
					appLogger.Debug("Tick %s @ %.2f", tick.Ticker, tick.Price.Float64())
				}
			})

		default:
			appLogger.Warning("Unknown topic %q in channel config, skipping", ch.Topic)
		}
	}

	client.OnConnect(func() {
		appLogger.Info("Realtime stream up (%d channels)", len(client.Registry().Channels()))
	})
	client.OnDisconnect(func() {
		appLogger.Warning("Realtime stream lost")
	})

	if err := client.Start(); err != nil {
		appLogger.Warning("Initial connect failed: %v", err)
	}
	defer client.Stop()

	// 5. Periodic summary + cleanup loop
	summaryTicker := time.NewTicker(30 * time.Second)
	defer summaryTicker.Stop()
	cleanupTicker := time.NewTicker(6 * time.Hour)
	defer cleanupTicker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	appLogger.Info("Observer running")

	for {
		select {
		case <-summaryTicker.C:
			for runID, analyzer := range analyzers {
				s := analyzer.Summary()
				appLogger.Info("Run %s: step=%d points=%d reward=%.2f sharpe=%.3f drawdown=%.2f%%",
					runID, s.LastStep, s.Points, s.CumulativeReward, s.RollingSharpe, s.MaxDrawdown*100)
			}

		case <-cleanupTicker.C:
			if err := db.CleanupOldData(); err != nil {
				appLogger.Error("Cleanup failed: %v", err)
			}

		case <-quit:
			appLogger.Info("Shutting down...")
			return
		}
	}
}
