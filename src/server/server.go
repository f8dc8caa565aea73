package server

import (
	"fmt"
	"strings"
	"sync"

	"rl-dashboard/src/logger"
	"rl-dashboard/src/models"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// SimServer is a stand-in dashboard backend for local development: it serves
// the realtime socket with channel-based fan-out plus the stored-metrics REST
// endpoint, fed by the simulator's emission loop.
// -----------------------------------------------------------------------------

type SimServer struct {
	Config *models.MConfig
	Logger *logger.Logger
	engine *gin.Engine

	// WebSocket clients, owned by the hub loop
	clients    map[*Client]struct{}
	channels   map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan *MBroadcast
	commands   chan *clientCommand
	done       chan struct{}

	hubOnce  sync.Once
	stopOnce sync.Once

	// Stored metrics backing the REST endpoint
	statsMutex sync.RWMutex
	runs       map[string]*models.MAgentStats
}

// -----------------------------------------------------------------------------

// MBroadcast is one frame addressed to every subscriber of a channel.
type MBroadcast struct {
	Channel string
	Frame   []byte
}

// -----------------------------------------------------------------------------

func NewSimServer(cfg *models.MConfig, log *logger.Logger) *SimServer {
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &SimServer{
		Config:     cfg,
		Logger:     log,
		engine:     gin.Default(),
		clients:    make(map[*Client]struct{}),
		channels:   make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		// Buffered queues so a burst of ticks never blocks the simulator
		broadcast: make(chan *MBroadcast, 256),
		commands:  make(chan *clientCommand, 256),
		done:      make(chan struct{}),
		runs:      make(map[string]*models.MAgentStats),
	}

	// CORS for the local dashboard frontend
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------

func (s *SimServer) setupRoutes() {
	s.engine.GET("/api/v1/agent/:run_id/stats", s.getAgentStats)
	s.engine.GET("/api/health", s.getHealth)

	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *SimServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Simulator.Host, s.Config.Simulator.Port)
	s.Logger.Info("Starting simulator server on %s", addr)

	s.startHub()

	return s.engine.Run(addr)
}

// -----------------------------------------------------------------------------

func (s *SimServer) startHub() {
	s.hubOnce.Do(func() {
		go s.runHub()
	})
}

// -----------------------------------------------------------------------------

// Engine exposes the gin engine, starting the hub loop. Used by test servers.
func (s *SimServer) Engine() *gin.Engine {
	s.startHub()
	return s.engine
}

// -----------------------------------------------------------------------------

// Stop shuts the hub loop down. Idempotent.
func (s *SimServer) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

// -----------------------------------------------------------------------------
// Stored metrics
// -----------------------------------------------------------------------------

// RecordMetric appends one metric to a run's stored history.
func (s *SimServer) RecordMetric(runID string, metric models.MAgentMetric) {
	s.statsMutex.Lock()
	defer s.statsMutex.Unlock()

	stats, ok := s.runs[runID]
	if !ok {
		stats = &models.MAgentStats{
			AgentRun: models.MAgentRun{
				ID:        runID,
				Algorithm: "PPO",
				Mode:      "paper",
				Status:    "running",
			},
		}
		s.runs[runID] = stats
	}

	stats.Metrics = append(stats.Metrics, metric)
	stats.TotalMetrics = len(stats.Metrics)
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *SimServer) getAgentStats(c *gin.Context) {
	runID := c.Param("run_id")

	s.statsMutex.RLock()
	defer s.statsMutex.RUnlock()

	stats, ok := s.runs[runID]
	if !ok {
		c.JSON(404, gin.H{"detail": fmt.Sprintf("Agent run %s not found", runID)})
		return
	}

	c.JSON(200, stats)
}

// -----------------------------------------------------------------------------

func (s *SimServer) getHealth(c *gin.Context) {
	c.JSON(200, gin.H{
		"status": "ok",
	})
}
