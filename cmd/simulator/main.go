package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"rl-dashboard/src/config"
	"rl-dashboard/src/logger"
	"rl-dashboard/src/server"
)

// -----------------------------------------------------------------------------

func main() {

	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	if cfg.Simulator.Port == 0 {
		fmt.Println("Simulator is not configured (simulator.port missing)")
		os.Exit(1)
	}

	appLogger := logger.NewLogger(cfg.LogLevel, cfg.Name+"-sim")

	srv := server.NewSimServer(cfg.MConfig, appLogger.Named("SimServer"))
	sim := server.NewSimulator(srv, cfg.MConfig, appLogger.Named("Simulator"))

	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Critical("Server failed: %v", err)
		}
	}()

	go sim.Run()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	sim.Stop()
	srv.Stop()
}
