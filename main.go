// @title Quantum Quest Backend API
// @version 1.0
// @description Integrity validation and progress service for the Quantum Quest learning games.

// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package main

import (
	"flag"
	"log"
	"path/filepath"

	"quantum_quest_backend/internal/app"
	"quantum_quest_backend/internal/config"
	"quantum_quest_backend/pkg/logger"
)

func main() {
	configDir := flag.String("config", "configs", "directory containing config.yaml")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	application.WatchPolicy(filepath.Join(*configDir, "config.yaml"))
	application.Run()
}
