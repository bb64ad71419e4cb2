package main

import (
	"log"
	"net/http"
	_ "net/http/pprof"

	"github.com/joho/godotenv"

	"gocausal/internal"
	"gocausal/internal/api"
	"gocausal/internal/config"
	"gocausal/internal/referee"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load application configuration
	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := internal.NewLogger(internal.ParseLogLevel(appConfig.Log.Level))
	internal.DefaultLogger = logger

	if err := referee.ValidateConstants(); err != nil {
		log.Fatalf("Gate thresholds are inconsistent: %v", err)
	}

	logger.Info("analysis defaults: E=%d tau=%d samples=%d workers=%d timeout=%s",
		appConfig.Analysis.EmbeddingDim, appConfig.Analysis.Tau, appConfig.Analysis.NumSamples,
		appConfig.Analysis.Workers, appConfig.Analysis.RequestTimeout)

	// Start pprof server for performance profiling
	if appConfig.Profiling.Enabled {
		go func() {
			logger.Info("performance profiling server starting on :%s", appConfig.Profiling.Port)
			logger.Info("view profiles: go tool pprof -http=:8081 http://localhost:%s/debug/pprof/profile?seconds=30", appConfig.Profiling.Port)
			if err := http.ListenAndServe(":"+appConfig.Profiling.Port, nil); err != nil {
				logger.Error("pprof server failed: %v", err)
			}
		}()
	}

	server := api.NewServer(appConfig, logger)
	log.Fatal(server.Start(":" + appConfig.Server.Port))
}
