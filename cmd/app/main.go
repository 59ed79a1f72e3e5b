package main

import (
	"flag"
	"log"
	"os"

	"FinScan/internal/di"
	"FinScan/pkg/config"
	applogger "FinScan/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	l.Info("starting finscan",
		applogger.String("env", cfg.Environment),
		applogger.String("provider", cfg.Provider.Type),
		applogger.String("history", cfg.Provider.History),
	)

	app, err := di.InitializeApp(cfg, l)
	if err != nil {
		l.Error("app initialization failed", applogger.Error(err))
		os.Exit(1)
	}

	// Blocks until SIGINT/SIGTERM.
	if err := app.Run(); err != nil {
		l.Error("app error", applogger.Error(err))
		os.Exit(1)
	}
}
