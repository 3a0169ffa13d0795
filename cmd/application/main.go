package main

import (
	"log"
	"os"

	"partscatalog_api/config"
	"partscatalog_api/internal/farnell/app"
	"partscatalog_api/pkg/dbconnect/postgres"
)

func main() {
	log.Printf("\nStarted app\n")

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Printf("Config file %s not usable (%v), falling back to environment", configPath, err)
		cfg = &config.AppConfig{Postgres: *config.GetConfig()}
		cfg.Farnell.Sync.ApplyDefaults()
	}

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	connector := postgres.NewPgConnector(cfg.Postgres)
	server := app.NewFarnellServer(connector, *cfg, os.Stdout)
	server.Run(addr)
}
