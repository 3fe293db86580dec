package main

import (
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"goquality/api"
	"goquality/internal/bootstrap"
	"goquality/internal/config"
)

func main() {
	// Load .env file if present (development convenience)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	eng, metricsHandler, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("Failed to build validation engine: %v", err)
	}
	defer eng.Close()

	srv := api.NewServer(eng, metricsHandler)

	log.Printf("[API] listening on port %s", cfg.Server.Port)
	if err := http.ListenAndServe(":"+cfg.Server.Port, srv.Router()); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
