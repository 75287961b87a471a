package main

import (
	"fmt"
	"log"
	"os"

	"github.com/ChilliBits/particulate-matter-api/internal/config"
	"github.com/ChilliBits/particulate-matter-api/internal/server"
	tm "github.com/buger/goterm"
	"github.com/joho/godotenv"
	nuts "github.com/vaudience/go-nuts"
)

func main() {
	// A missing .env is fine, the environment may be set elsewhere
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to load .env: %v", err)
	}

	// Clear console and draw logo
	ClearConsole()
	DrawLogo()
	// Initialize version info
	nuts.InitVersion()
	nuts.L.Infof("[Main] Starting Particulate Matter API v%s", nuts.GetVersion())

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logStores(cfg)

	// Create and start server
	srv := server.New(cfg)
	if err := srv.Start(); err != nil {
		nuts.L.Errorf("[Main] Server error: %v", err)
		os.Exit(1)
	}
}

// ClearConsole clears the console screen and draws the logo.
func ClearConsole() {
	tm.Clear()
	tm.MoveCursor(1, 1)
	tm.Flush()
}

func DrawLogo() {
	fmt.Println()
	lines := []string{
		"    ____  __  ___   ___    ____  ____",
		"   / __ \\/  |/  /  /   |  / __ \\/  _/",
		"  / /_/ / /|_/ /  / /| | / /_/ // /  ",
		" / ____/ /  / /  / ___ |/ ____// /   ",
		"/_/   /_/  /_/  /_/  |_/_/   /___/   ",
		"......................................  " + nuts.GetVersion(),
	}

	for _, line := range lines {
		fmt.Println(line)
	}
}

// logStores reports where sensor metadata, records and request counters live.
// The mongo URI is left out since it may carry credentials.
func logStores(cfg *config.Config) {
	pg := cfg.Database.Postgres
	nuts.L.Infof("[Main] Sensor metadata: postgres %s:%d/%s", pg.Host, pg.Port, pg.DBName)
	nuts.L.Infof("[Main] Measurement records: mongodb database %s", cfg.Database.Mongo.Database)
	if cfg.Redis.Enabled {
		nuts.L.Infof("[Main] Request counters: redis %s:%d/%d", cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.DB)
	} else {
		nuts.L.Infof("[Main] Request counters: disabled")
	}
	nuts.L.Infof("[Main] Query window %s, fan-out limit %d, store timeout %s",
		cfg.Query.DefaultWindow(), cfg.Query.MaxPerRequestFanout, cfg.Query.StoreTimeout())
}
