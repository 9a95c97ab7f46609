// Package main runs the workouts MCP server over stdio (for local use from an editor or a chat client).
// The same MCP server is also mounted on the main backend at /mcp over HTTP.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/liftlog/internal/config"
	"github.com/2beens/liftlog/internal/db"
	"github.com/2beens/liftlog/internal/logging"
	"github.com/2beens/liftlog/internal/telemetry/metrics"
	workoutsmcp "github.com/2beens/liftlog/internal/workouts/mcp"
	"github.com/2beens/liftlog/internal/workouts/sets"
	"github.com/2beens/liftlog/internal/workouts/stats"
)

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path to TOML config file")
	logsPath := flag.String("logs-path", "", "logs file path (stdout is taken by the MCP transport)")
	flag.Parse()

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %s", err)
	}

	if *logsPath != "" {
		logging.Setup(logging.LoggerSetupParams{
			LogFileName: *logsPath,
			LogLevel:    cfg.LogLevel,
		})
	} else {
		// stdout carries the protocol
		log.SetOutput(os.Stderr)
		log.SetLevel(logging.GetLevel(cfg.LogLevel))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         cfg.PostgresHost,
		DBPort:         cfg.PostgresPort,
		DBName:         cfg.PostgresDBName,
		TracingEnabled: false,
	})
	if err != nil {
		log.Fatalf("db pool: %s", err)
	}
	defer dbPool.Close()

	analyzer := stats.NewAnalyzer(
		sets.NewRepo(dbPool),
		cfg.StatsCacheSizeMB,
		time.Duration(cfg.StatsCacheTTLSeconds)*time.Second,
		metrics.NewManager("liftlog", "mcp_stdio", nil),
	)
	server := workoutsmcp.NewServer(analyzer, "stdio")

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Fatal(err)
	}
}
