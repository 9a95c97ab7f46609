// Package main makes one google drive backup of all logged sets (meant to be run by cron).
package main

import (
	"context"
	"flag"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"github.com/2beens/liftlog/internal/backup"
	"github.com/2beens/liftlog/internal/config"
	"github.com/2beens/liftlog/internal/db"
	"github.com/2beens/liftlog/internal/logging"
	"github.com/2beens/liftlog/internal/telemetry/metrics"
	"github.com/2beens/liftlog/internal/telemetry/tracing"
	"github.com/2beens/liftlog/internal/workouts/sets"
	"github.com/2beens/liftlog/pkg"
)

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	logsPath := flag.String("logs-path", "", "logs file path (empty for stdout)")
	flag.Parse()

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %s", err)
	}

	logging.Setup(logging.LoggerSetupParams{
		LogFileName:      *logsPath,
		LogToStdout:      cfg.LogToStdout,
		LogLevel:         cfg.LogLevel,
		Environment:      cfg.Environment,
		SentryEnabled:    cfg.SentryEnabled,
		SentryDSN:        os.Getenv("SENTRY_DSN"),
		SentryServerName: "liftlog-backup",
	})

	log.Println("starting workout sets backup ...")

	if cfg.GDriveCredentialsFile == "" {
		log.Fatalln("google drive credentials json not specified")
	}
	if exists, err := pkg.PathExists(cfg.GDriveCredentialsFile, false); err != nil || !exists {
		log.Fatalf("google drive credentials file [%s] not found: %v", cfg.GDriveCredentialsFile, err)
	}
	credentialsFileBytes, err := os.ReadFile(cfg.GDriveCredentialsFile)
	if err != nil {
		log.Fatalf("unable to read google drive credentials file: %s", err)
	}

	honeycombEnabled := os.Getenv("HONEYCOMB_ENABLED") == "true"
	otelShutdown, err := tracing.HoneycombSetup(honeycombEnabled, "liftlog-backup", nil)
	if err != nil {
		log.Fatalf("honeycomb setup: %s", err)
	}
	defer otelShutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         cfg.PostgresHost,
		DBPort:         cfg.PostgresPort,
		DBName:         cfg.PostgresDBName,
		TracingEnabled: honeycombEnabled,
	})
	if err != nil {
		log.Fatalf("db pool: %s", err)
	}
	defer dbPool.Close()

	driveHttpClient, err := backup.NewTracedDriveHTTPClient(ctx, credentialsFileBytes)
	if err != nil {
		log.Fatalf("drive http client: %s", err)
	}

	s, err := backup.NewGoogleDriveBackupService(ctx, backup.Params{
		Sets:           sets.NewRepo(dbPool),
		BackupsToKeep:  cfg.BackupsToKeep,
		ShareWithEmail: cfg.GDriveShareWithEmail,
		MetricsManager: metrics.NewManager("liftlog", "backup", nil),
		ClientOptions:  []option.ClientOption{option.WithHTTPClient(driveHttpClient)},
	})
	if err != nil {
		log.Fatalf("failed to create google drive backup service: %s", err)
	}

	fileName, err := s.DoBackup(ctx, time.Now())
	if err != nil {
		log.Fatalf("backup failed: %+v", err)
	}
	log.Printf("backup done: %s", fileName)
}
