// Package main imports workout sets from a CSV file into the db, or exports all of them into one.
//
//	csv_tool -import sets.csv [-dry-run]
//	csv_tool -export sets.csv
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/2beens/liftlog/internal/config"
	"github.com/2beens/liftlog/internal/db"
	"github.com/2beens/liftlog/internal/logging"
	"github.com/2beens/liftlog/internal/workouts/csvio"
	"github.com/2beens/liftlog/internal/workouts/sets"
	"github.com/2beens/liftlog/internal/workouts/volume"
)

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	importPath := flag.String("import", "", "CSV file to import")
	exportPath := flag.String("export", "", "CSV file to export all the sets to")
	dryRun := flag.Bool("dry-run", false, "with -import: only validate and print the volume table, store nothing")
	flag.Parse()

	if (*importPath == "") == (*exportPath == "") {
		log.Fatalln("exactly one of -import or -export must be given")
	}

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %s", err)
	}
	logging.Setup(logging.LoggerSetupParams{
		LogLevel: cfg.LogLevel,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if *importPath != "" {
		toImport, err := readSets(*importPath)
		if err != nil {
			log.Fatalf("read %s: %s", *importPath, err)
		}
		if *dryRun {
			printVolumeTable(toImport)
			return
		}
		repo := newRepo(ctx, cfg)
		added, err := repo.Add(ctx, toImport)
		if err != nil {
			log.Fatalf("import: %s", err)
		}
		log.Infof("imported %d sets from %s", len(added), *importPath)
		return
	}

	repo := newRepo(ctx, cfg)
	exported, err := exportSets(ctx, repo, *exportPath)
	if err != nil {
		log.Fatalf("export: %s", err)
	}
	log.Infof("exported %d sets to %s", exported, *exportPath)
}

func newRepo(ctx context.Context, cfg *config.Config) *sets.Repo {
	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost: cfg.PostgresHost,
		DBPort: cfg.PostgresPort,
		DBName: cfg.PostgresDBName,
	})
	if err != nil {
		log.Fatalf("db pool: %s", err)
	}

	repo := sets.NewRepo(dbPool)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatalf("ensure schema: %s", err)
	}
	return repo
}

// readSets reads and validates all the sets of the CSV file; any bad row fails the whole import.
func readSets(path string) ([]volume.LoggedSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Warnf("close %s: %s", path, err)
		}
	}()

	loggedSets, err := csvio.Read(f)
	if err != nil {
		return nil, err
	}

	var invalidErrs error
	for i := range loggedSets {
		if err := sets.Validate(&loggedSets[i]); err != nil {
			invalidErrs = multierr.Append(invalidErrs, fmt.Errorf("row %d: %w", i+2, err))
		}
	}
	if invalidErrs != nil {
		return nil, invalidErrs
	}
	if len(loggedSets) == 0 {
		return nil, errors.New("no sets found")
	}

	return loggedSets, nil
}

func exportSets(ctx context.Context, repo *sets.Repo, path string) (_ int, err error) {
	allSets, err := repo.ListAll(ctx, sets.FilterParams{})
	if err != nil {
		return 0, err
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	if err := csvio.Write(f, allSets); err != nil {
		return 0, err
	}
	return len(allSets), nil
}

func printVolumeTable(loggedSets []volume.LoggedSet) {
	for _, entry := range volume.AggregateVolume(loggedSets) {
		fmt.Printf("%s\t%s\t%.2f lb\t(%d sets)\n", entry.Date, entry.Exercise, entry.Volume, len(entry.Sets))
	}
}
