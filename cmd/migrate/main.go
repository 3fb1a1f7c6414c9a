// Package main provides the battle history migration runner.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/cory-johannsen/dnd-combat/internal/config"
	"github.com/cory-johannsen/dnd-combat/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	direction := flag.String("direction", "up", "migration direction: up or down")
	steps := flag.Int("steps", 0, "number of steps (0 = all)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	db := cfg.Database
	if !db.Enabled() {
		log.Fatal("database.host is not set")
	}

	switch {
	case *direction == "down" && *steps == 0:
		if err := postgres.MigrateDown(db.DSN(), db.MigrationsDir); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
		fmt.Fprintf(os.Stdout, "rolled back all migrations [%s]\n", time.Since(start))
		return
	case *direction == "down":
		*steps = -*steps
	case *direction != "up":
		log.Fatalf("invalid direction %q: must be 'up' or 'down'", *direction)
	}

	version, err := postgres.Migrate(db.DSN(), db.MigrationsDir, *steps)
	if err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	fmt.Fprintf(os.Stdout, "migrated %s to version=%d [%s]\n", *direction, version, time.Since(start))
}
