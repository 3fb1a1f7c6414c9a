// Package main provides the import-content binary that converts SRD spells
// into the engine's spell YAML.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dnd-combat/internal/config"
	"github.com/cory-johannsen/dnd-combat/internal/importer"
	"github.com/cory-johannsen/dnd-combat/internal/importer/srd"
	"github.com/cory-johannsen/dnd-combat/internal/observability"
)

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	source := flag.String("source", "", "directory of 5e-database spell JSON; empty = fetch from the 5e API")
	class := flag.String("class", "", "class index to import spells for, e.g. wizard")
	level := flag.Int("level", -1, "spell level to import (0 = cantrips); -1 = all levels")
	spells := flag.String("spells", "", "comma-separated spell indexes; overrides -class and -level")
	outputDir := flag.String("output", "", "path to output spell directory")
	flag.Parse()

	if *outputDir == "" || (*class == "" && *spells == "" && *source == "") {
		fmt.Fprintln(os.Stderr, "usage: import-content -output <dir> [-class <class>] [-level <n>] [-spells a,b] [-source <dir>]")
		os.Exit(1)
	}

	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	q := importer.Query{Class: *class}
	if *level >= 0 {
		q.Level = level
	}
	for _, k := range strings.Split(*spells, ",") {
		if k = strings.TrimSpace(k); k != "" {
			q.Keys = append(q.Keys, k)
		}
	}

	var src importer.Source
	if *source != "" {
		src = srd.NewFileSource(*source)
	} else {
		api, err := srd.NewAPISource(&http.Client{Timeout: cfg.SRD.Timeout}, logger)
		if err != nil {
			logger.Fatal("creating SRD source", zap.Error(err))
		}
		src = api
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	n, err := importer.New(src, os.Stdout).Run(ctx, q, *outputDir)
	if err != nil {
		logger.Fatal("import failed", zap.Error(err))
	}
	logger.Info("import complete",
		zap.Int("spells", n),
		zap.String("output", *outputDir),
		zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)),
	)
}
