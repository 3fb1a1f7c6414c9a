// Package main provides the combatsim binary, which plays a content-defined
// encounter to the end with every combatant driven by its tactics domain.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dnd-combat/internal/config"
	"github.com/cory-johannsen/dnd-combat/internal/content"
	"github.com/cory-johannsen/dnd-combat/internal/game/clock"
	"github.com/cory-johannsen/dnd-combat/internal/game/dice"
	"github.com/cory-johannsen/dnd-combat/internal/game/event"
	"github.com/cory-johannsen/dnd-combat/internal/game/sim"
	"github.com/cory-johannsen/dnd-combat/internal/observability"
	"github.com/cory-johannsen/dnd-combat/internal/scripting"
	"github.com/cory-johannsen/dnd-combat/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	encounterID := flag.String("encounter", "goblin_ambush", "encounter definition to play")
	list := flag.Bool("list", false, "list the available encounters and exit")
	history := flag.Int("history", 0, "print the last n recorded battles of the encounter and exit")
	flag.Parse()

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var battles *postgres.BattleRepository
	if cfg.Database.Enabled() {
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		defer pool.Close()
		battles = postgres.NewBattleRepository(pool.DB())
	}
	if *history > 0 {
		printHistory(ctx, battles, *encounterID, *history, logger)
		return
	}

	start := time.Now()
	lib, err := content.Load(ctx, cfg.Content.Dirs(), logger)
	if err != nil {
		logger.Fatal("loading content", zap.Error(err))
	}
	if *list {
		for _, id := range lib.Rules.EncounterIDs() {
			fmt.Println(id)
		}
		return
	}
	def, err := lib.Rules.Encounter(*encounterID)
	if err != nil {
		logger.Fatal("selecting encounter", zap.Error(err))
	}

	src := dice.NewCryptoSource()
	if cfg.Engine.Seed != 0 {
		src = dice.NewSeededSource(uint64(cfg.Engine.Seed))
	}
	roller := dice.NewLoggedRoller(src, logger)

	var scripts *scripting.Manager
	if cfg.Content.ScriptsDir != "" {
		scripts = scripting.NewManager(roller, logger, cfg.Engine.ScriptInstructionLimit)
		defer scripts.Close()
		if err := scripts.Load(cfg.Content.ScriptsDir); err != nil {
			logger.Fatal("loading scripts", zap.Error(err))
		}
	}

	bus := event.NewBus()
	bus.Subscribe(observability.NewEventLogger(logger))
	battleLog := &event.Recorder{}
	if battles != nil {
		bus.Subscribe(battleLog)
	}
	gameClock := clock.New(cfg.Engine.RoundDuration, clock.WithEventSink(bus), clock.WithLogger(logger))

	s, err := sim.New(sim.Config{
		Library:   lib,
		Roller:    roller,
		Clock:     gameClock,
		Scripts:   scripts,
		Events:    bus,
		Logger:    logger,
		MaxRounds: cfg.Engine.MaxRounds,
	})
	if err != nil {
		logger.Fatal("creating simulation", zap.Error(err))
	}
	if err := s.Setup(def); err != nil {
		logger.Fatal("setting up encounter", zap.String("encounter", def.ID), zap.Error(err))
	}

	res, err := s.Run(ctx)
	if err != nil {
		logger.Error("simulation interrupted", zap.Error(err))
	}
	fmt.Printf("%s: %s\n", def.Name, res)

	if battles != nil {
		rec, err := battles.Record(context.WithoutCancel(ctx), postgres.Battle{
			EncounterID: def.ID,
			Seed:        cfg.Engine.Seed,
			Outcome:     res.Outcome.String(),
			Rounds:      res.Rounds,
			Turns:       res.Turns,
			GameTime:    res.GameTime,
			Survivors:   res.Survivors,
		}, battleLog.Events())
		if err != nil {
			logger.Error("recording battle", zap.Error(err))
		} else {
			logger.Info("battle recorded", zap.Int64("battle_id", rec.ID))
		}
	}
	logger.Info("combatsim finished",
		zap.String("encounter", def.ID),
		zap.Duration("wall_time", time.Since(start).Round(time.Millisecond)),
	)
}

func printHistory(ctx context.Context, battles *postgres.BattleRepository, encounterID string, n int, logger *zap.Logger) {
	if battles == nil {
		logger.Fatal("history needs database.host to be set")
	}
	recent, err := battles.ListRecent(ctx, encounterID, n)
	if err != nil {
		logger.Fatal("listing battles", zap.Error(err))
	}
	counts, err := battles.OutcomeCounts(ctx, encounterID)
	if err != nil {
		logger.Fatal("counting outcomes", zap.Error(err))
	}
	for _, b := range recent {
		fmt.Printf("#%d %s seed=%d %s after %d rounds (%s)\n",
			b.ID, b.CreatedAt.Format(time.RFC3339), b.Seed, b.Outcome, b.Rounds, clock.FormatDuration(b.GameTime))
	}
	fmt.Printf("%s totals: %v\n", encounterID, counts)
}
