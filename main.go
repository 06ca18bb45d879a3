package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"reelbot/internal/bot"
	"reelbot/internal/common"
	"reelbot/internal/config"
	"reelbot/internal/database"
	"reelbot/internal/fishing"
	"reelbot/internal/hunger"
	"reelbot/internal/journal"
	"reelbot/internal/scheduler"
	"reelbot/internal/treasure"
)

func main() {
	configPath := flag.String("config", "", "path to the yaml configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	setupLogging(cfg.Log)

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("Bot stopped")
	}
}

func setupLogging(cfg config.Log) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := common.SystemClock{}
	rnd := common.GlobalRandom
	game := cfg.Game

	// Database
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	guilds, err := db.GetGuilds(ctx)
	if err != nil {
		return fmt.Errorf("load guilds: %w", err)
	}

	// Journal
	var recorder journal.Recorder = journal.Discard
	if cfg.Journal.Dir != "" {
		writer := journal.NewWriter(cfg.Journal.Dir, "reelbot", clock)
		defer writer.Close()
		recorder = writer
	}

	// Discord
	session, err := bot.NewSession(cfg.Discord.Token)
	if err != nil {
		return err
	}
	channels := bot.NewChannels(guilds)
	presence := bot.NewPresence(clock, game.PresenceWindow)
	notifier := bot.NewNotifier(bot.NewSessionMessenger(session), channels, cfg.Discord.Restrictions, clock)

	// Game
	catalog := fishing.DefaultCatalog()
	schedulers := scheduler.NewManager(notifier, clock, game.Tick)
	spawner := fishing.NewSpawner(catalog, presence, db, notifier, db, schedulers, recorder, clock, rnd, fishing.SpawnerConfig{
		Delay:         game.SpawnDelay,
		Window:        game.SpawnWindow,
		FishPerPlayer: game.FishPerPlayer,
	})
	attempts := fishing.NewAttemptTracker(clock, game.RegenInterval)
	orchestrator := fishing.NewOrchestrator(catalog, spawner, attempts, db, notifier, recorder, clock, rnd)
	tracker := hunger.NewTracker(notifier, schedulers, recorder, clock, rnd, hunger.Config{
		DecayPerMinute:       game.HungerDecayPerMinute,
		AnnouncementChance:   game.HungerChance,
		AnnouncementInterval: game.HungerInterval,
		RequestDelay:         game.HungerDelay,
		Window:               game.HungerWindow,
	})
	hunts := treasure.NewOrchestrator(db, notifier, db, schedulers, recorder, clock, treasure.Config{
		Delay:  game.HuntDelay,
		Window: game.HuntWindow,
	})
	schedulers.SetHandlers(scheduler.Handlers{
		FishSpawn:          spawner,
		HungerAnnouncement: tracker,
		TreasureHunt:       hunts,
	})

	reelbot := bot.NewBot(bot.BotDeps{
		Session: session,
		Game: bot.NewGame(bot.GameDeps{
			Prefix:     cfg.Discord.Prefix,
			Catalog:    catalog,
			Database:   db,
			Presence:   presence,
			Channels:   channels,
			Directory:  bot.NewSessionDirectory(session),
			Notifier:   notifier,
			Fishing:    orchestrator,
			Hunger:     tracker,
			Treasure:   hunts,
			Schedulers: schedulers,
			Clock:      clock,
		}),
		Notifier:     notifier,
		Presence:     presence,
		Channels:     channels,
		Database:     db,
		Schedulers:   schedulers,
		Treasure:     hunts,
		Spawner:      spawner,
		Clock:        clock,
		Housekeeping: game.Housekeeping,
		MainCycle:    game.Tick,
	})

	log.Info().Msg(fmt.Sprintf("Starting reelbot with %d known guilds", len(guilds)))
	return reelbot.Run(ctx)
}
