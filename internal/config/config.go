// Package config loads the bot configuration from a yaml file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"reelbot/internal/common"
)

const TokenEnv = "DISCORD_TOKEN"

type Config struct {
	Discord  Discord  `yaml:"discord"`
	Database Database `yaml:"database"`
	Journal  Journal  `yaml:"journal"`
	Log      Log      `yaml:"log"`
	Game     Game     `yaml:"game"`
}

type Discord struct {
	Token  string `yaml:"token"`
	Prefix string `yaml:"prefix"`
	// Limits on the announcements sent to each guild
	Restrictions []common.Restriction `yaml:"restrictions"`
}

type Database struct {
	Path string `yaml:"path"`
}

type Journal struct {
	Dir string `yaml:"dir"` // Empty disables the journal
}

type Log struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type Game struct {
	Tick                 time.Duration `yaml:"tick"`
	SpawnDelay           time.Duration `yaml:"spawn_delay"`
	SpawnWindow          time.Duration `yaml:"spawn_window"`
	FishPerPlayer        int           `yaml:"fish_per_player"`
	HuntDelay            time.Duration `yaml:"hunt_delay"`
	HuntWindow           time.Duration `yaml:"hunt_window"`
	HungerDecayPerMinute float64       `yaml:"hunger_decay_per_minute"`
	HungerChance         float64       `yaml:"hunger_chance"`
	HungerInterval       time.Duration `yaml:"hunger_interval"`
	HungerDelay          time.Duration `yaml:"hunger_delay"`
	HungerWindow         time.Duration `yaml:"hunger_window"`
	RegenInterval        time.Duration `yaml:"regen_interval"`
	PresenceWindow       time.Duration `yaml:"presence_window"` // How long a player counts as active
	Housekeeping         time.Duration `yaml:"housekeeping"`
}

func Default() Config {
	return Config{
		Discord: Discord{
			Prefix: "reel",
			Restrictions: []common.Restriction{
				{Requests: 5, Duration: 5 * time.Second},
				{Requests: 60, Duration: 10 * time.Minute},
			},
		},
		Database: Database{Path: "data/reelbot.sqlite"},
		Journal:  Journal{Dir: "data/journal"},
		Log:      Log{Level: "info"},
		Game: Game{
			Tick:                 time.Second,
			SpawnDelay:           3 * time.Hour,
			SpawnWindow:          30 * time.Minute,
			FishPerPlayer:        5,
			HuntDelay:            3 * time.Hour,
			HuntWindow:           15 * time.Minute,
			HungerDecayPerMinute: 0.05,
			HungerChance:         0.05,
			HungerInterval:       time.Hour,
			HungerDelay:          2 * time.Hour,
			HungerWindow:         10 * time.Minute,
			RegenInterval:        15 * time.Minute,
			PresenceWindow:       time.Hour,
			Housekeeping:         5 * time.Minute,
		},
	}
}

// Load the configuration at path on top of the defaults. An empty path
// only applies the defaults. The token from the environment wins
func Load(path string) (Config, error) {
	c := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return c, err
		}
		if err := yaml.Unmarshal(raw, &c); err != nil {
			return c, fmt.Errorf("%s: %w", path, err)
		}
	}
	if token := os.Getenv(TokenEnv); token != "" {
		c.Discord.Token = token
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.Discord.Token == "" {
		errs = append(errs, fmt.Errorf("no discord token, set discord.token or %s", TokenEnv))
	}
	if c.Discord.Prefix == "" {
		errs = append(errs, errors.New("empty command prefix"))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("empty database path"))
	}
	positive := map[string]time.Duration{
		"game.tick":            c.Game.Tick,
		"game.spawn_window":    c.Game.SpawnWindow,
		"game.hunt_window":     c.Game.HuntWindow,
		"game.hunger_window":   c.Game.HungerWindow,
		"game.regen_interval":  c.Game.RegenInterval,
		"game.presence_window": c.Game.PresenceWindow,
		"game.housekeeping":    c.Game.Housekeeping,
	}
	for name, d := range positive {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.Game.FishPerPlayer <= 0 {
		errs = append(errs, errors.New("game.fish_per_player must be positive"))
	}
	if c.Game.HungerChance < 0 || c.Game.HungerChance > 1 {
		errs = append(errs, errors.New("game.hunger_chance must be between 0 and 1"))
	}
	return errors.Join(errs...)
}
