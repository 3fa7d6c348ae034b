package tutorial

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/LonghiTW/Plot-System/server/tutorial/progress"
	"github.com/caarlos0/env/v11"
)

// UserConfig is the user facing configuration of the tutorial system. It is
// stored as TOML and may be overridden by environment variables prefixed
// with PLOTSYSTEM_.
type UserConfig struct {
	Tutorial struct {
		// Enabled controls whether players can start tutorials.
		Enabled bool `env:"ENABLED"`
		// BeginnerLayout is the path of a YAML layout replacing the built-in
		// layout of the beginner tutorial. Leave empty to use the built-in one.
		BeginnerLayout string `env:"BEGINNER_LAYOUT"`
		// StartOnJoin starts the beginner tutorial for players joining who never
		// completed a stage of it.
		StartOnJoin bool `env:"START_ON_JOIN"`
		// InteractionCooldown is the minimum time between two chat or NPC
		// interactions that are handled for a player, such as "1s".
		InteractionCooldown string `env:"INTERACTION_COOLDOWN"`
		// ErrorGrace is how long a failed tutorial stays up before it is stopped.
		ErrorGrace string `env:"ERROR_GRACE"`
		// ProgressInterval is how often the progress of a task is shown.
		ProgressInterval string `env:"PROGRESS_INTERVAL"`
	} `envPrefix:"TUTORIAL_"`
	Progress struct {
		// File is the TOML file the highest stage reached by every player is
		// stored in.
		File string `env:"FILE"`
	} `envPrefix:"PROGRESS_"`
}

// DefaultConfig returns a configuration with the default values filled out.
func DefaultConfig() UserConfig {
	c := UserConfig{}
	c.Tutorial.Enabled = true
	c.Tutorial.StartOnJoin = true
	c.Tutorial.InteractionCooldown = "1s"
	c.Tutorial.ErrorGrace = "3s"
	c.Tutorial.ProgressInterval = "1s"
	c.Progress.File = "tutorial_progress.toml"
	return c
}

// ApplyEnv overrides fields of uc with the PLOTSYSTEM_ environment variables
// that are set.
func (uc *UserConfig) ApplyEnv() error {
	if err := env.ParseWithOptions(uc, env.Options{Prefix: "PLOTSYSTEM_"}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Config converts a UserConfig to a Config. The progress store is opened as
// part of it. Collaborators depending on the host, such as the Presenter, are
// left for the caller to set.
func (uc UserConfig) Config(log *slog.Logger) (Config, error) {
	conf := Config{Log: log}
	var err error
	if conf.InteractionCooldown, err = parseDuration(uc.Tutorial.InteractionCooldown); err != nil {
		return conf, fmt.Errorf("parse interaction cooldown: %w", err)
	}
	if conf.ErrorGrace, err = parseDuration(uc.Tutorial.ErrorGrace); err != nil {
		return conf, fmt.Errorf("parse error grace: %w", err)
	}
	if conf.ProgressInterval, err = parseDuration(uc.Tutorial.ProgressInterval); err != nil {
		return conf, fmt.Errorf("parse progress interval: %w", err)
	}
	file := strings.TrimSpace(uc.Progress.File)
	if file == "" {
		file = "tutorial_progress.toml"
	}
	store, err := progress.Open(file)
	if err != nil {
		return conf, fmt.Errorf("open progress store: %w", err)
	}
	conf.Progress = store
	return conf, nil
}

// parseDuration parses s, treating an empty string as zero so that the
// default of the Config field applies.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
