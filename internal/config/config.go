// Package config provides Viper-based configuration loading for the combat engine.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cory-johannsen/dnd-combat/internal/content"
)

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// ContentConfig names the definition directories loaded at startup.
type ContentConfig struct {
	ConditionsDir string `mapstructure:"conditions_dir"`
	SpellsDir     string `mapstructure:"spells_dir"`
	ClassesDir    string `mapstructure:"classes_dir"`
	WeaponsDir    string `mapstructure:"weapons_dir"`
	MonstersDir   string `mapstructure:"monsters_dir"`
	EncountersDir string `mapstructure:"encounters_dir"`
	TacticsDir    string `mapstructure:"tactics_dir"`
	// ScriptsDir holds Lua condition hooks. Empty disables scripted effects.
	ScriptsDir string `mapstructure:"scripts_dir"`
}

// Dirs converts the configured directories into a content.Dirs.
func (c ContentConfig) Dirs() content.Dirs {
	return content.Dirs{
		Conditions: c.ConditionsDir,
		Spells:     c.SpellsDir,
		Classes:    c.ClassesDir,
		Weapons:    c.WeaponsDir,
		Monsters:   c.MonstersDir,
		Encounters: c.EncountersDir,
		Tactics:    c.TacticsDir,
	}
}

// EngineConfig holds combat engine settings.
type EngineConfig struct {
	// Seed fixes the dice stream; 0 draws from crypto/rand.
	Seed int64 `mapstructure:"seed"`
	// RoundDuration is the game time one combat round advances the clock.
	RoundDuration time.Duration `mapstructure:"round_duration"`
	// ScriptInstructionLimit bounds every Lua hook call.
	ScriptInstructionLimit int `mapstructure:"script_instruction_limit"`
	// MaxRounds stops a simulated fight that has not been decided.
	MaxRounds int `mapstructure:"max_rounds"`
}

// DatabaseConfig holds PostgreSQL connection settings for the battle history.
// An empty Host disables persistence.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// Enabled reports whether a database is configured.
func (d DatabaseConfig) Enabled() bool { return d.Host != "" }

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.PathEscape(d.User), url.PathEscape(d.Password), d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// SRDConfig holds settings for importing content from the 5e SRD API.
type SRDConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Content  ContentConfig  `mapstructure:"content"`
	Engine   EngineConfig   `mapstructure:"engine"`
	SRD      SRDConfig      `mapstructure:"srd"`
	Database DatabaseConfig `mapstructure:"database"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateContent(c.Content); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateEngine(c.Engine); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateSRD(c.SRD); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateDatabase(c.Database); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateContent(c ContentConfig) error {
	if c.ConditionsDir == "" {
		return errors.New("content.conditions_dir must not be empty")
	}
	return nil
}

func validateEngine(e EngineConfig) error {
	var errs []string
	if e.RoundDuration <= 0 {
		errs = append(errs, fmt.Sprintf("engine.round_duration must be positive, got %s", e.RoundDuration))
	}
	if e.ScriptInstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("engine.script_instruction_limit must be >= 0, got %d", e.ScriptInstructionLimit))
	}
	if e.MaxRounds < 1 {
		errs = append(errs, fmt.Sprintf("engine.max_rounds must be >= 1, got %d", e.MaxRounds))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	if !d.Enabled() {
		return nil
	}
	var errs []string
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 || d.MinConns > d.MaxConns {
		errs = append(errs, fmt.Sprintf("database.min_conns must be 0-%d, got %d", d.MaxConns, d.MinConns))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateSRD(s SRDConfig) error {
	var errs []string
	if u, err := url.Parse(s.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("srd.base_url must be an absolute URL, got %q", s.BaseURL))
	}
	if s.Timeout <= 0 {
		errs = append(errs, "srd.timeout must be positive")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with DND_ prefix
	v.SetEnvPrefix("DND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("content.conditions_dir", "content/conditions")
	v.SetDefault("content.spells_dir", "content/spells")
	v.SetDefault("content.classes_dir", "content/classes")
	v.SetDefault("content.weapons_dir", "content/weapons")
	v.SetDefault("content.monsters_dir", "content/monsters")
	v.SetDefault("content.encounters_dir", "content/encounters")
	v.SetDefault("content.tactics_dir", "content/ai")
	v.SetDefault("content.scripts_dir", "content/scripts")

	v.SetDefault("engine.seed", 0)
	v.SetDefault("engine.round_duration", "6s")
	v.SetDefault("engine.script_instruction_limit", 100000)
	v.SetDefault("engine.max_rounds", 50)

	v.SetDefault("srd.base_url", "https://www.dnd5eapi.co")
	v.SetDefault("srd.timeout", "10s")

	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "dnd")
	v.SetDefault("database.name", "dnd_combat")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.min_conns", 0)
	v.SetDefault("database.max_conn_lifetime", "30m")
	v.SetDefault("database.migrations_dir", "migrations")
}
