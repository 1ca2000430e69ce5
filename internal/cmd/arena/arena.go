// Package arena parses arena command flags and launches a match.
package arena

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"

	entrypoint "github.com/louisbranch/broadside/internal/platform/cmd"
	arenaapp "github.com/louisbranch/broadside/internal/services/arena/app"
	"github.com/louisbranch/broadside/internal/services/arena/domain/board"
	"github.com/louisbranch/broadside/internal/services/arena/domain/match"
)

// Config holds arena command configuration. Every field is read from a
// BROADSIDE_ prefixed environment variable and may be overridden by a flag.
type Config struct {
	FieldWidth     int              `env:"FIELD_WIDTH" envDefault:"10"`
	FieldHeight    int              `env:"FIELD_HEIGHT" envDefault:"10"`
	ShipSizes      []int            `env:"SHIP_SIZES" envDefault:"2,3,3,4,5" envSeparator:","`
	GameModes      []match.GameMode `env:"GAME_MODE" envDefault:"classic" envSeparator:","`
	Rounds         int              `env:"MATCH_ROUNDS" envDefault:"100"`
	RoundsMode     match.RoundsMode `env:"MATCH_ROUNDS_MODE" envDefault:"all_rounds"`
	PerGameTimeout time.Duration    `env:"PER_GAME_TIMEOUT" envDefault:"1s"`
	AllowLateJoin  bool             `env:"ALLOW_LATE_JOIN" envDefault:"false"`
	Seed           int64            `env:"SEED" envDefault:"0"`
	Players        []string         `env:"PLAYERS" envDefault:"random,hunter" envSeparator:","`
	DBPath         string           `env:"DB_PATH"`
	HealthPort     int              `env:"HEALTH_PORT" envDefault:"0"`
	AccoladeStreak int              `env:"ACCOLADE_STREAK" envDefault:"9"`
	ReportLanguage string           `env:"REPORT_LANG" envDefault:"en"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.FieldWidth, "width", cfg.FieldWidth, "Board width")
	fs.IntVar(&cfg.FieldHeight, "height", cfg.FieldHeight, "Board height")
	fs.Func("ships", "Comma-separated ship lengths (default "+joinInts(cfg.ShipSizes)+")", func(value string) error {
		sizes, err := parseInts(value)
		if err != nil {
			return err
		}
		cfg.ShipSizes = sizes
		return nil
	})
	fs.Func("game-mode", "Comma-separated game modes (default "+joinModes(cfg.GameModes)+")", func(value string) error {
		modes, err := parseModes(value)
		if err != nil {
			return err
		}
		cfg.GameModes = modes
		return nil
	})
	fs.IntVar(&cfg.Rounds, "rounds", cfg.Rounds, "Rounds to play, or wins needed with first_to")
	fs.Func("rounds-mode", "Termination policy: all_rounds or first_to (default "+string(cfg.RoundsMode)+")", func(value string) error {
		return cfg.RoundsMode.UnmarshalText([]byte(value))
	})
	fs.DurationVar(&cfg.PerGameTimeout, "per-game-timeout", cfg.PerGameTimeout, "Time budget per competitor per game")
	fs.BoolVar(&cfg.AllowLateJoin, "allow-late-join", cfg.AllowLateJoin, "Accept competitors after the match started")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Match seed; 0 picks one at random")
	fs.Func("players", "Comma-separated bots to seat (default "+strings.Join(cfg.Players, ",")+")", func(value string) error {
		cfg.Players = strings.Split(value, ",")
		return nil
	})
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "SQLite archive path; empty disables archiving")
	fs.IntVar(&cfg.HealthPort, "health-port", cfg.HealthPort, "gRPC health port; 0 disables the endpoint")
	fs.IntVar(&cfg.AccoladeStreak, "accolade-streak", cfg.AccoladeStreak, "Hits a shooter must exceed in a row for domination")
	fs.StringVar(&cfg.ReportLanguage, "lang", cfg.ReportLanguage, "Report language tag")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// RuntimeConfig converts cfg into the runtime's configuration.
func (cfg Config) RuntimeConfig() (arenaapp.RuntimeConfig, error) {
	tag, err := language.Parse(cfg.ReportLanguage)
	if err != nil {
		return arenaapp.RuntimeConfig{}, fmt.Errorf("parse report language %q: %w", cfg.ReportLanguage, err)
	}
	return arenaapp.RuntimeConfig{
		Match: match.Config{
			Board: board.Config{
				Width:       cfg.FieldWidth,
				Height:      cfg.FieldHeight,
				ShipLengths: cfg.ShipSizes,
			},
			GameModes:      cfg.GameModes,
			Rounds:         cfg.Rounds,
			RoundsMode:     cfg.RoundsMode,
			PerGameTimeout: cfg.PerGameTimeout,
			AllowLateJoin:  cfg.AllowLateJoin,
			Seed:           cfg.Seed,
		},
		Players:        cfg.Players,
		DBPath:         cfg.DBPath,
		HealthPort:     cfg.HealthPort,
		AccoladeStreak: cfg.AccoladeStreak,
		Language:       tag,
	}, nil
}

// Run plays one match.
func Run(ctx context.Context, cfg Config) error {
	runtimeCfg, err := cfg.RuntimeConfig()
	if err != nil {
		return err
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceArena, func(ctx context.Context) error {
		return arenaapp.Run(ctx, runtimeCfg)
	})
}

func parseInts(value string) ([]int, error) {
	parts := strings.Split(value, ",")
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", part, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func parseModes(value string) ([]match.GameMode, error) {
	parts := strings.Split(value, ",")
	out := make([]match.GameMode, len(parts))
	for i, part := range parts {
		if err := out[i].UnmarshalText([]byte(strings.TrimSpace(part))); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func joinModes(modes []match.GameMode) string {
	parts := make([]string, len(modes))
	for i, m := range modes {
		parts[i] = string(m)
	}
	return strings.Join(parts, ",")
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
