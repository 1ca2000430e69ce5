package match

import (
	"fmt"
	"slices"
	"strings"
	"time"

	apperrors "github.com/louisbranch/broadside/internal/platform/errors"
	"github.com/louisbranch/broadside/internal/platform/timeouts"
	"github.com/louisbranch/broadside/internal/services/arena/domain/board"
)

// RoundsMode selects the termination policy.
type RoundsMode string

const (
	// AllRounds finishes once Rounds rounds have been played.
	AllRounds RoundsMode = "all_rounds"
	// FirstTo finishes as soon as any player's score reaches Rounds.
	FirstTo RoundsMode = "first_to"
)

// UnmarshalText accepts the snake_case names and the legacy CamelCase ones.
func (m *RoundsMode) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "all_rounds", "allrounds":
		*m = AllRounds
	case "first_to", "firstto":
		*m = FirstTo
	default:
		return apperrors.WithMetadata(apperrors.CodeRoundsModeUnsupported,
			fmt.Sprintf("unsupported rounds mode %q", text), map[string]string{"option": "match_rounds_mode"})
	}
	return nil
}

// GameMode is a rule set a match can be played under.
type GameMode string

const (
	// Classic is the only implemented mode.
	Classic GameMode = "classic"
	// Teams is recognized but not implemented.
	Teams GameMode = "teams"
)

// UnmarshalText normalizes case. Unknown modes are kept so Validate can
// report them.
func (g *GameMode) UnmarshalText(text []byte) error {
	*g = GameMode(strings.ToLower(strings.TrimSpace(string(text))))
	return nil
}

// Config is consumed once at construction and never changes afterwards.
type Config struct {
	Board          board.Config
	GameModes      []GameMode
	Rounds         int
	RoundsMode     RoundsMode
	PerGameTimeout time.Duration
	AllowLateJoin  bool
	// Seed drives turn order tie-breaks and is handed to every competitor.
	Seed int64
}

// DefaultConfig mirrors the stock configuration file.
func DefaultConfig() Config {
	return Config{
		Board:          board.Default(),
		GameModes:      []GameMode{Classic},
		Rounds:         100,
		RoundsMode:     AllRounds,
		PerGameTimeout: timeouts.PerGame,
	}
}

// Validate reports the first problem as a configuration error. Requesting
// any mode other than Classic fails with GAME_MODE_UNSUPPORTED wrapped in
// CONFIG_INVALID.
func (c Config) Validate() error {
	if err := c.Board.Validate(); err != nil {
		return configError("board", err)
	}
	if len(c.GameModes) == 0 {
		return configError("game_mode", fmt.Errorf("at least one game mode is required"))
	}
	for _, mode := range c.GameModes {
		if mode != Classic {
			return configError("game_mode", apperrors.WithMetadata(apperrors.CodeGameModeUnsupported,
				fmt.Sprintf("game mode %q is not implemented", mode), map[string]string{"mode": string(mode)}))
		}
	}
	if c.Rounds <= 0 {
		return configError("match_rounds", fmt.Errorf("must be positive, got %d", c.Rounds))
	}
	switch c.RoundsMode {
	case AllRounds, FirstTo:
	default:
		return configError("match_rounds_mode", apperrors.New(apperrors.CodeRoundsModeUnsupported,
			fmt.Sprintf("unsupported rounds mode %q", c.RoundsMode)))
	}
	if c.PerGameTimeout <= 0 {
		return configError("per_game_timeout", fmt.Errorf("must be positive, got %s", c.PerGameTimeout))
	}
	return nil
}

func configError(option string, cause error) error {
	return &apperrors.Error{
		Code:     apperrors.CodeConfigInvalid,
		Message:  "invalid " + option,
		Metadata: map[string]string{"option": option},
		Cause:    cause,
	}
}

// Finished reports whether the policy is satisfied after roundsPlayed rounds
// with the given scores.
func (c Config) Finished(roundsPlayed int, scores []int) bool {
	switch c.RoundsMode {
	case AllRounds:
		return roundsPlayed >= c.Rounds
	case FirstTo:
		return slices.ContainsFunc(scores, func(s int) bool { return s >= c.Rounds })
	default:
		return false
	}
}

func (c Config) clone() Config {
	c.Board = c.Board.Clone()
	c.GameModes = slices.Clone(c.GameModes)
	return c
}

func (c Config) modeNames() string {
	names := make([]string, len(c.GameModes))
	for i, m := range c.GameModes {
		names[i] = string(m)
	}
	return strings.Join(names, ",")
}
