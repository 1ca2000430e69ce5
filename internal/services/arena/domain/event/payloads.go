package event

import (
	"time"

	"github.com/louisbranch/broadside/internal/services/arena/domain/board"
)

// MatchBeginPayload captures the constants a match was played under.
type MatchBeginPayload struct {
	Board         board.Config  `json:"board"`
	GameMode      string        `json:"game_mode"`
	RoundsMode    string        `json:"rounds_mode"`
	Rounds        int           `json:"rounds"`
	PerGameLimit  time.Duration `json:"per_game_limit_ns"`
	AllowLateJoin bool          `json:"allow_late_join"`
	Seed          int64         `json:"seed"`
	PlayerIDs     []string      `json:"player_ids"`
}

// MatchEndPayload records how a match closed.
type MatchEndPayload struct {
	RoundsPlayed int            `json:"rounds_played"`
	Finished     bool           `json:"finished"`
	Scores       map[string]int `json:"scores"`
}

// PlayerAddedPayload identifies a newly seated player.
type PlayerAddedPayload struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Seat    int    `json:"seat"`
	Late    bool   `json:"late,omitempty"`
}

// RoundBeginPayload lists the round's seating.
type RoundBeginPayload struct {
	Number       int      `json:"number"`
	PlayerIDs    []string `json:"player_ids"`
	FirstShooter string   `json:"first_shooter"`
}

// ShipsPlacedPayload records a validated layout.
type ShipsPlacedPayload struct {
	Ships []board.Ship `json:"ships"`
}

// ShotFiredPayload records a shot and its target.
type ShotFiredPayload struct {
	Target  string           `json:"target"`
	At      board.Coordinate `json:"at"`
	Clamped bool             `json:"clamped,omitempty"`
}

// ShotOutcome classifies a shot.
type ShotOutcome string

const (
	// ShotMiss hit open water.
	ShotMiss ShotOutcome = "miss"
	// ShotHit struck a ship that is still afloat.
	ShotHit ShotOutcome = "hit"
	// ShotSunk struck the last intact cell of a ship.
	ShotSunk ShotOutcome = "sunk"
)

// ShotResultPayload records the classification of a shot. Eliminated is
// set when the shot sank the target's last ship.
type ShotResultPayload struct {
	Target     string           `json:"target"`
	At         board.Coordinate `json:"at"`
	Outcome    ShotOutcome      `json:"outcome"`
	Eliminated bool             `json:"eliminated,omitempty"`
}

// PlayerForfeitedPayload records why a player left a round.
type PlayerForfeitedPayload struct {
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// RoundAccoladePayload records an achievement.
type RoundAccoladePayload struct {
	Accolade string `json:"accolade"`
	Detail   string `json:"detail,omitempty"`
}

// RoundEndPayload records a resolved round.
type RoundEndPayload struct {
	Number int      `json:"number"`
	Winner string   `json:"winner,omitempty"`
	Losers []string `json:"losers,omitempty"`
	Draw   bool     `json:"draw,omitempty"`
	Reason string   `json:"reason"`
	Turns  int      `json:"turns"`
	Shots  int      `json:"shots"`
}
