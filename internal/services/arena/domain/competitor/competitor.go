// Package competitor defines the contract every pluggable player implements.
//
// Implementations are untrusted: the adapter package times every call,
// recovers panics and converts misbehavior into round forfeits.
package competitor

import (
	"strings"
	"time"

	"github.com/louisbranch/broadside/internal/services/arena/domain/board"
)

// Identity names a competitor implementation.
type Identity struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func (i Identity) String() string {
	return strings.TrimSpace(i.Name + " " + i.Version)
}

// GameInfo describes the game a competitor is about to play.
type GameInfo struct {
	Board     board.Config
	TimeLimit time.Duration
	Seed      int64
}

// Competitor plays one side of a game.
//
// PlaceShips receives the unplaced fleet and returns the same ships placed.
// GetShot returns the next cell to fire at. Returned errors count as faults
// and forfeit the current round.
type Competitor interface {
	Identity() Identity
	NewMatch(opponent string) error
	NewGame(info GameInfo) error
	PlaceShips(ships []board.Ship) ([]board.Ship, error)
	GetShot() (board.Coordinate, error)
	OpponentShot(at board.Coordinate) error
	ShotHit(at board.Coordinate, sunk bool) error
	ShotMiss(at board.Coordinate) error
	GameWon() error
	GameLost() error
	MatchOver() error
}

// Base implements the notification half of Competitor as no-ops so concrete
// players only write the methods they care about.
type Base struct{}

func (Base) NewMatch(string) error { return nil }
func (Base) NewGame(GameInfo) error { return nil }
func (Base) OpponentShot(board.Coordinate) error { return nil }
func (Base) ShotHit(board.Coordinate, bool) error { return nil }
func (Base) ShotMiss(board.Coordinate) error { return nil }
func (Base) GameWon() error { return nil }
func (Base) GameLost() error { return nil }
func (Base) MatchOver() error { return nil }
