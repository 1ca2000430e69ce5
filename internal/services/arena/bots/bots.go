// Package bots ships sample competitors so a match can be run without
// third-party players.
package bots

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/louisbranch/broadside/internal/random"
	"github.com/louisbranch/broadside/internal/services/arena/domain/board"
	"github.com/louisbranch/broadside/internal/services/arena/domain/competitor"
)

// Version is reported by every bot in this package.
const Version = "1.0"

var constructors = map[string]func() competitor.Competitor{
	"random": func() competitor.Competitor { return NewRandom() },
	"hunter": func() competitor.Competitor { return NewHunter() },
}

// Names lists the registered bot names in order.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New returns a fresh bot by name.
func New(name string) (competitor.Competitor, error) {
	ctor, ok := constructors[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown bot %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return ctor(), nil
}

// gameRand seeds a per-game generator from the shared seed and the bot's
// own stream so two bots in the same game do not mirror each other.
func gameRand(seed int64, stream string) *rand.Rand {
	var salt uint64
	for _, r := range stream {
		salt = salt*31 + uint64(r)
	}
	s := random.Derive(seed, salt)
	return rand.New(rand.NewPCG(uint64(s), salt))
}

// placeRandomly places every ship at a random legal position, restarting
// the layout when it paints itself into a corner.
func placeRandomly(rng *rand.Rand, ships []board.Ship, width, height int) []board.Ship {
	for range 64 {
		if placed, ok := tryLayout(rng, ships, width, height); ok {
			return placed
		}
	}
	placed := make([]board.Ship, 0, len(ships))
	for _, ship := range ships {
		if s, ok := firstFit(ship, placed, width, height); ok {
			ship = s
		}
		placed = append(placed, ship)
	}
	return placed
}

func tryLayout(rng *rand.Rand, ships []board.Ship, width, height int) ([]board.Ship, bool) {
	placed := make([]board.Ship, 0, len(ships))
	for _, ship := range ships {
		ok := false
		for range width * height * 4 {
			orientation := board.Horizontal
			if rng.IntN(2) == 1 {
				orientation = board.Vertical
			}
			candidate := ship.Place(board.Coordinate{X: rng.IntN(width), Y: rng.IntN(height)}, orientation)
			if candidate.InBounds(width, height) && !conflicts(candidate, placed) {
				placed = append(placed, candidate)
				ok = true
				break
			}
		}
		if !ok {
			return nil, false
		}
	}
	return placed, true
}

func firstFit(ship board.Ship, placed []board.Ship, width, height int) (board.Ship, bool) {
	for _, orientation := range []board.Orientation{board.Horizontal, board.Vertical} {
		for y := range height {
			for x := range width {
				candidate := ship.Place(board.Coordinate{X: x, Y: y}, orientation)
				if candidate.InBounds(width, height) && !conflicts(candidate, placed) {
					return candidate, true
				}
			}
		}
	}
	return ship, false
}

func conflicts(ship board.Ship, placed []board.Ship) bool {
	for _, other := range placed {
		if ship.ConflictsWith(other) {
			return true
		}
	}
	return false
}
