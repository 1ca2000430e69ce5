package bots

import (
	"math/rand/v2"

	"github.com/louisbranch/broadside/internal/services/arena/domain/board"
	"github.com/louisbranch/broadside/internal/services/arena/domain/competitor"
)

// Random places its fleet randomly and fires at a random unvisited cell.
type Random struct {
	competitor.Base
	rng    *rand.Rand
	width  int
	height int
	queue  []board.Coordinate
}

// NewRandom returns a Random bot.
func NewRandom() *Random { return &Random{} }

func (r *Random) Identity() competitor.Identity {
	return competitor.Identity{Name: "Random", Version: Version}
}

func (r *Random) NewGame(info competitor.GameInfo) error {
	r.rng = gameRand(info.Seed, "random")
	r.width, r.height = info.Board.Width, info.Board.Height
	r.queue = r.queue[:0]
	for y := range r.height {
		for x := range r.width {
			r.queue = append(r.queue, board.Coordinate{X: x, Y: y})
		}
	}
	r.rng.Shuffle(len(r.queue), func(i, j int) { r.queue[i], r.queue[j] = r.queue[j], r.queue[i] })
	return nil
}

func (r *Random) PlaceShips(ships []board.Ship) ([]board.Ship, error) {
	return placeRandomly(r.rng, ships, r.width, r.height), nil
}

func (r *Random) GetShot() (board.Coordinate, error) {
	if len(r.queue) == 0 {
		return board.Coordinate{}, nil
	}
	next := r.queue[0]
	r.queue = r.queue[1:]
	return next, nil
}
