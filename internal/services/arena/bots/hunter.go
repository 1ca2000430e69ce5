package bots

import (
	"math/rand/v2"

	"github.com/louisbranch/broadside/internal/services/arena/domain/board"
	"github.com/louisbranch/broadside/internal/services/arena/domain/competitor"
)

var neighbors = []board.Coordinate{{X: 0, Y: -1}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: -1, Y: 0}}

// Hunter sweeps a checkerboard until it hits, then searches around the hit
// until the ship sinks.
type Hunter struct {
	competitor.Base
	rng     *rand.Rand
	width   int
	height  int
	shot    map[board.Coordinate]bool
	hunt    []board.Coordinate
	targets []board.Coordinate
}

// NewHunter returns a Hunter bot.
func NewHunter() *Hunter { return &Hunter{} }

func (h *Hunter) Identity() competitor.Identity {
	return competitor.Identity{Name: "Hunter", Version: Version}
}

func (h *Hunter) NewGame(info competitor.GameInfo) error {
	h.rng = gameRand(info.Seed, "hunter")
	h.width, h.height = info.Board.Width, info.Board.Height
	h.shot = make(map[board.Coordinate]bool, h.width*h.height)
	h.targets = nil
	h.hunt = h.hunt[:0]
	var odd []board.Coordinate
	for y := range h.height {
		for x := range h.width {
			c := board.Coordinate{X: x, Y: y}
			if (x+y)%2 == 0 {
				h.hunt = append(h.hunt, c)
			} else {
				odd = append(odd, c)
			}
		}
	}
	h.rng.Shuffle(len(h.hunt), func(i, j int) { h.hunt[i], h.hunt[j] = h.hunt[j], h.hunt[i] })
	h.rng.Shuffle(len(odd), func(i, j int) { odd[i], odd[j] = odd[j], odd[i] })
	h.hunt = append(h.hunt, odd...)
	return nil
}

func (h *Hunter) PlaceShips(ships []board.Ship) ([]board.Ship, error) {
	return placeRandomly(h.rng, ships, h.width, h.height), nil
}

func (h *Hunter) GetShot() (board.Coordinate, error) {
	for len(h.targets) > 0 {
		next := h.targets[len(h.targets)-1]
		h.targets = h.targets[:len(h.targets)-1]
		if !h.shot[next] {
			h.shot[next] = true
			return next, nil
		}
	}
	for len(h.hunt) > 0 {
		next := h.hunt[0]
		h.hunt = h.hunt[1:]
		if !h.shot[next] {
			h.shot[next] = true
			return next, nil
		}
	}
	return board.Coordinate{}, nil
}

func (h *Hunter) ShotHit(at board.Coordinate, sunk bool) error {
	if sunk {
		h.targets = nil
		return nil
	}
	for _, d := range neighbors {
		c := at.Add(d)
		if c.Within(h.width, h.height) && !h.shot[c] {
			h.targets = append(h.targets, c)
		}
	}
	return nil
}
