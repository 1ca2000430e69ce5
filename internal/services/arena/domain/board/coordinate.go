// Package board models grid positions and ship geometry for a single game.
package board

import (
	"cmp"
	"fmt"
)

// Coordinate is a cell position on the grid. X grows to the right and Y grows
// downward; the origin is the top-left cell.
type Coordinate struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns the component-wise sum of c and o.
func (c Coordinate) Add(o Coordinate) Coordinate {
	return Coordinate{X: c.X + o.X, Y: c.Y + o.Y}
}

// Sub returns the component-wise difference of c and o.
func (c Coordinate) Sub(o Coordinate) Coordinate {
	return Coordinate{X: c.X - o.X, Y: c.Y - o.Y}
}

// Compare orders coordinates row-major: by Y first, then by X. It returns a
// negative number when c sorts before o, zero when they are equal and a
// positive number otherwise.
func (c Coordinate) Compare(o Coordinate) int {
	if d := cmp.Compare(c.Y, o.Y); d != 0 {
		return d
	}
	return cmp.Compare(c.X, o.X)
}

// Clamp returns c with negative components raised to zero.
func (c Coordinate) Clamp() Coordinate {
	return Coordinate{X: max(c.X, 0), Y: max(c.Y, 0)}
}

// Within reports whether c lies inside a width x height grid.
func (c Coordinate) Within(width, height int) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < width && c.Y < height
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%d, %d)", c.X, c.Y)
}
