package board

import (
	"errors"
	"fmt"
	"slices"
)

// Orientation is the direction a ship extends from its origin cell.
type Orientation int

const (
	// Horizontal ships extend along +X.
	Horizontal Orientation = iota
	// Vertical ships extend along +Y.
	Vertical
)

func (o Orientation) String() string {
	switch o {
	case Horizontal:
		return "horizontal"
	case Vertical:
		return "vertical"
	default:
		return fmt.Sprintf("orientation(%d)", int(o))
	}
}

// Ship is a straight run of Length cells starting at Origin.
type Ship struct {
	Length      int         `json:"length"`
	Origin      Coordinate  `json:"origin"`
	Orientation Orientation `json:"orientation"`
	Placed      bool        `json:"placed"`
}

// NewShip returns an unplaced ship of the given length.
func NewShip(length int) Ship {
	return Ship{Length: length}
}

// Place returns a placed copy of s at origin with the given orientation.
func (s Ship) Place(origin Coordinate, orientation Orientation) Ship {
	s.Origin = origin
	s.Orientation = orientation
	s.Placed = true
	return s
}

// Cells lists the cells covered by a placed ship. Unplaced ships cover no cells.
func (s Ship) Cells() []Coordinate {
	if !s.Placed || s.Length <= 0 {
		return nil
	}
	step := Coordinate{X: 1}
	if s.Orientation == Vertical {
		step = Coordinate{Y: 1}
	}
	cells := make([]Coordinate, 0, s.Length)
	at := s.Origin
	for range s.Length {
		cells = append(cells, at)
		at = at.Add(step)
	}
	return cells
}

// IsAt reports whether the ship covers c.
func (s Ship) IsAt(c Coordinate) bool {
	return slices.Contains(s.Cells(), c)
}

// InBounds reports whether every cell of a placed ship lies on the grid.
func (s Ship) InBounds(width, height int) bool {
	if !s.Placed || s.Length <= 0 {
		return false
	}
	for _, c := range s.Cells() {
		if !c.Within(width, height) {
			return false
		}
	}
	return true
}

// ConflictsWith reports whether two placed ships share a cell.
func (s Ship) ConflictsWith(o Ship) bool {
	for _, c := range s.Cells() {
		if o.IsAt(c) {
			return true
		}
	}
	return false
}

// IsSunk reports whether every cell of the ship is present in hits.
func (s Ship) IsSunk(hits map[Coordinate]struct{}) bool {
	cells := s.Cells()
	if len(cells) == 0 {
		return false
	}
	for _, c := range cells {
		if _, ok := hits[c]; !ok {
			return false
		}
	}
	return true
}

var (
	// ErrShipUnplaced indicates a ship in a layout was never placed.
	ErrShipUnplaced = errors.New("ship is not placed")
	// ErrShipOutOfBounds indicates a ship extends past the grid.
	ErrShipOutOfBounds = errors.New("ship is out of bounds")
	// ErrShipOverlap indicates two ships share a cell.
	ErrShipOverlap = errors.New("ships overlap")
)

// ValidateLayout checks that every ship is placed, inside a width x height
// grid and does not overlap any other ship in the layout.
func ValidateLayout(ships []Ship, width, height int) error {
	for i, s := range ships {
		if !s.Placed {
			return fmt.Errorf("ship %d: %w", i, ErrShipUnplaced)
		}
		if !s.InBounds(width, height) {
			return fmt.Errorf("ship %d at %s: %w", i, s.Origin, ErrShipOutOfBounds)
		}
		for j := i + 1; j < len(ships); j++ {
			if s.ConflictsWith(ships[j]) {
				return fmt.Errorf("ships %d and %d: %w", i, j, ErrShipOverlap)
			}
		}
	}
	return nil
}

// ShipAt returns the index of the ship covering c, or -1.
func ShipAt(ships []Ship, c Coordinate) int {
	for i, s := range ships {
		if s.IsAt(c) {
			return i
		}
	}
	return -1
}

// AllSunk reports whether every ship in the layout is sunk.
func AllSunk(ships []Ship, hits map[Coordinate]struct{}) bool {
	for _, s := range ships {
		if !s.IsSunk(hits) {
			return false
		}
	}
	return true
}
