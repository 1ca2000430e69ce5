package board

import (
	"errors"
	"fmt"
	"slices"
)

// DefaultShipLengths is the classic fleet.
var DefaultShipLengths = []int{2, 3, 3, 4, 5}

// Config holds the grid dimensions and the fleet every player must place.
type Config struct {
	Width       int   `json:"width"`
	Height      int   `json:"height"`
	ShipLengths []int `json:"ship_lengths"`
}

// Default returns a 10x10 grid with the classic fleet.
func Default() Config {
	return Config{Width: 10, Height: 10, ShipLengths: slices.Clone(DefaultShipLengths)}
}

// Validate rejects grids or fleets that cannot produce a playable game.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("field size must be positive, got %dx%d", c.Width, c.Height)
	}
	if len(c.ShipLengths) == 0 {
		return errors.New("at least one ship size is required")
	}
	cells := 0
	longest := max(c.Width, c.Height)
	for _, length := range c.ShipLengths {
		if length <= 0 {
			return fmt.Errorf("ship size must be positive, got %d", length)
		}
		if length > longest {
			return fmt.Errorf("ship size %d does not fit a %dx%d field", length, c.Width, c.Height)
		}
		cells += length
	}
	if cells > c.Width*c.Height {
		return fmt.Errorf("fleet of %d cells does not fit a %dx%d field", cells, c.Width, c.Height)
	}
	return nil
}

// Fleet returns a fresh set of unplaced ships for the configured lengths.
func (c Config) Fleet() []Ship {
	ships := make([]Ship, len(c.ShipLengths))
	for i, length := range c.ShipLengths {
		ships[i] = NewShip(length)
	}
	return ships
}

// Clone returns a deep copy so callers cannot alias the fleet slice.
func (c Config) Clone() Config {
	c.ShipLengths = slices.Clone(c.ShipLengths)
	return c
}
