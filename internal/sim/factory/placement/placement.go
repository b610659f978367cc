// Package placement tracks which floor cells built structures occupy.
//
// Footprints are axis-aligned squares anchored at their top-left cell. A Grid
// never holds two overlapping footprints or one that leaves its bounds; every
// operation returns a new Grid and leaves the receiver untouched.
package placement

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfBounds = errors.New("out of bounds")
	ErrCollision   = errors.New("collision")
	ErrBadSize     = errors.New("footprint size must be > 0")
	ErrNotSquare   = errors.New("floor space is not a perfect square")
)

type Kind string

const (
	KindMachine   Kind = "machine"
	KindGenerator Kind = "generator"
)

type Placement struct {
	OwnerID string `json:"owner_id"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Size    int    `json:"size"`
	Kind    Kind   `json:"kind"`
}

// Overlaps reports whether the two squares share at least one cell.
func (p Placement) Overlaps(q Placement) bool {
	return overlaps(p.X, p.Y, p.Size, q.X, q.Y, q.Size)
}

func overlaps(ax, ay, as, bx, by, bs int) bool {
	if ax+as <= bx || bx+bs <= ax {
		return false
	}
	if ay+as <= by || by+bs <= ay {
		return false
	}
	return true
}

type Grid struct {
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	Placements []Placement `json:"placements"`
}

func (g Grid) Clone() Grid {
	out := g
	out.Placements = append([]Placement(nil), g.Placements...)
	return out
}

// SideLength converts a floor-space cost into the side of its square footprint.
func SideLength(floorSpace int) (int, error) {
	if floorSpace <= 0 {
		return 0, ErrBadSize
	}
	s := isqrt(floorSpace)
	if s*s != floorSpace {
		return 0, fmt.Errorf("%w: %d", ErrNotSquare, floorSpace)
	}
	return s, nil
}

func isqrt(n int) int {
	if n < 2 {
		return n
	}
	x := n
	y := (x + 1) / 2
	for y < x {
		x = y
		y = (x + n/x) / 2
	}
	return x
}

// CanPlaceAt checks a size×size square anchored at (x,y) against the floor
// bounds and every existing footprint. Errors wrap ErrOutOfBounds or ErrCollision.
func (g Grid) CanPlaceAt(x, y, size int) error {
	if size <= 0 {
		return ErrBadSize
	}
	// Compared against Width-size so huge coordinates cannot wrap.
	if x < 0 || y < 0 || size > g.Width || size > g.Height || x > g.Width-size || y > g.Height-size {
		return fmt.Errorf("%w: %dx%d at (%d,%d) exceeds %dx%d floor", ErrOutOfBounds, size, size, x, y, g.Width, g.Height)
	}
	for _, p := range g.Placements {
		if overlaps(x, y, size, p.X, p.Y, p.Size) {
			return fmt.Errorf("%w: overlaps %s %s at (%d,%d)", ErrCollision, p.Kind, p.OwnerID, p.X, p.Y)
		}
	}
	return nil
}

// Place returns a grid with p appended, or the check error.
func (g Grid) Place(p Placement) (Grid, error) {
	if err := g.CanPlaceAt(p.X, p.Y, p.Size); err != nil {
		return g, err
	}
	out := g.Clone()
	out.Placements = append(out.Placements, p)
	return out, nil
}

// Remove drops the footprint owned by ownerID. ok is false when none exists.
func (g Grid) Remove(ownerID string) (out Grid, ok bool) {
	out = g
	out.Placements = make([]Placement, 0, len(g.Placements))
	for _, p := range g.Placements {
		if p.OwnerID == ownerID {
			ok = true
			continue
		}
		out.Placements = append(out.Placements, p)
	}
	if !ok {
		return g, false
	}
	return out, true
}

func (g Grid) Find(ownerID string) (Placement, bool) {
	for _, p := range g.Placements {
		if p.OwnerID == ownerID {
			return p, true
		}
	}
	return Placement{}, false
}

// Free counts unoccupied cells.
func (g Grid) Free() int {
	used := 0
	for _, p := range g.Placements {
		used += p.Size * p.Size
	}
	return g.Width*g.Height - used
}
