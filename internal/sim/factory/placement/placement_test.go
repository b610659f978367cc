package placement

import (
	"errors"
	"math"
	"testing"
)

func TestSideLength(t *testing.T) {
	for cost, want := range map[int]int{1: 1, 4: 2, 9: 3, 16: 4, 144: 12} {
		got, err := SideLength(cost)
		if err != nil || got != want {
			t.Fatalf("SideLength(%d): expected %d got %d (%v)", cost, want, got, err)
		}
	}
	if _, err := SideLength(8); !errors.Is(err, ErrNotSquare) {
		t.Fatalf("expected ErrNotSquare, got %v", err)
	}
	if _, err := SideLength(0); !errors.Is(err, ErrBadSize) {
		t.Fatalf("expected ErrBadSize, got %v", err)
	}
}

func TestCanPlaceAt_Bounds(t *testing.T) {
	g := Grid{Width: 8, Height: 8}
	cases := []struct {
		x, y, size int
		ok         bool
	}{
		{0, 0, 2, true},
		{6, 6, 2, true},
		{7, 6, 2, false},
		{6, 7, 2, false},
		{-1, 0, 1, false},
		{0, -1, 1, false},
		{0, 0, 8, true},
		{0, 0, 9, false},
		{math.MaxInt, 0, 2, false},
		{0, math.MaxInt, 2, false},
		{math.MaxInt - 1, math.MaxInt - 1, 2, false},
		{0, 0, math.MaxInt, false},
	}
	for _, c := range cases {
		err := g.CanPlaceAt(c.x, c.y, c.size)
		if c.ok && err != nil {
			t.Fatalf("(%d,%d,%d): unexpected %v", c.x, c.y, c.size, err)
		}
		if !c.ok && !errors.Is(err, ErrOutOfBounds) {
			t.Fatalf("(%d,%d,%d): expected ErrOutOfBounds got %v", c.x, c.y, c.size, err)
		}
	}
}

func TestCanPlaceAt_Collision(t *testing.T) {
	g, err := Grid{Width: 8, Height: 8}.Place(Placement{OwnerID: "M1", X: 0, Y: 0, Size: 2, Kind: KindMachine})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if err := g.CanPlaceAt(1, 1, 2); !errors.Is(err, ErrCollision) {
		t.Fatalf("expected collision at (1,1), got %v", err)
	}
	if err := g.CanPlaceAt(2, 0, 2); err != nil {
		t.Fatalf("expected (2,0) free, got %v", err)
	}
	if err := g.CanPlaceAt(0, 2, 2); err != nil {
		t.Fatalf("expected (0,2) free, got %v", err)
	}
	if err := g.CanPlaceAt(1, 0, 1); !errors.Is(err, ErrCollision) {
		t.Fatalf("expected collision at (1,0), got %v", err)
	}
}

func TestPlaceDoesNotAliasReceiver(t *testing.T) {
	base := Grid{Width: 8, Height: 8, Placements: make([]Placement, 0, 4)}
	a, _ := base.Place(Placement{OwnerID: "A", X: 0, Y: 0, Size: 1})
	b, _ := base.Place(Placement{OwnerID: "B", X: 0, Y: 0, Size: 1})
	if len(base.Placements) != 0 {
		t.Fatalf("receiver mutated: %+v", base.Placements)
	}
	if a.Placements[0].OwnerID != "A" || b.Placements[0].OwnerID != "B" {
		t.Fatalf("grids share backing array: %+v %+v", a.Placements, b.Placements)
	}
}

func TestRemove(t *testing.T) {
	g, _ := Grid{Width: 4, Height: 4}.Place(Placement{OwnerID: "M1", X: 0, Y: 0, Size: 2})
	g, _ = g.Place(Placement{OwnerID: "G1", X: 2, Y: 2, Size: 2})
	out, ok := g.Remove("M1")
	if !ok || len(out.Placements) != 1 || out.Placements[0].OwnerID != "G1" {
		t.Fatalf("unexpected remove result: ok=%v %+v", ok, out.Placements)
	}
	if len(g.Placements) != 2 {
		t.Fatalf("receiver mutated")
	}
	if _, ok := g.Remove("nope"); ok {
		t.Fatalf("expected missing owner")
	}
	if out.Free() != 12 {
		t.Fatalf("expected 12 free cells got %d", out.Free())
	}
}

func TestExpansionSchedule(t *testing.T) {
	g := Grid{Width: 8, Height: 8}
	want := [][2]int{{16, 8}, {16, 16}, {32, 16}, {32, 32}, {64, 32}}
	for i, w := range want {
		e := g.NextExpansion(8, 16)
		prevW, prevH := g.Width, g.Height
		g = g.Expand(e)
		if g.Width != w[0] || g.Height != w[1] {
			t.Fatalf("step %d: expected %dx%d got %dx%d", i, w[0], w[1], g.Width, g.Height)
		}
		if added := g.Width*g.Height - prevW*prevH; added != e.CellsAdded {
			t.Fatalf("step %d: expected %d cells added got %d", i, e.CellsAdded, added)
		}
	}
}

func TestExpansionCost(t *testing.T) {
	e := Grid{Width: 8, Height: 8}.NextExpansion(8, 16)
	if e.Axis != AxisWidth || e.Chunk != 8 || e.CellsAdded != 64 {
		t.Fatalf("unexpected expansion: %+v", e)
	}
	if e.Cost(3) != 192 {
		t.Fatalf("expected cost 192 got %d", e.Cost(3))
	}
}
