package factory

import (
	"fmt"

	"factorycraft.ai/internal/sim/factory/placement"
)

// CheckInvariants reports the first broken structural invariant in st, or nil.
// The engine maintains all of them; this exists for tests, replay and
// snapshot loading.
func (r *Rules) CheckInvariants(st State) error {
	for _, item := range sortedKeys(st.Inventory) {
		n := st.Inventory[item]
		if n <= 0 {
			return fmt.Errorf("inventory: %s has non-positive count %d", item, n)
		}
		if n*r.Weight(item) > st.InventorySpace {
			return fmt.Errorf("inventory: %s x%d exceeds capacity %d", item, n, st.InventorySpace)
		}
	}

	// Replaying every placement onto an empty floor catches bounds and overlap.
	empty := placement.Grid{Width: st.Floor.Width, Height: st.Floor.Height}
	for _, p := range st.Floor.Placements {
		g, err := empty.Place(p)
		if err != nil {
			return fmt.Errorf("floor: %s: %w", p.OwnerID, err)
		}
		empty = g
	}

	owners := map[string]placement.Kind{}
	for _, p := range st.Floor.Placements {
		owners[p.OwnerID] = p.Kind
	}
	if len(owners) != len(st.Machines)+len(st.Generators) {
		return fmt.Errorf("floor: %d placements for %d machines and %d generators",
			len(owners), len(st.Machines), len(st.Generators))
	}
	for _, m := range st.Machines {
		if owners[m.ID] != placement.KindMachine {
			return fmt.Errorf("floor: machine %s has no footprint", m.ID)
		}
	}
	for _, g := range st.Generators {
		if owners[g.ID] != placement.KindGenerator {
			return fmt.Errorf("floor: generator %s has no footprint", g.ID)
		}
	}

	for _, id := range st.Unlocked {
		if !st.IsDiscovered(id) {
			return fmt.Errorf("research: %s unlocked but not discovered", id)
		}
	}

	if got := measureEnergy(&st); got != st.Energy {
		return fmt.Errorf("energy: stored %+v, measured %+v", st.Energy, got)
	}
	return nil
}
