// Package factory is the deterministic simulation core: a State advanced one
// tick at a time and mutated only through Commands.
//
// Everything here is synchronous and free of I/O. Given the same Rules, the
// same starting State and the same Command sequence, Apply produces the same
// States, including the generator seed.
package factory

type Engine struct {
	rules *Rules
}

func NewEngine(r *Rules) *Engine {
	return &Engine{rules: r}
}

func (e *Engine) Rules() *Rules { return e.rules }

// NewState builds the starting state for seed from the tuning's start section.
func (e *Engine) NewState(seed uint32) State {
	start := e.rules.Tuning.Start
	st := State{
		Seed:           seed,
		Credits:        start.Credits,
		InventorySpace: start.InventorySpace,
		Inventory:      map[string]int{},
		Popularity:     map[string]float64{},
		Discovered:     sortedSet(start.Discovered),
		Unlocked:       sortedSet(start.Unlocked),
		Research:       Research{EnergyCost: e.rules.Tuning.Research.EnergyCost},
	}
	st.Floor.Width = start.FloorWidth
	st.Floor.Height = start.FloorHeight
	for _, item := range sortedKeys(start.Inventory) {
		e.rules.deposit(st.Inventory, item, start.Inventory[item], st.InventorySpace)
	}
	for item, v := range start.Popularity {
		st.Popularity[item] = v
	}
	for _, n := range start.Nodes {
		st.Nodes = append(st.Nodes, Node{ID: n.ID, Resource: n.Resource, Rate: n.Rate, Active: n.Active})
	}
	return st
}
