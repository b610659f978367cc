package factory

import (
	"testing"

	"factorycraft.ai/internal/sim/catalogs"
	"factorycraft.ai/internal/sim/tuning"
)

// testRules is a small rule set: one wood node, a planks recipe and two
// generator sizes. Tests tweak the tuning through mutate before it is checked.
func testRules(t *testing.T, mutate func(*tuning.Tuning)) *Rules {
	t.Helper()
	mats := []catalogs.MaterialDef{
		{ID: "wood", Weight: 1, BasePrice: 2},
		{ID: "planks", Weight: 1, BasePrice: 3},
		{ID: "stone", Weight: 2, BasePrice: 1},
		{ID: "stone_brick", Weight: 2, BasePrice: 4},
		{ID: "charcoal", Weight: 1, BasePrice: 3},
	}
	recipes := []catalogs.RecipeDef{
		{ID: "planks", Tier: 0,
			Inputs:  []catalogs.ItemCount{{Item: "wood", Count: 2}},
			Outputs: []catalogs.ItemCount{{Item: "planks", Count: 1}}},
		{ID: "stone_brick", Tier: 1,
			Inputs:  []catalogs.ItemCount{{Item: "stone", Count: 2}},
			Outputs: []catalogs.ItemCount{{Item: "stone_brick", Count: 1}}},
		{ID: "charcoal", Tier: 1,
			Inputs:  []catalogs.ItemCount{{Item: "wood", Count: 3}},
			Outputs: []catalogs.ItemCount{{Item: "charcoal", Count: 1}}},
	}
	gens := []catalogs.GeneratorDef{
		{Type: "crank", Output: 4, FloorSpace: 1, Cost: 20},
		{Type: "engine", Output: 10, FloorSpace: 4, Cost: 100},
	}
	cats, err := catalogs.New(mats, recipes, gens)
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	tune := tuning.Tuning{
		Start: tuning.Start{
			Credits:        1000,
			InventorySpace: 100,
			FloorWidth:     8,
			FloorHeight:    8,
			Discovered:     []string{"planks"},
			Unlocked:       []string{"planks"},
			Nodes: []tuning.Node{
				{ID: "N1", Resource: "wood", Rate: 2, Active: true},
			},
		},
		Machine:  tuning.Machine{Cost: 50, FloorSpace: 4, EnergyDraw: 3},
		Floor:    tuning.Floor{InitialChunk: 8, InitialTarget: 16, CostPerCell: 2},
		Storage:  tuning.Storage{Step: 50, BaseCost: 100, Growth: 1.5},
		Market:   tuning.Market{RecoveryRate: 0.01, DecayRate: 0.02, MinPopularity: 0.25, MaxPopularity: 1},
		Research: tuning.Research{EnergyCost: 5, DiscoveryChance: 0.05, ProximityBonus: 2, UnlockCostPerTier: 100},
	}
	if mutate != nil {
		mutate(&tune)
	}
	r, err := NewRules(cats, tune)
	if err != nil {
		t.Fatalf("rules: %v", err)
	}
	return r
}

func testEngine(t *testing.T, mutate func(*tuning.Tuning)) *Engine {
	t.Helper()
	return NewEngine(testRules(t, mutate))
}

// mustApply applies cmds in order and fails the test on the first rejection.
func mustApply(t *testing.T, e *Engine, st State, cmds ...Command) State {
	t.Helper()
	for _, c := range cmds {
		next, err := e.Apply(st, c)
		if err != nil {
			t.Fatalf("%s: %v", c.Kind(), err)
		}
		if err := e.Rules().CheckInvariants(next); err != nil {
			t.Fatalf("after %s: %v", c.Kind(), err)
		}
		st = next
	}
	return st
}

func ticks(n int) []Command {
	out := make([]Command, n)
	for i := range out {
		out[i] = AdvanceTick{}
	}
	return out
}

// poweredPlanks is a state with a crank and one planks machine at the origin.
func poweredPlanks(t *testing.T, e *Engine) State {
	t.Helper()
	return mustApply(t, e, e.NewState(12345),
		BuildGenerator{Type: "crank", X: 7, Y: 7},
		BuildMachine{X: 0, Y: 0},
		AssignRecipe{MachineID: "M1", RecipeID: "planks"},
	)
}
