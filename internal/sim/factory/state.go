package factory

import (
	"maps"
	"slices"

	"factorycraft.ai/internal/sim/factory/placement"
)

type MachineStatus string

const (
	StatusIdle    MachineStatus = "idle"
	StatusWorking MachineStatus = "working"
	StatusBlocked MachineStatus = "blocked"
)

// State is the whole simulation. Engine methods never modify the State they
// are given; every accepted transition returns a fresh copy.
type State struct {
	Tick    uint64 `json:"tick"`
	Seed    uint32 `json:"seed"`
	Credits int    `json:"credits"`

	Floor  placement.Grid `json:"floor"`
	Energy Energy         `json:"energy"`

	InventorySpace    int            `json:"inventory_space"`
	StorageExpansions int            `json:"storage_expansions"`
	Inventory         map[string]int `json:"inventory"`

	Machines   []Machine   `json:"machines"`
	Generators []Generator `json:"generators"`
	Nodes      []Node      `json:"nodes"`

	// Sorted sets; Unlocked is always a subset of Discovered.
	Discovered []string `json:"discovered"`
	Unlocked   []string `json:"unlocked"`

	Research   Research           `json:"research"`
	Popularity map[string]float64 `json:"popularity"`

	// Items sold since the last tick, sorted. Cleared by the market phase.
	SoldThisTick []string `json:"sold_this_tick,omitempty"`

	Counters Counters `json:"counters"`
}

type Energy struct {
	Produced int `json:"produced"`
	Consumed int `json:"consumed"`
}

// Spare is the energy left after every running machine is powered.
func (e Energy) Spare() int { return e.Produced - e.Consumed }

type Research struct {
	Active     bool `json:"active"`
	EnergyCost int  `json:"energy_cost"`
}

type Counters struct {
	NextMachine   uint64 `json:"next_machine"`
	NextGenerator uint64 `json:"next_generator"`
}

type Machine struct {
	ID         string         `json:"id"`
	RecipeID   string         `json:"recipe_id,omitempty"`
	Buffer     map[string]int `json:"buffer,omitempty"`
	Status     MachineStatus  `json:"status"`
	Enabled    bool           `json:"enabled"`
	FloorSpace int            `json:"floor_space"`
	EnergyDraw int            `json:"energy_draw"`
	X          int            `json:"x"`
	Y          int            `json:"y"`
}

func (m Machine) Assigned() bool { return m.RecipeID != "" }

// Running reports whether the machine draws power this tick.
func (m Machine) Running() bool {
	return m.Enabled && m.Assigned() && m.Status != StatusBlocked
}

type Generator struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Output     int    `json:"output"`
	FloorSpace int    `json:"floor_space"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
}

type Node struct {
	ID       string `json:"id"`
	Resource string `json:"resource"`
	Rate     int    `json:"rate"`
	Active   bool   `json:"active"`
}

// Clone returns a deep copy that shares no maps or slices with s.
func (s State) Clone() State {
	out := s
	out.Floor = s.Floor.Clone()
	out.Inventory = cloneCounts(s.Inventory)
	out.Machines = make([]Machine, len(s.Machines))
	for i, m := range s.Machines {
		m.Buffer = cloneCounts(m.Buffer)
		if len(m.Buffer) == 0 {
			m.Buffer = nil
		}
		out.Machines[i] = m
	}
	out.Generators = slices.Clone(s.Generators)
	out.Nodes = slices.Clone(s.Nodes)
	out.Discovered = slices.Clone(s.Discovered)
	out.Unlocked = slices.Clone(s.Unlocked)
	out.Popularity = maps.Clone(s.Popularity)
	if out.Popularity == nil {
		out.Popularity = map[string]float64{}
	}
	out.SoldThisTick = slices.Clone(s.SoldThisTick)
	return out
}

func cloneCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		if v > 0 {
			out[k] = v
		}
	}
	return out
}

func (s State) machineIndex(id string) int {
	return slices.IndexFunc(s.Machines, func(m Machine) bool { return m.ID == id })
}

func (s State) generatorIndex(id string) int {
	return slices.IndexFunc(s.Generators, func(g Generator) bool { return g.ID == id })
}

// Machine looks up a machine by id.
func (s State) Machine(id string) (Machine, bool) {
	if i := s.machineIndex(id); i >= 0 {
		return s.Machines[i], true
	}
	return Machine{}, false
}

func (s State) Generator(id string) (Generator, bool) {
	if i := s.generatorIndex(id); i >= 0 {
		return s.Generators[i], true
	}
	return Generator{}, false
}

func (s State) IsDiscovered(recipeID string) bool { return hasSorted(s.Discovered, recipeID) }
func (s State) IsUnlocked(recipeID string) bool   { return hasSorted(s.Unlocked, recipeID) }

// PopularityOf returns the price multiplier for item; untracked items sell at 1.0.
func (s State) PopularityOf(item string) float64 {
	if v, ok := s.Popularity[item]; ok {
		return v
	}
	return 1.0
}

func hasSorted(set []string, v string) bool {
	_, ok := slices.BinarySearch(set, v)
	return ok
}

func insertSorted(set []string, v string) []string {
	i, ok := slices.BinarySearch(set, v)
	if ok {
		return set
	}
	return slices.Insert(set, i, v)
}

func sortedSet(in []string) []string {
	out := slices.Clone(in)
	slices.Sort(out)
	return slices.Compact(out)
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
