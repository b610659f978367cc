package factory

import "factorycraft.ai/internal/sim/rng"

// StepReport summarizes what one tick did. It is derived data for logs and
// metrics; the State alone is authoritative.
type StepReport struct {
	Tick        uint64         `json:"tick"`
	Shed        []string       `json:"shed,omitempty"`
	Extracted   map[string]int `json:"extracted,omitempty"`
	Produced    map[string]int `json:"produced,omitempty"`
	Completions int            `json:"completions"`
	Stalled     []string       `json:"stalled,omitempty"`
	Discovered  string         `json:"discovered,omitempty"`
}

// Step advances st by one tick: power, extraction, production, research,
// market recovery, then the tick counter and seed.
func (e *Engine) Step(st State) (State, StepReport) {
	next := st.Clone()
	rep := StepReport{
		Tick:      st.Tick,
		Extracted: map[string]int{},
		Produced:  map[string]int{},
	}
	src := rng.New(next.Seed)

	rep.Shed = allocatePower(&next)
	e.extract(&next, &rep)
	e.produce(&next, &rep)
	rep.Discovered = e.research(&next, src)
	e.recoverMarket(&next)

	next.Tick++
	next.Seed = src.Seed()
	return next, rep
}
