package factory

import (
	"factorycraft.ai/internal/sim/catalogs"
	"factorycraft.ai/internal/sim/rng"
)

// research may discover one recipe. It draws once for the discovery roll and,
// on success, once more for the weighted pick.
func (e *Engine) research(st *State, src rng.Source) string {
	if !st.Research.Active || st.Energy.Spare() < st.Research.EnergyCost {
		return ""
	}
	tune := e.rules.Tuning.Research
	if src.Next() >= tune.DiscoveryChance {
		return ""
	}

	var (
		pool    []catalogs.RecipeDef
		weights []float64
		total   float64
	)
	for _, r := range e.rules.Catalogs.Recipes.Order {
		if st.IsDiscovered(r.ID) {
			continue
		}
		present := 0
		for _, in := range r.Inputs {
			if st.Inventory[in.Item] > 0 {
				present++
			}
		}
		// The explicit conversion rounds the product so it is never fused into an FMA.
		w := 1 + float64(tune.ProximityBonus*float64(present))
		pool = append(pool, r)
		weights = append(weights, w)
		total += w
	}
	if len(pool) == 0 {
		return ""
	}

	pick := pool[len(pool)-1].ID
	sel := src.Next() * total
	for i, r := range pool {
		sel -= weights[i]
		if sel <= 0 {
			pick = r.ID
			break
		}
	}
	st.Discovered = insertSorted(st.Discovered, pick)
	return pick
}
