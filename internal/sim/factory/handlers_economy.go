package factory

import (
	"math"

	"factorycraft.ai/internal/protocol"
)

func (e *Engine) toggleResearch(st State, c ToggleResearch) (State, error) {
	next := st.Clone()
	next.Research.Active = c.Active
	return next, nil
}

// UnlockCost is the credit price of unlocking recipeID.
func (e *Engine) UnlockCost(recipeID string) int {
	r, ok := e.rules.Catalogs.Recipe(recipeID)
	if !ok {
		return 0
	}
	return r.Tier * e.rules.Tuning.Research.UnlockCostPerTier
}

func (e *Engine) unlockRecipe(st State, c UnlockRecipe) (State, error) {
	if _, ok := e.rules.Catalogs.Recipe(c.RecipeID); !ok {
		return st, reject(protocol.ErrInvalidTarget, "unknown recipe %q", c.RecipeID)
	}
	if !st.IsDiscovered(c.RecipeID) {
		return st, reject(protocol.ErrNoPermission, "recipe %s has not been discovered", c.RecipeID)
	}
	if st.IsUnlocked(c.RecipeID) {
		return st, reject(protocol.ErrConflict, "recipe %s is already unlocked", c.RecipeID)
	}
	cost := e.UnlockCost(c.RecipeID)
	if st.Credits < cost {
		return st, errCredits(cost, st.Credits)
	}
	next := st.Clone()
	next.Credits -= cost
	next.Unlocked = insertSorted(next.Unlocked, c.RecipeID)
	return next, nil
}

// NextFloorExpansion reports the strip EXPAND_FLOOR would add and its price.
func (e *Engine) NextFloorExpansion(st State) (axis string, chunk, cost int) {
	tune := e.rules.Tuning.Floor
	x := st.Floor.NextExpansion(tune.InitialChunk, tune.InitialTarget)
	return string(x.Axis), x.Chunk, x.Cost(tune.CostPerCell)
}

func (e *Engine) expandFloor(st State) (State, error) {
	tune := e.rules.Tuning.Floor
	x := st.Floor.NextExpansion(tune.InitialChunk, tune.InitialTarget)
	cost := x.Cost(tune.CostPerCell)
	if st.Credits < cost {
		return st, errCredits(cost, st.Credits)
	}
	next := st.Clone()
	next.Credits -= cost
	next.Floor = next.Floor.Expand(x)
	return next, nil
}

// StorageCost is the price of the next storage expansion:
// floor(base × growth^expansionsBought).
func (e *Engine) StorageCost(st State) int {
	tune := e.rules.Tuning.Storage
	return int(math.Floor(float64(tune.BaseCost) * math.Pow(tune.Growth, float64(st.StorageExpansions))))
}

func (e *Engine) expandStorage(st State) (State, error) {
	cost := e.StorageCost(st)
	if st.Credits < cost {
		return st, errCredits(cost, st.Credits)
	}
	next := st.Clone()
	next.Credits -= cost
	next.InventorySpace += e.rules.Tuning.Storage.Step
	next.StorageExpansions++
	return next, nil
}
