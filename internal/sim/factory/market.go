package factory

import (
	"math"

	"factorycraft.ai/internal/protocol"
)

// recoverMarket moves every tracked multiplier toward the maximum. Items sold
// since the last tick are skipped unless the tuning says otherwise.
func (e *Engine) recoverMarket(st *State) {
	tune := e.rules.Tuning.Market
	for _, item := range sortedKeys(st.Popularity) {
		if !tune.RecoverSoldItems && hasSorted(st.SoldThisTick, item) {
			continue
		}
		st.Popularity[item] = math.Min(st.Popularity[item]+tune.RecoveryRate, tune.MaxPopularity)
	}
	st.SoldThisTick = nil
}

// SalePrice is what selling qty units of item would earn right now.
func (e *Engine) SalePrice(st State, item string, qty int) int {
	d, ok := e.rules.Catalogs.Material(item)
	if !ok || qty <= 0 {
		return 0
	}
	return int(math.Floor(d.BasePrice * st.PopularityOf(item) * float64(qty)))
}

func (e *Engine) sell(st State, c Sell) (State, error) {
	if c.Item == "" {
		return st, reject(protocol.ErrBadRequest, "missing item")
	}
	if c.Quantity <= 0 {
		return st, reject(protocol.ErrBadRequest, "quantity must be > 0, got %d", c.Quantity)
	}
	if _, ok := e.rules.Catalogs.Material(c.Item); !ok {
		return st, reject(protocol.ErrInvalidTarget, "unknown item %s", c.Item)
	}
	if have := st.Inventory[c.Item]; have < c.Quantity {
		return st, reject(protocol.ErrNoResource, "not enough %s: need %d, have %d", c.Item, c.Quantity, have)
	}

	tune := e.rules.Tuning.Market
	next := st.Clone()
	next.Credits += e.SalePrice(st, c.Item, c.Quantity)
	withdraw(next.Inventory, c.Item, c.Quantity)

	mult, tracked := next.Popularity[c.Item]
	if !tracked {
		mult = tune.MaxPopularity
	}
	mult -= tune.DecayRate * float64(c.Quantity)
	next.Popularity[c.Item] = math.Max(mult, tune.MinPopularity)
	next.SoldThisTick = insertSorted(next.SoldThisTick, c.Item)
	return next, nil
}
