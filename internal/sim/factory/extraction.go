package factory

// extract runs every active node in stored order. Output past the item's
// capacity is discarded.
func (e *Engine) extract(st *State, rep *StepReport) {
	for _, n := range st.Nodes {
		if !n.Active || n.Rate <= 0 {
			continue
		}
		if got := e.rules.deposit(st.Inventory, n.Resource, n.Rate, st.InventorySpace); got > 0 {
			rep.Extracted[n.Resource] += got
		}
	}
}
