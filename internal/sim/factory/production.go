package factory

import "factorycraft.ai/internal/sim/catalogs"

// produce runs the pull/complete cycle for each machine in creation order.
func (e *Engine) produce(st *State, rep *StepReport) {
	for i := range st.Machines {
		m := &st.Machines[i]
		if m.Status == StatusBlocked {
			continue
		}
		if !m.Enabled || !m.Assigned() {
			m.Status = StatusIdle
			continue
		}
		recipe, ok := e.rules.Catalogs.Recipe(m.RecipeID)
		if !ok || !st.IsUnlocked(m.RecipeID) {
			m.Status = StatusIdle
			continue
		}
		m.Status = StatusWorking

		e.pullInputs(st, m, recipe)
		if !bufferComplete(m.Buffer, recipe) {
			continue
		}
		if !e.outputsFit(st, recipe) {
			rep.Stalled = append(rep.Stalled, m.ID)
			continue
		}
		for _, in := range recipe.Inputs {
			withdraw(m.Buffer, in.Item, in.Count)
		}
		if len(m.Buffer) == 0 {
			m.Buffer = nil
		}
		for _, out := range recipe.Outputs {
			st.Inventory[out.Item] += out.Count
			rep.Produced[out.Item] += out.Count
		}
		rep.Completions++
	}
}

// pullInputs tops the buffer up toward each input requirement from inventory.
func (e *Engine) pullInputs(st *State, m *Machine, recipe catalogs.RecipeDef) {
	for _, in := range recipe.Inputs {
		need := in.Count - m.Buffer[in.Item]
		if need <= 0 {
			continue
		}
		take := min(need, st.Inventory[in.Item])
		if take <= 0 {
			continue
		}
		if m.Buffer == nil {
			m.Buffer = map[string]int{}
		}
		m.Buffer[in.Item] += take
		withdraw(st.Inventory, in.Item, take)
	}
}

func bufferComplete(buf map[string]int, recipe catalogs.RecipeDef) bool {
	for _, in := range recipe.Inputs {
		if buf[in.Item] < in.Count {
			return false
		}
	}
	return true
}

// outputsFit is all-or-nothing: every output must fit in full.
func (e *Engine) outputsFit(st *State, recipe catalogs.RecipeDef) bool {
	for _, out := range recipe.Outputs {
		if e.rules.Remaining(st.Inventory, out.Item, st.InventorySpace) < out.Count {
			return false
		}
	}
	return true
}

// returnBuffer moves a machine's pulled inputs back to inventory, bounded by
// capacity, and empties the buffer.
func (e *Engine) returnBuffer(st *State, m *Machine) {
	for _, item := range sortedKeys(m.Buffer) {
		e.rules.deposit(st.Inventory, item, m.Buffer[item], st.InventorySpace)
	}
	m.Buffer = nil
}
