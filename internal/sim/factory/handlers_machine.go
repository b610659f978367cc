package factory

import "factorycraft.ai/internal/protocol"

func (e *Engine) assignRecipe(st State, c AssignRecipe) (State, error) {
	i := st.machineIndex(c.MachineID)
	if i < 0 {
		return st, errMachineNotFound(c.MachineID)
	}
	if c.RecipeID != "" {
		if _, ok := e.rules.Catalogs.Recipe(c.RecipeID); !ok {
			return st, reject(protocol.ErrInvalidTarget, "unknown recipe %q", c.RecipeID)
		}
		if !st.IsUnlocked(c.RecipeID) {
			return st, reject(protocol.ErrNoPermission, "recipe %s is not unlocked", c.RecipeID)
		}
	}
	if st.Machines[i].RecipeID == c.RecipeID {
		return st.Clone(), nil
	}

	next := st.Clone()
	m := &next.Machines[i]
	e.returnBuffer(&next, m)
	m.RecipeID = c.RecipeID
	if m.Status != StatusBlocked {
		m.Status = StatusIdle
	}
	next.Energy = measureEnergy(&next)
	return next, nil
}

// unblockMachine clears a power block. The next tick may block it again.
func (e *Engine) unblockMachine(st State, c UnblockMachine) (State, error) {
	i := st.machineIndex(c.ID)
	if i < 0 {
		return st, errMachineNotFound(c.ID)
	}
	if st.Machines[i].Status != StatusBlocked {
		return st, reject(protocol.ErrConflict, "machine %s is not blocked", c.ID)
	}
	next := st.Clone()
	m := &next.Machines[i]
	m.Status = StatusIdle
	if m.Enabled && m.Assigned() {
		m.Status = StatusWorking
	}
	next.Energy = measureEnergy(&next)
	return next, nil
}

// toggleMachine flips the enabled flag. A disabled machine keeps its buffer.
func (e *Engine) toggleMachine(st State, c ToggleMachine) (State, error) {
	i := st.machineIndex(c.ID)
	if i < 0 {
		return st, errMachineNotFound(c.ID)
	}
	next := st.Clone()
	m := &next.Machines[i]
	m.Enabled = !m.Enabled
	if !m.Enabled && m.Status == StatusWorking {
		m.Status = StatusIdle
	}
	next.Energy = measureEnergy(&next)
	return next, nil
}
