package factory

import (
	"fmt"
	"slices"

	"factorycraft.ai/internal/protocol"
	"factorycraft.ai/internal/sim/factory/placement"
)

func (e *Engine) buildMachine(st State, c BuildMachine) (State, error) {
	tune := e.rules.Tuning.Machine
	if st.Credits < tune.Cost {
		return st, errCredits(tune.Cost, st.Credits)
	}
	if err := st.Floor.CanPlaceAt(c.X, c.Y, e.rules.machineSide); err != nil {
		return st, errPlacement("machine", err)
	}

	next := st.Clone()
	next.Counters.NextMachine++
	id := fmt.Sprintf("M%d", next.Counters.NextMachine)
	floor, err := next.Floor.Place(placement.Placement{
		OwnerID: id, X: c.X, Y: c.Y, Size: e.rules.machineSide, Kind: placement.KindMachine,
	})
	if err != nil {
		return st, errPlacement("machine", err)
	}
	next.Floor = floor
	next.Machines = append(next.Machines, Machine{
		ID:         id,
		Status:     StatusIdle,
		Enabled:    true,
		FloorSpace: tune.FloorSpace,
		EnergyDraw: tune.EnergyDraw,
		X:          c.X,
		Y:          c.Y,
	})
	next.Credits -= tune.Cost
	next.Energy = measureEnergy(&next)
	return next, nil
}

func (e *Engine) removeMachine(st State, c RemoveMachine) (State, error) {
	i := st.machineIndex(c.ID)
	if i < 0 {
		return st, errMachineNotFound(c.ID)
	}
	next := st.Clone()
	floor, ok := next.Floor.Remove(c.ID)
	if !ok {
		return st, reject(protocol.ErrInternal, "machine %s has no footprint", c.ID)
	}
	e.returnBuffer(&next, &next.Machines[i])
	next.Floor = floor
	next.Machines = slices.Delete(next.Machines, i, i+1)
	next.Energy = measureEnergy(&next)
	return next, nil
}

func (e *Engine) buildGenerator(st State, c BuildGenerator) (State, error) {
	def, ok := e.rules.Catalogs.Generator(c.Type)
	if !ok {
		return st, reject(protocol.ErrInvalidTarget, "unknown generator type %q", c.Type)
	}
	if st.Credits < def.Cost {
		return st, errCredits(def.Cost, st.Credits)
	}
	side, err := placement.SideLength(def.FloorSpace)
	if err != nil {
		return st, reject(protocol.ErrInternal, "generator %s: %w", c.Type, err)
	}
	if err := st.Floor.CanPlaceAt(c.X, c.Y, side); err != nil {
		return st, errPlacement("generator", err)
	}

	next := st.Clone()
	next.Counters.NextGenerator++
	id := fmt.Sprintf("G%d", next.Counters.NextGenerator)
	floor, err := next.Floor.Place(placement.Placement{
		OwnerID: id, X: c.X, Y: c.Y, Size: side, Kind: placement.KindGenerator,
	})
	if err != nil {
		return st, errPlacement("generator", err)
	}
	next.Floor = floor
	next.Generators = append(next.Generators, Generator{
		ID:         id,
		Type:       def.Type,
		Output:     def.Output,
		FloorSpace: def.FloorSpace,
		X:          c.X,
		Y:          c.Y,
	})
	next.Credits -= def.Cost
	next.Energy = measureEnergy(&next)
	return next, nil
}

func (e *Engine) removeGenerator(st State, c RemoveGenerator) (State, error) {
	i := st.generatorIndex(c.ID)
	if i < 0 {
		return st, errGeneratorNotFound(c.ID)
	}
	next := st.Clone()
	floor, ok := next.Floor.Remove(c.ID)
	if !ok {
		return st, reject(protocol.ErrInternal, "generator %s has no footprint", c.ID)
	}
	next.Floor = floor
	next.Generators = slices.Delete(next.Generators, i, i+1)
	next.Energy = measureEnergy(&next)
	return next, nil
}
