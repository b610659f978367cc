package factory

import "factorycraft.ai/internal/protocol"

// Apply routes cmd to the tick pipeline or its handler. On error the returned
// State is st itself and nothing was applied.
func (e *Engine) Apply(st State, cmd Command) (State, error) {
	switch c := cmd.(type) {
	case AdvanceTick:
		next, _ := e.Step(st)
		return next, nil
	case BuildMachine:
		return e.buildMachine(st, c)
	case RemoveMachine:
		return e.removeMachine(st, c)
	case AssignRecipe:
		return e.assignRecipe(st, c)
	case BuildGenerator:
		return e.buildGenerator(st, c)
	case RemoveGenerator:
		return e.removeGenerator(st, c)
	case ExpandFloor:
		return e.expandFloor(st)
	case Sell:
		return e.sell(st, c)
	case ToggleResearch:
		return e.toggleResearch(st, c)
	case UnlockRecipe:
		return e.unlockRecipe(st, c)
	case UnblockMachine:
		return e.unblockMachine(st, c)
	case ToggleMachine:
		return e.toggleMachine(st, c)
	case ExpandStorage:
		return e.expandStorage(st)
	default:
		return st, reject(protocol.ErrUnknownCommand, "unrecognized command %T", cmd)
	}
}
