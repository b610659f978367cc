package factory

import (
	"fmt"

	"factorycraft.ai/internal/protocol"
)

// CommandFromMsg converts a decoded wire message into a Command.
func CommandFromMsg(m protocol.CommandMsg) (Command, error) {
	switch m.Type {
	case protocol.TypeAdvanceTick:
		return AdvanceTick{}, nil
	case protocol.TypeBuildMachine:
		if m.X == nil || m.Y == nil {
			return nil, reject(protocol.ErrBadRequest, "BUILD_MACHINE: missing x/y")
		}
		return BuildMachine{X: *m.X, Y: *m.Y}, nil
	case protocol.TypeRemoveMachine:
		return RemoveMachine{ID: m.ID}, nil
	case protocol.TypeAssignRecipe:
		return AssignRecipe{MachineID: m.MachineID, RecipeID: m.RecipeID}, nil
	case protocol.TypeBuildGenerator:
		if m.X == nil || m.Y == nil {
			return nil, reject(protocol.ErrBadRequest, "BUILD_GENERATOR: missing x/y")
		}
		return BuildGenerator{Type: m.GeneratorType, X: *m.X, Y: *m.Y}, nil
	case protocol.TypeRemoveGenerator:
		return RemoveGenerator{ID: m.ID}, nil
	case protocol.TypeExpandFloor:
		return ExpandFloor{}, nil
	case protocol.TypeSell:
		return Sell{Item: m.Item, Quantity: m.Quantity}, nil
	case protocol.TypeToggleResearch:
		if m.Active == nil {
			return nil, reject(protocol.ErrBadRequest, "TOGGLE_RESEARCH: missing active")
		}
		return ToggleResearch{Active: *m.Active}, nil
	case protocol.TypeUnlockRecipe:
		return UnlockRecipe{RecipeID: m.RecipeID}, nil
	case protocol.TypeUnblockMachine:
		return UnblockMachine{ID: m.ID}, nil
	case protocol.TypeToggleMachine:
		return ToggleMachine{ID: m.ID}, nil
	case protocol.TypeExpandStorage:
		return ExpandStorage{}, nil
	default:
		return nil, reject(protocol.ErrUnknownCommand, "unrecognized command %q", m.Type)
	}
}

// MsgFromCommand is the inverse of CommandFromMsg.
func MsgFromCommand(c Command) (protocol.CommandMsg, error) {
	m := protocol.CommandMsg{}
	switch c := c.(type) {
	case AdvanceTick, ExpandFloor, ExpandStorage:
	case BuildMachine:
		m.X, m.Y = protocol.IntPtr(c.X), protocol.IntPtr(c.Y)
	case RemoveMachine:
		m.ID = c.ID
	case AssignRecipe:
		m.MachineID, m.RecipeID = c.MachineID, c.RecipeID
	case BuildGenerator:
		m.GeneratorType = c.Type
		m.X, m.Y = protocol.IntPtr(c.X), protocol.IntPtr(c.Y)
	case RemoveGenerator:
		m.ID = c.ID
	case Sell:
		m.Item, m.Quantity = c.Item, c.Quantity
	case ToggleResearch:
		m.Active = protocol.BoolPtr(c.Active)
	case UnlockRecipe:
		m.RecipeID = c.RecipeID
	case UnblockMachine:
		m.ID = c.ID
	case ToggleMachine:
		m.ID = c.ID
	default:
		return m, fmt.Errorf("unrecognized command %T", c)
	}
	m.Type = c.Kind()
	return m, nil
}

// DecodeCommand parses one JSON command line.
func DecodeCommand(b []byte) (Command, error) {
	msg, err := protocol.DecodeCommand(b)
	if err != nil {
		return nil, err
	}
	return CommandFromMsg(msg)
}
