package protocol

import "encoding/json"

const Version = "1.0"

// Command types.
const (
	TypeAdvanceTick     = "ADVANCE_TICK"
	TypeBuildMachine    = "BUILD_MACHINE"
	TypeRemoveMachine   = "REMOVE_MACHINE"
	TypeAssignRecipe    = "ASSIGN_RECIPE"
	TypeBuildGenerator  = "BUILD_GENERATOR"
	TypeRemoveGenerator = "REMOVE_GENERATOR"
	TypeExpandFloor     = "EXPAND_FLOOR"
	TypeSell            = "SELL"
	TypeToggleResearch  = "TOGGLE_RESEARCH"
	TypeUnlockRecipe    = "UNLOCK_RECIPE"
	TypeUnblockMachine  = "UNBLOCK_MACHINE"
	TypeToggleMachine   = "TOGGLE_MACHINE"
	TypeExpandStorage   = "EXPAND_STORAGE"
)

// CommandTypes lists every command type in wire order.
var CommandTypes = []string{
	TypeAdvanceTick,
	TypeBuildMachine,
	TypeRemoveMachine,
	TypeAssignRecipe,
	TypeBuildGenerator,
	TypeRemoveGenerator,
	TypeExpandFloor,
	TypeSell,
	TypeToggleResearch,
	TypeUnlockRecipe,
	TypeUnblockMachine,
	TypeToggleMachine,
	TypeExpandStorage,
}

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
