package factory

import "factorycraft.ai/internal/protocol"

// Command is the closed set of inputs an Engine accepts. Only types in this
// file implement it; Engine.Apply switches over all of them.
type Command interface {
	Kind() string
	command()
}

type AdvanceTick struct{}

type BuildMachine struct{ X, Y int }

type RemoveMachine struct{ ID string }

// AssignRecipe clears the machine's recipe when RecipeID is empty.
type AssignRecipe struct {
	MachineID string
	RecipeID  string
}

type BuildGenerator struct {
	Type string
	X, Y int
}

type RemoveGenerator struct{ ID string }

type ExpandFloor struct{}

type Sell struct {
	Item     string
	Quantity int
}

type ToggleResearch struct{ Active bool }

type UnlockRecipe struct{ RecipeID string }

type UnblockMachine struct{ ID string }

type ToggleMachine struct{ ID string }

type ExpandStorage struct{}

func (AdvanceTick) Kind() string     { return protocol.TypeAdvanceTick }
func (BuildMachine) Kind() string    { return protocol.TypeBuildMachine }
func (RemoveMachine) Kind() string   { return protocol.TypeRemoveMachine }
func (AssignRecipe) Kind() string    { return protocol.TypeAssignRecipe }
func (BuildGenerator) Kind() string  { return protocol.TypeBuildGenerator }
func (RemoveGenerator) Kind() string { return protocol.TypeRemoveGenerator }
func (ExpandFloor) Kind() string     { return protocol.TypeExpandFloor }
func (Sell) Kind() string            { return protocol.TypeSell }
func (ToggleResearch) Kind() string  { return protocol.TypeToggleResearch }
func (UnlockRecipe) Kind() string    { return protocol.TypeUnlockRecipe }
func (UnblockMachine) Kind() string  { return protocol.TypeUnblockMachine }
func (ToggleMachine) Kind() string   { return protocol.TypeToggleMachine }
func (ExpandStorage) Kind() string   { return protocol.TypeExpandStorage }

func (AdvanceTick) command()     {}
func (BuildMachine) command()    {}
func (RemoveMachine) command()   {}
func (AssignRecipe) command()    {}
func (BuildGenerator) command()  {}
func (RemoveGenerator) command() {}
func (ExpandFloor) command()     {}
func (Sell) command()            {}
func (ToggleResearch) command()  {}
func (UnlockRecipe) command()    {}
func (UnblockMachine) command()  {}
func (ToggleMachine) command()   {}
func (ExpandStorage) command()   {}
