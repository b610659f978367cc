package factory

import (
	"crypto/sha256"
	"encoding/hex"

	"factorycraft.ai/internal/sim/digestcodec"
)

// Digest is a sha256 over the canonical binary encoding of s. Two states
// with the same digest are equal for every field the engine reads.
func (s State) Digest() string {
	h := sha256.New()
	enc := digestcodec.New(h)

	enc.U64(s.Tick)
	enc.U64(uint64(s.Seed))
	enc.Int(s.Credits)

	enc.Int(s.Floor.Width)
	enc.Int(s.Floor.Height)
	enc.U64(uint64(len(s.Floor.Placements)))
	for _, p := range s.Floor.Placements {
		enc.String(p.OwnerID)
		enc.String(string(p.Kind))
		enc.Int(p.X)
		enc.Int(p.Y)
		enc.Int(p.Size)
	}
	enc.Int(s.Energy.Produced)
	enc.Int(s.Energy.Consumed)

	enc.Int(s.InventorySpace)
	enc.Int(s.StorageExpansions)
	enc.IntMap(s.Inventory)

	enc.U64(uint64(len(s.Machines)))
	for _, m := range s.Machines {
		enc.String(m.ID)
		enc.String(m.RecipeID)
		enc.IntMap(m.Buffer)
		enc.String(string(m.Status))
		enc.Bool(m.Enabled)
		enc.Int(m.FloorSpace)
		enc.Int(m.EnergyDraw)
		enc.Int(m.X)
		enc.Int(m.Y)
	}
	enc.U64(uint64(len(s.Generators)))
	for _, g := range s.Generators {
		enc.String(g.ID)
		enc.String(g.Type)
		enc.Int(g.Output)
		enc.Int(g.FloorSpace)
		enc.Int(g.X)
		enc.Int(g.Y)
	}
	enc.U64(uint64(len(s.Nodes)))
	for _, n := range s.Nodes {
		enc.String(n.ID)
		enc.String(n.Resource)
		enc.Int(n.Rate)
		enc.Bool(n.Active)
	}

	enc.Strings(s.Discovered)
	enc.Strings(s.Unlocked)
	enc.Bool(s.Research.Active)
	enc.Int(s.Research.EnergyCost)
	enc.FloatMap(s.Popularity)
	enc.Strings(s.SoldThisTick)
	enc.U64(s.Counters.NextMachine)
	enc.U64(s.Counters.NextGenerator)

	return hex.EncodeToString(h.Sum(nil))
}
