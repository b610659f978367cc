package factory

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"

	"factorycraft.ai/internal/sim/catalogs"
	"factorycraft.ai/internal/sim/factory/placement"
	"factorycraft.ai/internal/sim/tuning"
)

// Rules is the read-only rule set an Engine runs against.
type Rules struct {
	Catalogs *catalogs.Catalogs
	Tuning   tuning.Tuning

	machineSide int
}

// LoadRules reads the catalogs and tuning.yaml from configDir.
func LoadRules(configDir string) (*Rules, error) {
	cats, err := catalogs.Load(configDir)
	if err != nil {
		return nil, fmt.Errorf("load catalogs: %w", err)
	}
	tune, err := tuning.Load(filepath.Join(configDir, "tuning.yaml"))
	if err != nil {
		return nil, fmt.Errorf("load tuning: %w", err)
	}
	return NewRules(cats, tune)
}

// NewRules cross-checks tuning against the catalogs.
func NewRules(cats *catalogs.Catalogs, tune tuning.Tuning) (*Rules, error) {
	if cats == nil {
		return nil, fmt.Errorf("rules: nil catalogs")
	}
	if err := tune.Validate(); err != nil {
		return nil, err
	}
	side, err := placement.SideLength(tune.Machine.FloorSpace)
	if err != nil {
		return nil, fmt.Errorf("machine.floor_space: %w", err)
	}
	for _, n := range tune.Start.Nodes {
		if _, ok := cats.Material(n.Resource); !ok {
			return nil, fmt.Errorf("start.nodes: %s extracts unknown material %q", n.ID, n.Resource)
		}
	}
	for _, id := range tune.Start.Discovered {
		if _, ok := cats.Recipe(id); !ok {
			return nil, fmt.Errorf("start.discovered: unknown recipe %q", id)
		}
	}
	discovered := map[string]bool{}
	for _, id := range tune.Start.Discovered {
		discovered[id] = true
	}
	for _, id := range tune.Start.Unlocked {
		if !discovered[id] {
			return nil, fmt.Errorf("start.unlocked: %q is not discovered", id)
		}
	}
	for item := range tune.Start.Inventory {
		if _, ok := cats.Material(item); !ok {
			return nil, fmt.Errorf("start.inventory: unknown material %q", item)
		}
	}
	return &Rules{Catalogs: cats, Tuning: tune, machineSide: side}, nil
}

// Digest fingerprints the catalogs and tuning the rules were built from.
func (r *Rules) Digest() string {
	sum := sha256.Sum256([]byte(r.Catalogs.Digest() + ":" + r.Tuning.Digest()))
	return hex.EncodeToString(sum[:])
}
