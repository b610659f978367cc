package tuning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"factorycraft.ai/internal/sim/factory/placement"
)

type Tuning struct {
	Start    Start    `yaml:"start"`
	Machine  Machine  `yaml:"machine"`
	Floor    Floor    `yaml:"floor"`
	Storage  Storage  `yaml:"storage"`
	Market   Market   `yaml:"market"`
	Research Research `yaml:"research"`
}

// Start describes the state a fresh run begins from.
type Start struct {
	Credits        int                `yaml:"credits" validate:"min=0"`
	InventorySpace int                `yaml:"inventory_space" validate:"min=1"`
	FloorWidth     int                `yaml:"floor_width" validate:"min=1"`
	FloorHeight    int                `yaml:"floor_height" validate:"min=1"`
	Discovered     []string           `yaml:"discovered"`
	Unlocked       []string           `yaml:"unlocked"`
	Inventory      map[string]int     `yaml:"inventory"`
	Popularity     map[string]float64 `yaml:"popularity"`
	Nodes          []Node             `yaml:"nodes" validate:"dive"`
}

type Node struct {
	ID       string `yaml:"id" validate:"required"`
	Resource string `yaml:"resource" validate:"required"`
	Rate     int    `yaml:"rate" validate:"min=0"`
	Active   bool   `yaml:"active"`
}

type Machine struct {
	Cost       int `yaml:"cost" validate:"min=0"`
	FloorSpace int `yaml:"floor_space" validate:"min=1"`
	EnergyDraw int `yaml:"energy_draw" validate:"min=0"`
}

type Floor struct {
	InitialChunk  int `yaml:"initial_chunk" validate:"min=1"`
	InitialTarget int `yaml:"initial_target" validate:"min=1"`
	CostPerCell   int `yaml:"cost_per_cell" validate:"min=0"`
}

type Storage struct {
	Step     int     `yaml:"step" validate:"min=1"`
	BaseCost int     `yaml:"base_cost" validate:"min=0"`
	Growth   float64 `yaml:"growth" validate:"gte=1"`
}

type Market struct {
	RecoveryRate  float64 `yaml:"recovery_rate" validate:"gte=0"`
	DecayRate     float64 `yaml:"decay_rate" validate:"gte=0"`
	MinPopularity float64 `yaml:"min_popularity" validate:"gte=0"`
	MaxPopularity float64 `yaml:"max_popularity" validate:"gtfield=MinPopularity"`
	// RecoverSoldItems keeps recovering items sold during the tick. When false,
	// items sold since the previous tick skip one recovery step.
	RecoverSoldItems bool `yaml:"recover_sold_items"`
}

type Research struct {
	EnergyCost        int     `yaml:"energy_cost" validate:"min=0"`
	DiscoveryChance   float64 `yaml:"discovery_chance" validate:"gte=0,lte=1"`
	ProximityBonus    float64 `yaml:"proximity_bonus" validate:"gte=0"`
	UnlockCostPerTier int     `yaml:"unlock_cost_per_tier" validate:"min=0"`
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	return Parse(raw)
}

func Parse(raw []byte) (Tuning, error) {
	var t Tuning
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

var validate = validator.New()

// Validate checks field ranges and that the machine footprint is a perfect square.
func (t Tuning) Validate() error {
	if err := validate.Struct(t); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(verrs))
			for _, e := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s (value %v)", e.Namespace(), e.Tag(), e.Value()))
			}
			return fmt.Errorf("invalid tuning: %s", strings.Join(msgs, "; "))
		}
		return err
	}
	if _, err := placement.SideLength(t.Machine.FloorSpace); err != nil {
		return fmt.Errorf("machine.floor_space: %w", err)
	}
	seen := map[string]bool{}
	for _, n := range t.Start.Nodes {
		if seen[n.ID] {
			return fmt.Errorf("start.nodes: duplicate id %q", n.ID)
		}
		seen[n.ID] = true
	}
	return nil
}

// Digest fingerprints the parsed values, so formatting changes in the YAML
// file do not change it.
func (t Tuning) Digest() string {
	b, _ := json.Marshal(t)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
