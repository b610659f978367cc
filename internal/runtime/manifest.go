package runtime

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const manifestName = "run.json"

// Manifest describes where a run starts so it can be replayed.
// StartSnapshot is relative to the run directory.
type Manifest struct {
	RunID         string    `json:"run_id"`
	Seed          uint32    `json:"seed"`
	RulesDigest   string    `json:"rules_digest"`
	StartTick     uint64    `json:"start_tick"`
	StartSnapshot string    `json:"start_snapshot"`
	ResumedFrom   string    `json:"resumed_from,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func WriteManifest(runDir string, m Manifest) error {
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(runDir, manifestName), append(b, '\n'), 0o644)
}

func ReadManifest(runDir string) (Manifest, error) {
	var m Manifest
	b, err := os.ReadFile(filepath.Join(runDir, manifestName))
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return m, fmt.Errorf("%s: %w", manifestName, err)
	}
	return m, nil
}
