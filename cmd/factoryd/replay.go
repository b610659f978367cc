package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	plog "factorycraft.ai/internal/persistence/log"
	"factorycraft.ai/internal/persistence/snapshot"
	"factorycraft.ai/internal/runtime"
	"factorycraft.ai/internal/sim/factory"
)

func newReplayCommand() *cobra.Command {
	var (
		runID  string
		runDir string
		strict bool
	)
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-apply a run's journal and verify every digest",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if runDir == "" {
				if runID == "" {
					return fmt.Errorf("one of --run or --dir is required")
				}
				runDir = cfg.RunDir(runID)
			}

			m, err := runtime.ReadManifest(runDir)
			if err != nil {
				return fmt.Errorf("read manifest: %w", err)
			}
			rules, err := factory.LoadRules(cfg.RulesDir)
			if err != nil {
				return fmt.Errorf("load rules: %w", err)
			}
			if rules.Digest() != m.RulesDigest {
				msg := fmt.Sprintf("rules digest %s differs from the run's %s", rules.Digest(), m.RulesDigest)
				if strict {
					return fmt.Errorf("%s", msg)
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", msg)
			}

			snapPath := m.StartSnapshot
			if !filepath.IsAbs(snapPath) {
				snapPath = filepath.Join(runDir, snapPath)
			}
			h, start, err := snapshot.ReadSnapshot(snapPath)
			if err != nil {
				return fmt.Errorf("read start snapshot: %w", err)
			}
			entries, err := plog.ReadJournal(runDir)
			if err != nil {
				return fmt.Errorf("read journal: %w", err)
			}

			final, mismatches, err := runtime.Replay(factory.NewEngine(rules), start, entries)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, mm := range mismatches {
				fmt.Fprintln(out, mm.String())
			}
			if len(mismatches) > 0 {
				return fmt.Errorf("replay diverged: %d of %d commands", len(mismatches), len(entries))
			}
			fmt.Fprintf(out, "replay ok: run=%s commands=%d ticks %d..%d digest=%s\n",
				m.RunID, len(entries), h.Tick, final.Tick, final.Digest())
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "run id under the configured data dir")
	cmd.Flags().StringVar(&runDir, "dir", "", "run directory (overrides --run)")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when the loaded rules differ from the run's")
	return cmd
}
