package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"factorycraft.ai/internal/config"
)

var configPath string

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "factoryd",
		Short: "Deterministic factory simulation driver",
		Long: `factoryd runs the factory simulation, records every command in a
journal and replays journals to verify determinism.

Examples:
  factoryd run --seed 12345 --max-ticks 500 < commands.jsonl
  factoryd replay --run <run-id>
  factoryd inspect data/runs/<run-id>/snapshots/000000000500.snap.zst
  factoryd rules`,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to factoryd.yaml (default: ./factoryd.yaml or ./configs/factoryd.yaml)")

	root.AddCommand(newRunCommand())
	root.AddCommand(newReplayCommand())
	root.AddCommand(newInspectCommand())
	root.AddCommand(newRulesCommand())
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

func newLogger() *log.Logger {
	return log.New(os.Stderr, "[factoryd] ", log.LstdFlags|log.Lmicroseconds)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(ch)
	}()
	return ctx, cancel
}
