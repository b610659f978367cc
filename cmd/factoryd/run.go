package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"factorycraft.ai/internal/config"
	"factorycraft.ai/internal/metrics"
	"factorycraft.ai/internal/persistence/indexdb"
	plog "factorycraft.ai/internal/persistence/log"
	"factorycraft.ai/internal/persistence/snapshot"
	"factorycraft.ai/internal/protocol"
	"factorycraft.ai/internal/runtime"
	"factorycraft.ai/internal/sim/factory"
)

type runFlags struct {
	seed     uint32
	maxTicks uint64
	tickRate float64
	resume   string
	noStdin  bool
}

func newRunCommand() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a run and apply JSONL commands from stdin",
		Long: `Start a new run (or resume from the latest snapshot of an earlier one).
Each stdin line is one JSON command such as {"type":"BUILD_MACHINE","x":0,"y":0}.
One JSON result line is written to stdout per command.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				cfg.Seed = f.seed
			}
			if cmd.Flags().Changed("max-ticks") {
				cfg.Run.MaxTicks = f.maxTicks
			}
			if cmd.Flags().Changed("tick-rate") {
				cfg.Run.TickRateHz = f.tickRate
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			var in io.Reader = os.Stdin
			if f.noStdin {
				in = nil
			}
			return runFactory(cfg, f.resume, in, os.Stdout, newLogger())
		},
	}
	cmd.Flags().Uint32Var(&f.seed, "seed", 0, "initial RNG seed (overrides config)")
	cmd.Flags().Uint64Var(&f.maxTicks, "max-ticks", 0, "stop after this tick (0 = no limit)")
	cmd.Flags().Float64Var(&f.tickRate, "tick-rate", 0, "automatic ticks per second (0 = only explicit ADVANCE_TICK)")
	cmd.Flags().StringVar(&f.resume, "resume", "", "run id to resume from its latest snapshot")
	cmd.Flags().BoolVar(&f.noStdin, "no-stdin", false, "do not read commands from stdin")
	return cmd
}

type commandResult struct {
	Seq    uint64 `json:"seq,omitempty"`
	Tick   uint64 `json:"tick"`
	OK     bool   `json:"ok"`
	Code   string `json:"code,omitempty"`
	Error  string `json:"error,omitempty"`
	Digest string `json:"digest,omitempty"`
}

func runFactory(cfg *config.Config, resumeID string, in io.Reader, out io.Writer, logger *log.Logger) error {
	rules, err := factory.LoadRules(cfg.RulesDir)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}
	engine := factory.NewEngine(rules)

	start := engine.NewState(cfg.Seed)
	var resumedFrom string
	if resumeID != "" {
		p, err := snapshot.Latest(runtime.SnapshotDir(cfg.RunDir(resumeID)))
		if err != nil {
			return err
		}
		if p == "" {
			return fmt.Errorf("run %s has no snapshots", resumeID)
		}
		h, st, err := snapshot.ReadSnapshot(p)
		if err != nil {
			return fmt.Errorf("read snapshot: %w", err)
		}
		if h.RulesDigest != rules.Digest() {
			logger.Printf("warning: snapshot rules digest %s differs from loaded rules %s", h.RulesDigest, rules.Digest())
		}
		start, resumedFrom = st, p
		logger.Printf("resuming run %s from tick %d", resumeID, h.Tick)
	}

	ctx, cancel := signalContext()
	defer cancel()

	var idx *indexdb.SQLiteIndex
	runID := uuid.NewString()
	if cfg.Index.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.Index.Path), 0o755); err != nil {
			return err
		}
		idx, err = indexdb.OpenSQLite(cfg.Index.Path)
		if err != nil {
			return fmt.Errorf("open index: %w", err)
		}
		defer idx.Close()
		if err := idx.UpsertCatalogs(ctx, rules); err != nil {
			logger.Printf("index catalogs: %v", err)
		}
		if runID, err = idx.StartRun(ctx, start.Seed, rules.Digest()); err != nil {
			return fmt.Errorf("index run: %w", err)
		}
	}

	runDir := cfg.RunDir(runID)
	startSnap := snapshot.Path(runtime.SnapshotDir(runDir), start.Tick)
	if err := snapshot.WriteSnapshot(startSnap, snapshot.NewHeader(runID, rules.Digest(), start), start); err != nil {
		return fmt.Errorf("initial snapshot: %w", err)
	}
	if err := runtime.WriteManifest(runDir, runtime.Manifest{
		RunID:         runID,
		Seed:          start.Seed,
		RulesDigest:   rules.Digest(),
		StartTick:     start.Tick,
		StartSnapshot: filepath.Join("snapshots", filepath.Base(startSnap)),
		ResumedFrom:   resumedFrom,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("manifest: %w", err)
	}

	journal := plog.NewJournal(runDir)
	defer journal.Close()
	ticks := plog.NewTickLogger(runDir)
	defer ticks.Close()

	d := runtime.New(engine, start, runtime.Options{
		RunID:              runID,
		RunDir:             runDir,
		TickRateHz:         cfg.Run.TickRateHz,
		TickBurst:          cfg.Run.TickBurst,
		MaxTicks:           cfg.Run.MaxTicks,
		SnapshotEveryTicks: cfg.Run.SnapshotEveryTicks,
		MetricsEveryTicks:  cfg.Metrics.EveryTicks,
		MetricsTextfile:    cfg.Metrics.Textfile,
		InboxSize:          cfg.Run.InboxSize,
	}, runtime.Sinks{
		Journal: journal,
		Ticks:   ticks,
		Index:   idx,
		Metrics: metrics.New(),
	}, log.New(logger.Writer(), "[runtime] ", log.LstdFlags|log.Lmicroseconds))

	logger.Printf("run %s in %s", runID, runDir)

	if in != nil {
		go func() {
			err := feedCommands(ctx, d, in, out)
			if err != nil && !errors.Is(err, runtime.ErrStopped) && !errors.Is(err, context.Canceled) {
				logger.Printf("stdin: %v", err)
			}
			// Without automatic ticks nothing else can advance the run.
			if cfg.Run.TickRateHz == 0 {
				cancel()
			}
		}()
	}

	final, err := d.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Printf("final tick=%d credits=%d digest=%s", final.Tick, final.Credits, final.Digest())
	if idx != nil && idx.Dropped() > 0 {
		logger.Printf("index dropped %d writes", idx.Dropped())
	}
	return nil
}

func feedCommands(ctx context.Context, d *runtime.Driver, in io.Reader, out io.Writer) error {
	enc := json.NewEncoder(out)
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		cmd, err := factory.DecodeCommand(line)
		if err != nil {
			code := factory.RejectionCode(err)
			var de *protocol.DecodeError
			if errors.As(err, &de) {
				code = de.Code
			}
			if code == "" {
				code = protocol.ErrProtoBadRequest
			}
			if err := enc.Encode(commandResult{Code: code, Error: err.Error()}); err != nil {
				return err
			}
			continue
		}
		res, err := d.Submit(ctx, cmd)
		if err != nil {
			return err
		}
		r := commandResult{Seq: res.Seq, Tick: res.Tick, OK: res.Err == nil, Digest: res.Digest}
		if res.Err != nil {
			r.Code = factory.RejectionCode(res.Err)
			r.Error = res.Err.Error()
		}
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return sc.Err()
}
