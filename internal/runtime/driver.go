// Package runtime drives a factory run: it owns the current State, serializes
// commands through one goroutine, issues automatic ticks at a limited rate
// and feeds the journal, index, snapshot and metrics sinks.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"factorycraft.ai/internal/metrics"
	"factorycraft.ai/internal/persistence/indexdb"
	plog "factorycraft.ai/internal/persistence/log"
	"factorycraft.ai/internal/persistence/snapshot"
	"factorycraft.ai/internal/protocol"
	"factorycraft.ai/internal/sim/factory"
)

var ErrStopped = errors.New("driver stopped")

type Options struct {
	RunID  string
	RunDir string

	// TickRateHz > 0 enables automatic ticks.
	TickRateHz float64
	TickBurst  int
	// MaxTicks > 0 ends the run once the state reaches that tick.
	MaxTicks           uint64
	SnapshotEveryTicks uint64
	MetricsEveryTicks  uint64
	MetricsTextfile    string
	InboxSize          int
}

// Sinks are optional; nil fields are skipped.
type Sinks struct {
	Journal *plog.Journal
	Ticks   *plog.TickLogger
	Index   *indexdb.SQLiteIndex
	Metrics *metrics.Collector
}

// Result is what Submit reports back for one command.
type Result struct {
	Seq    uint64
	Tick   uint64
	Digest string
	Err    error
}

type request struct {
	cmd   factory.Command
	reply chan Result
}

type Driver struct {
	engine *factory.Engine
	opts   Options
	sinks  Sinks
	logger *log.Logger

	st  factory.State
	seq uint64

	inbox chan request
	done  chan struct{}
}

func New(engine *factory.Engine, start factory.State, opts Options, sinks Sinks, logger *log.Logger) *Driver {
	if opts.InboxSize <= 0 {
		opts.InboxSize = 256
	}
	if opts.TickBurst <= 0 {
		opts.TickBurst = 1
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[runtime] ", log.LstdFlags|log.Lmicroseconds)
	}
	return &Driver{
		engine: engine,
		opts:   opts,
		sinks:  sinks,
		logger: logger,
		st:     start,
		inbox:  make(chan request, opts.InboxSize),
		done:   make(chan struct{}),
	}
}

// Submit queues cmd and waits until the run loop has applied it.
func (d *Driver) Submit(ctx context.Context, cmd factory.Command) (Result, error) {
	reply := make(chan Result, 1)
	select {
	case d.inbox <- request{cmd: cmd, reply: reply}:
	case <-d.done:
		return Result{}, ErrStopped
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	select {
	case r := <-reply:
		return r, nil
	case <-d.done:
		return Result{}, ErrStopped
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Done is closed when Run returns.
func (d *Driver) Done() <-chan struct{} { return d.done }

// Run applies commands until ctx is cancelled or MaxTicks is reached, then
// writes a final snapshot and returns the last State.
func (d *Driver) Run(ctx context.Context) (factory.State, error) {
	defer close(d.done)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if d.opts.TickRateHz > 0 {
		lim := rate.NewLimiter(rate.Limit(d.opts.TickRateHz), d.opts.TickBurst)
		go d.autoTick(ctx, lim)
	}
	d.logger.Printf("run %s started at tick %d (seed %d)", d.opts.RunID, d.st.Tick, d.st.Seed)

	var err error
loop:
	for !d.finished() {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break loop
		case req := <-d.inbox:
			res := d.apply(req.cmd)
			if req.reply != nil {
				req.reply <- res
			}
		}
	}

	if serr := d.snapshot(); serr != nil {
		d.logger.Printf("final snapshot: %v", serr)
	}
	d.flushMetrics()
	d.logger.Printf("run %s stopped at tick %d, %d commands", d.opts.RunID, d.st.Tick, d.seq)
	return d.st, err
}

func (d *Driver) finished() bool {
	return d.opts.MaxTicks > 0 && d.st.Tick >= d.opts.MaxTicks
}

func (d *Driver) autoTick(ctx context.Context, lim *rate.Limiter) {
	for {
		if err := lim.Wait(ctx); err != nil {
			return
		}
		select {
		case d.inbox <- request{cmd: factory.AdvanceTick{}}:
		case <-ctx.Done():
			return
		}
	}
}

func (d *Driver) apply(cmd factory.Command) Result {
	prev := d.st
	start := time.Now()

	var (
		next factory.State
		rep  factory.StepReport
		err  error
		tick bool
	)
	if _, tick = cmd.(factory.AdvanceTick); tick {
		next, rep = d.engine.Step(prev)
	} else {
		next, err = d.engine.Apply(prev, cmd)
	}
	took := time.Since(start)

	d.st = next
	d.seq++
	res := Result{Seq: d.seq, Tick: next.Tick, Digest: next.Digest(), Err: err}
	code := factory.RejectionCode(err)
	if err != nil && code == "" {
		code = protocol.ErrInternal
	}

	kind := protocol.TypeAdvanceTick
	if cmd != nil {
		kind = cmd.Kind()
	}
	if err != nil {
		d.logger.Printf("seq %d %s rejected: %s %v", d.seq, kind, code, err)
	}

	msg, merr := factory.MsgFromCommand(cmd)
	if merr != nil {
		msg = protocol.CommandMsg{Type: kind}
	}
	entry := plog.JournalEntry{
		Seq:     d.seq,
		Tick:    prev.Tick,
		Command: msg,
		OK:      err == nil,
		Code:    code,
		Digest:  res.Digest,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if d.sinks.Journal != nil {
		if jerr := d.sinks.Journal.WriteEntry(entry); jerr != nil {
			d.logger.Printf("journal: %v", jerr)
		}
	}
	d.sinks.Index.WriteCommand(d.opts.RunID, entry)
	if d.sinks.Metrics != nil {
		d.sinks.Metrics.ObserveCommand(kind, code, took)
	}

	if tick {
		d.afterTick(rep)
	}
	return res
}

func (d *Driver) afterTick(rep factory.StepReport) {
	te := plog.TickEntry{
		RunID:   d.opts.RunID,
		Report:  rep,
		Credits: d.st.Credits,
		Energy:  d.st.Energy,
		Digest:  d.st.Digest(),
	}
	if d.sinks.Ticks != nil {
		if err := d.sinks.Ticks.WriteTick(te); err != nil {
			d.logger.Printf("tick log: %v", err)
		}
	}
	d.sinks.Index.WriteTick(te)
	if d.sinks.Metrics != nil {
		d.sinks.Metrics.ObserveTick(rep)
	}
	if rep.Discovered != "" {
		d.logger.Printf("tick %d: discovered %s", rep.Tick, rep.Discovered)
	}

	if n := d.opts.SnapshotEveryTicks; n > 0 && d.st.Tick%n == 0 {
		if err := d.snapshot(); err != nil {
			d.logger.Printf("snapshot: %v", err)
		}
	}
	if n := d.opts.MetricsEveryTicks; n > 0 && d.st.Tick%n == 0 {
		d.flushMetrics()
	}
}

func (d *Driver) snapshot() error {
	if d.opts.RunDir == "" {
		return nil
	}
	path := snapshot.Path(SnapshotDir(d.opts.RunDir), d.st.Tick)
	h := snapshot.NewHeader(d.opts.RunID, d.engine.Rules().Digest(), d.st)
	if err := snapshot.WriteSnapshot(path, h, d.st); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	d.sinks.Index.RecordSnapshot(path, h, d.st)
	return nil
}

func (d *Driver) flushMetrics() {
	if d.sinks.Metrics == nil {
		return
	}
	d.sinks.Metrics.ObserveState(d.st)
	if d.opts.MetricsTextfile == "" {
		return
	}
	if err := d.sinks.Metrics.WriteTextfile(d.opts.MetricsTextfile); err != nil {
		d.logger.Printf("metrics: %v", err)
	}
}

func SnapshotDir(runDir string) string { return filepath.Join(runDir, "snapshots") }
