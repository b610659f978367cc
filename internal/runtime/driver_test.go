package runtime

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factorycraft.ai/internal/metrics"
	"factorycraft.ai/internal/persistence/indexdb"
	plog "factorycraft.ai/internal/persistence/log"
	"factorycraft.ai/internal/persistence/snapshot"
	"factorycraft.ai/internal/protocol"
	"factorycraft.ai/internal/sim/factory"
)

func testEngine(t *testing.T) *factory.Engine {
	t.Helper()
	rules, err := factory.LoadRules("../../configs")
	require.NoError(t, err)
	return factory.NewEngine(rules)
}

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func TestDriver_SubmitJournalAndReplay(t *testing.T) {
	e := testEngine(t)
	runDir := t.TempDir()
	start := e.NewState(12345)

	journal := plog.NewJournal(runDir)
	ticks := plog.NewTickLogger(runDir)
	idx, err := indexdb.OpenSQLite(filepath.Join(runDir, "index.sqlite"))
	require.NoError(t, err)
	runID, err := idx.StartRun(context.Background(), start.Seed, e.Rules().Digest())
	require.NoError(t, err)
	promPath := filepath.Join(runDir, "factory.prom")

	d := New(e, start, Options{
		RunID:              runID,
		RunDir:             runDir,
		SnapshotEveryTicks: 5,
		MetricsEveryTicks:  5,
		MetricsTextfile:    promPath,
	}, Sinks{Journal: journal, Ticks: ticks, Index: idx, Metrics: metrics.New()}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	type runResult struct {
		st  factory.State
		err error
	}
	doneCh := make(chan runResult, 1)
	go func() {
		st, err := d.Run(ctx)
		doneCh <- runResult{st, err}
	}()

	cmds := []factory.Command{
		factory.BuildGenerator{Type: "hand_crank", X: 7, Y: 7},
		factory.BuildMachine{X: 0, Y: 0},
		factory.BuildMachine{X: 1, Y: 1},
		factory.AssignRecipe{MachineID: "M1", RecipeID: "planks"},
	}
	for range 10 {
		cmds = append(cmds, factory.AdvanceTick{})
	}
	cmds = append(cmds, factory.Sell{Item: "planks", Quantity: 2})

	var last Result
	for i, c := range cmds {
		res, err := d.Submit(context.Background(), c)
		require.NoError(t, err)
		require.Equal(t, uint64(i+1), res.Seq)
		if i == 2 {
			require.Error(t, res.Err)
			require.Equal(t, protocol.ErrNoSpace, factory.RejectionCode(res.Err))
		} else {
			require.NoError(t, res.Err, c.Kind())
		}
		last = res
	}
	cancel()
	out := <-doneCh
	require.ErrorIs(t, out.err, context.Canceled)
	require.Equal(t, uint64(10), out.st.Tick)
	require.Equal(t, last.Digest, out.st.Digest())

	_, err = d.Submit(context.Background(), factory.AdvanceTick{})
	require.ErrorIs(t, err, ErrStopped)

	require.NoError(t, journal.Close())
	require.NoError(t, ticks.Close())
	require.NoError(t, idx.Close())

	entries, err := plog.ReadJournal(runDir)
	require.NoError(t, err)
	require.Len(t, entries, len(cmds))
	assert.False(t, entries[2].OK)
	assert.Equal(t, protocol.ErrNoSpace, entries[2].Code)

	final, mismatches, err := Replay(e, start, entries)
	require.NoError(t, err)
	require.Empty(t, mismatches)
	require.Equal(t, out.st.Digest(), final.Digest())

	p, err := snapshot.Latest(SnapshotDir(runDir))
	require.NoError(t, err)
	require.Equal(t, snapshot.Path(SnapshotDir(runDir), 10), p)
	_, snapSt, err := snapshot.ReadSnapshot(p)
	require.NoError(t, err)
	require.Equal(t, out.st.Digest(), snapSt.Digest())
	_, err = os.Stat(snapshot.Path(SnapshotDir(runDir), 5))
	require.NoError(t, err)

	prom, err := os.ReadFile(promPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "factorycraft_ticks_total 10")
}

func TestDriver_AutoTickStopsAtMaxTicks(t *testing.T) {
	e := testEngine(t)
	d := New(e, e.NewState(1), Options{TickRateHz: 1000, TickBurst: 20, MaxTicks: 20}, Sinks{}, quietLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	st, err := d.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(20), st.Tick)
	require.NoError(t, e.Rules().CheckInvariants(st))
}

func TestReplay_ReportsDivergence(t *testing.T) {
	e := testEngine(t)
	start := e.NewState(3)
	st := start
	var entries []plog.JournalEntry
	for i, c := range []factory.Command{factory.AdvanceTick{}, factory.AdvanceTick{}, factory.Sell{Item: "wood", Quantity: 1}} {
		next, err := e.Apply(st, c)
		require.NoError(t, err)
		msg, err := factory.MsgFromCommand(c)
		require.NoError(t, err)
		entries = append(entries, plog.JournalEntry{Seq: uint64(i + 1), Command: msg, OK: true, Digest: next.Digest()})
		st = next
	}

	entries[1].Digest = "0000"
	entries[2].OK = false
	_, mismatches, err := Replay(e, start, entries)
	require.NoError(t, err)
	require.Len(t, mismatches, 2)
	assert.Equal(t, uint64(2), mismatches[0].Seq)
	assert.Equal(t, "digest differs", mismatches[0].Reason)
	assert.Equal(t, uint64(3), mismatches[1].Seq)
	assert.Contains(t, mismatches[1].String(), "journal ok=false")
}

func TestManifest_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := Manifest{RunID: "r1", Seed: 9, RulesDigest: "abc", StartSnapshot: "s", CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	require.NoError(t, WriteManifest(dir, m))
	got, err := ReadManifest(dir)
	require.NoError(t, err)
	require.Equal(t, m, got)
}
