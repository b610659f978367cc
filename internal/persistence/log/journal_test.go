package log

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"factorycraft.ai/internal/protocol"
	"factorycraft.ai/internal/sim/factory"
)

func TestJournal_RoundTripAcrossRotation(t *testing.T) {
	dir := t.TempDir()
	j := NewJournal(dir)
	clock := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	j.w.now = func() time.Time { return clock }

	for i := range 6 {
		if i == 3 {
			clock = clock.Add(2 * time.Minute)
		}
		require.NoError(t, j.WriteEntry(JournalEntry{
			Seq:     uint64(i + 1),
			Tick:    uint64(i / 2),
			Command: protocol.CommandMsg{Type: protocol.TypeSell, Item: "wood", Quantity: i + 1},
			OK:      true,
			Digest:  "d",
		}))
	}
	require.NoError(t, j.Close())

	files, err := filepath.Glob(filepath.Join(dir, "journal", "*.jsonl.zst"))
	require.NoError(t, err)
	require.Len(t, files, 2)

	got, err := ReadJournal(dir)
	require.NoError(t, err)
	require.Len(t, got, 6)
	for i, e := range got {
		require.Equal(t, uint64(i+1), e.Seq)
		require.Equal(t, i+1, e.Command.Quantity)
	}
}

func TestJournal_ReopenStartsNewSegment(t *testing.T) {
	dir := t.TempDir()
	clock := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for seq := uint64(1); seq <= 2; seq++ {
		j := NewJournal(dir)
		j.w.now = func() time.Time { return clock }
		require.NoError(t, j.WriteEntry(JournalEntry{Seq: seq, Command: protocol.CommandMsg{Type: protocol.TypeAdvanceTick}}))
		require.NoError(t, j.Close())
	}

	files, err := filepath.Glob(filepath.Join(dir, "journal", "*.jsonl.zst"))
	require.NoError(t, err)
	require.Equal(t, []string{"journal-2026030110-0000.jsonl.zst", "journal-2026030110-0001.jsonl.zst"},
		[]string{filepath.Base(files[0]), filepath.Base(files[1])})

	got, err := ReadJournal(dir)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, uint64(2), got[1].Seq)
}

func TestJournal_RecordCapRollsSegment(t *testing.T) {
	dir := t.TempDir()
	j := NewJournal(dir)
	j.w.maxRecords = 2
	j.w.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	for seq := uint64(1); seq <= 5; seq++ {
		require.NoError(t, j.WriteEntry(JournalEntry{Seq: seq}))
	}
	require.NoError(t, j.Close())

	files, err := filepath.Glob(filepath.Join(dir, "journal", "*.jsonl.zst"))
	require.NoError(t, err)
	require.Len(t, files, 3)

	got, err := ReadJournal(dir)
	require.NoError(t, err)
	require.Len(t, got, 5)
	require.Equal(t, uint64(5), got[4].Seq)
}

func TestTickLogger_ReadTicksInWriteOrder(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir)
	for tick := uint64(1); tick <= 3; tick++ {
		require.NoError(t, l.WriteTick(TickEntry{RunID: "r", Report: factory.StepReport{Tick: tick}, Credits: int(tick) * 10}))
	}
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	got, err := ReadTicks(dir)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, e := range got {
		require.Equal(t, uint64(i+1), e.Report.Tick)
		require.Equal(t, (i+1)*10, e.Credits)
	}
}

func TestReadJournal_Empty(t *testing.T) {
	got, err := ReadJournal(t.TempDir())
	require.NoError(t, err)
	require.Empty(t, got)
}
