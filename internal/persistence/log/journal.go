package log

import (
	"cmp"
	"path/filepath"
	"slices"

	"factorycraft.ai/internal/protocol"
	"factorycraft.ai/internal/sim/factory"
)

// JournalEntry records one command and its outcome. Replaying the OK
// entries in Seq order from the run's start state reproduces Digest.
type JournalEntry struct {
	Seq     uint64              `json:"seq"`
	Tick    uint64              `json:"tick"`
	Command protocol.CommandMsg `json:"command"`
	OK      bool                `json:"ok"`
	Code    string              `json:"code,omitempty"`
	Error   string              `json:"error,omitempty"`
	Digest  string              `json:"digest"`
}

// TickEntry is the per-tick summary stream.
type TickEntry struct {
	RunID   string             `json:"run_id"`
	Report  factory.StepReport `json:"report"`
	Credits int                `json:"credits"`
	Energy  factory.Energy     `json:"energy"`
	Digest  string             `json:"digest"`
}

const (
	journalPrefix = "journal"
	ticksPrefix   = "ticks"

	// Commands are small; cap journal segments so a long run stays
	// readable file by file.
	journalSegmentRecords = 50_000
)

// Journal writes command entries under <runDir>/journal.
type Journal struct{ w *segmentLog[JournalEntry] }

func NewJournal(runDir string) *Journal {
	return &Journal{w: newSegmentLog[JournalEntry](filepath.Join(runDir, "journal"), journalPrefix, journalSegmentRecords)}
}

func (j *Journal) WriteEntry(e JournalEntry) error { return j.w.Append(e) }
func (j *Journal) Close() error                    { return j.w.Close() }

// TickLogger writes one TickEntry per tick under <runDir>/ticks.
type TickLogger struct{ w *segmentLog[TickEntry] }

func NewTickLogger(runDir string) *TickLogger {
	return &TickLogger{w: newSegmentLog[TickEntry](filepath.Join(runDir, "ticks"), ticksPrefix, 0)}
}

func (l *TickLogger) WriteTick(e TickEntry) error { return l.w.Append(e) }
func (l *TickLogger) Close() error                { return l.w.Close() }

// ReadJournal loads every journal segment under runDir. Entries come back
// sorted by Seq.
func ReadJournal(runDir string) ([]JournalEntry, error) {
	out, err := readSegments[JournalEntry](filepath.Join(runDir, "journal"), journalPrefix)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(out, func(a, b JournalEntry) int { return cmp.Compare(a.Seq, b.Seq) })
	return out, nil
}

// ReadTicks loads the tick summaries under runDir in write order.
func ReadTicks(runDir string) ([]TickEntry, error) {
	return readSegments[TickEntry](filepath.Join(runDir, "ticks"), ticksPrefix)
}
