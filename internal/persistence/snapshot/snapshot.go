// Package snapshot stores factory states as zstd-compressed files: one JSON
// header line followed by the gob-encoded State.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"factorycraft.ai/internal/sim/factory"
)

const Version = 1

const fileSuffix = ".snap.zst"

var ErrDigestMismatch = errors.New("snapshot digest mismatch")

type Header struct {
	Version     int    `json:"version"`
	RunID       string `json:"run_id"`
	Tick        uint64 `json:"tick"`
	Seed        uint32 `json:"seed"`
	RulesDigest string `json:"rules_digest"`
	StateDigest string `json:"state_digest"`
}

// NewHeader fills the tick, seed and digest fields from st.
func NewHeader(runID, rulesDigest string, st factory.State) Header {
	return Header{
		Version:     Version,
		RunID:       runID,
		Tick:        st.Tick,
		Seed:        st.Seed,
		RulesDigest: rulesDigest,
		StateDigest: st.Digest(),
	}
}

// Path is where the snapshot for tick lives under dir. Zero padding keeps
// lexical and numeric order the same.
func Path(dir string, tick uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%012d%s", tick, fileSuffix))
}

func WriteSnapshot(path string, h Header, st factory.State) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := encode(f, h, st); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func encode(w io.Writer, h Header, st factory.State) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)

	hb, _ := json.Marshal(h)
	if _, err := bw.Write(hb); err != nil {
		enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&st); err != nil {
		enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// ReadSnapshot decodes path and checks the state against the header digest.
func ReadSnapshot(path string) (Header, factory.State, error) {
	var (
		h  Header
		st factory.State
	)
	f, err := os.Open(path)
	if err != nil {
		return h, st, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, st, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return h, st, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, st, fmt.Errorf("decode header: %w", err)
	}
	if h.Version != Version {
		return h, st, fmt.Errorf("unsupported snapshot version %d", h.Version)
	}
	if err := gob.NewDecoder(br).Decode(&st); err != nil {
		return h, st, fmt.Errorf("gob decode: %w", err)
	}
	// gob drops empty maps; Clone restores the non-nil ones the engine expects.
	st = st.Clone()
	if got := st.Digest(); got != h.StateDigest {
		return h, st, fmt.Errorf("%w: header %s, state %s", ErrDigestMismatch, h.StateDigest, got)
	}
	return h, st, nil
}

// Latest returns the highest-tick snapshot in dir, or "" when there is none.
func Latest(dir string) (string, error) {
	ents, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	var ticks []uint64
	for _, e := range ents {
		name, ok := strings.CutSuffix(e.Name(), fileSuffix)
		if !ok || e.IsDir() {
			continue
		}
		t, err := strconv.ParseUint(name, 10, 64)
		if err != nil {
			continue
		}
		ticks = append(ticks, t)
	}
	if len(ticks) == 0 {
		return "", nil
	}
	return Path(dir, slices.Max(ticks)), nil
}

// WriteJSON dumps st as indented JSON, for diffing two runs by eye.
func WriteJSON(w io.Writer, st factory.State) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(st)
}
