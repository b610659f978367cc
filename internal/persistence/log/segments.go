// Package log writes the run journal: zstd-compressed JSONL segments holding
// every applied command and a summary of every tick.
package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const segmentExt = ".jsonl.zst"

// segmentLog appends records of type T to files named
// <prefix>-<hour>-<part>.jsonl.zst. A segment is never reopened: the hour
// rolling over, the record cap, or a new process each start the next part,
// so file-name order is write order.
type segmentLog[T any] struct {
	dir        string
	prefix     string
	maxRecords int // 0 means no cap
	now        func() time.Time

	mu  sync.Mutex
	cur *segment
}

type segment struct {
	hour    string
	records int
	f       *os.File
	enc     *zstd.Encoder
	bw      *bufio.Writer
}

func newSegmentLog[T any](dir, prefix string, maxRecords int) *segmentLog[T] {
	return &segmentLog[T]{dir: dir, prefix: prefix, maxRecords: maxRecords, now: time.Now}
}

func (l *segmentLog[T]) Append(rec T) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	b = append(b, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	hour := l.now().UTC().Format("2006010215")
	if l.cur == nil || l.cur.hour != hour || (l.maxRecords > 0 && l.cur.records >= l.maxRecords) {
		if err := l.rollLocked(hour); err != nil {
			return err
		}
	}
	if _, err := l.cur.bw.Write(b); err != nil {
		return err
	}
	l.cur.records++
	return l.cur.bw.Flush()
}

func (l *segmentLog[T]) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	err := l.cur.close()
	l.cur = nil
	return err
}

func (l *segmentLog[T]) rollLocked(hour string) error {
	if err := l.cur.close(); err != nil {
		return err
	}
	l.cur = nil
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return err
	}
	for part := 0; ; part++ {
		path := filepath.Join(l.dir, fmt.Sprintf("%s-%s-%04d%s", l.prefix, hour, part, segmentExt))
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return err
		}
		enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			_ = f.Close()
			return err
		}
		l.cur = &segment{hour: hour, f: f, enc: enc, bw: bufio.NewWriterSize(enc, 128*1024)}
		return nil
	}
}

// close flushes and finishes the zstd frame; a nil segment is a no-op.
func (s *segment) close() error {
	if s == nil {
		return nil
	}
	flushErr := s.bw.Flush()
	encErr := s.enc.Close()
	fileErr := s.f.Close()
	return errors.Join(flushErr, encErr, fileErr)
}

// readSegments decodes every record under dir written with prefix, in
// file-name order.
func readSegments[T any](dir, prefix string) ([]T, error) {
	files, err := filepath.Glob(filepath.Join(dir, prefix+"-*"+segmentExt))
	if err != nil {
		return nil, err
	}
	slices.Sort(files)

	var out []T
	for _, path := range files {
		if err := readSegment(path, func(line []byte) error {
			var rec T
			if err := json.Unmarshal(line, &rec); err != nil {
				return err
			}
			out = append(out, rec)
			return nil
		}); err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
	}
	return out, nil
}

func readSegment(path string, fn func([]byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		if err := fn(sc.Bytes()); err != nil {
			return err
		}
	}
	return sc.Err()
}
