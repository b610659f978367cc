// Package digestcodec writes the canonical binary form hashed into state
// digests. All integers are little-endian fixed width; strings are length
// prefixed; maps are emitted in sorted key order.
package digestcodec

import (
	"encoding/binary"
	"math"
	"slices"
)

type Writer interface {
	Write(p []byte) (n int, err error)
}

// Encoder carries the scratch buffer so callers don't have to.
type Encoder struct {
	w   Writer
	tmp [8]byte
}

func New(w Writer) *Encoder { return &Encoder{w: w} }

func (e *Encoder) U64(v uint64) {
	binary.LittleEndian.PutUint64(e.tmp[:], v)
	e.w.Write(e.tmp[:])
}

func (e *Encoder) I64(v int64) { e.U64(uint64(v)) }

func (e *Encoder) Int(v int) { e.U64(uint64(int64(v))) }

// F64 hashes the exact bit pattern, so -0 and 0 differ.
func (e *Encoder) F64(v float64) { e.U64(math.Float64bits(v)) }

func (e *Encoder) Bool(v bool) { e.w.Write([]byte{BoolByte(v)}) }

func (e *Encoder) String(s string) {
	e.U64(uint64(len(s)))
	e.w.Write([]byte(s))
}

func (e *Encoder) Strings(ss []string) {
	e.U64(uint64(len(ss)))
	for _, s := range ss {
		e.String(s)
	}
}

// IntMap emits non-zero entries only, so a missing key and a zero count
// hash the same.
func (e *Encoder) IntMap(m map[string]int) {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if v != 0 {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	e.U64(uint64(len(keys)))
	for _, k := range keys {
		e.String(k)
		e.Int(m[k])
	}
}

func (e *Encoder) FloatMap(m map[string]float64) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	e.U64(uint64(len(keys)))
	for _, k := range keys {
		e.String(k)
		e.F64(m[k])
	}
}

func BoolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
