package binlog

import (
	"errors"
	"fmt"
)

var (
	ErrLengthMismatch = errors.New("index/derivative length mismatch")
	// ErrZeroTag rejects a local index or global label of 0, which would
	// read back as a block marker.
	ErrZeroTag = errors.New("zero local index or label")
)

// State of a Record.
type State int

const (
	Empty State = iota
	Accumulating
)

func (s State) String() string {
	if s == Accumulating {
		return "accumulating"
	}
	return "empty"
}

// Record accumulates the blocks of one trajectory as the two parallel
// arrays of the Millepede binary layout. Element 0 of both arrays is padding.
type Record struct {
	floats []float32
	ints   []int32
	blocks int
}

func NewRecord() *Record {
	r := &Record{}
	r.Reset()
	return r
}

// AddBlock appends one measurement: its value, the local derivatives, its
// error and the non-zero global derivatives, in that order. Global
// derivatives that are exactly zero are left out; local ones never are.
func (r *Record) AddBlock(value, err float32, localIdx []int32, localDer []float64, labels []int32, globalDer []float64) error {
	if len(localIdx) != len(localDer) {
		return fmt.Errorf("%w: %d local indices, %d derivatives", ErrLengthMismatch, len(localIdx), len(localDer))
	}
	if len(labels) != len(globalDer) {
		return fmt.Errorf("%w: %d labels, %d derivatives", ErrLengthMismatch, len(labels), len(globalDer))
	}
	for _, idx := range localIdx {
		if idx == 0 {
			return fmt.Errorf("%w: local index", ErrZeroTag)
		}
	}
	for _, l := range labels {
		if l == 0 {
			return fmt.Errorf("%w: global label", ErrZeroTag)
		}
	}
	if r.floats == nil {
		r.Reset()
	}

	r.ints = append(r.ints, 0)
	r.floats = append(r.floats, value)
	for i, idx := range localIdx {
		r.ints = append(r.ints, idx)
		r.floats = append(r.floats, float32(localDer[i]))
	}

	r.ints = append(r.ints, 0)
	r.floats = append(r.floats, err)
	for i, l := range labels {
		if globalDer[i] == 0 {
			continue
		}
		r.ints = append(r.ints, l)
		r.floats = append(r.floats, float32(globalDer[i]))
	}

	r.blocks++
	return nil
}

// Reset drops all blocks and reseeds the padding element.
func (r *Record) Reset() {
	if r.floats == nil {
		r.floats = make([]float32, 1, 64)
		r.ints = make([]int32, 1, 64)
	}
	r.floats = r.floats[:1]
	r.ints = r.ints[:1]
	r.floats[0] = 0
	r.ints[0] = 0
	r.blocks = 0
}

func (r *Record) State() State {
	if r.blocks > 0 {
		return Accumulating
	}
	return Empty
}

// Blocks returns the number of blocks added since the last reset.
func (r *Record) Blocks() int { return r.blocks }

// Len returns N, the length of each of the two arrays including padding.
func (r *Record) Len() int {
	if r.floats == nil {
		return 1
	}
	return len(r.floats)
}

// Floats returns the payload array. The slice aliases the record.
func (r *Record) Floats() []float32 { return r.floats }

// Ints returns the tag array. The slice aliases the record.
func (r *Record) Ints() []int32 { return r.ints }
