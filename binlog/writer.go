package binlog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
)

const (
	DefaultFileName = "millepedeData.bin"

	headerLen  = 4
	entryBytes = 8 // one float32 payload plus one int32 tag
)

var (
	ErrStreamBroken = errors.New("output stream broken")
	ErrClosed       = errors.New("writer closed")
)

// FlushStats summarises what a Writer has written so far.
type FlushStats struct {
	Records     int   `json:"records"`
	Blocks      int   `json:"blocks"`
	Entries     int   `json:"entries"`
	Bytes       int64 `json:"bytes"`
	LastBlocks  int   `json:"last_blocks"`
	LastEntries int   `json:"last_entries"`
}

// Writer owns the output stream of one alignment run. Each Flush writes one
// record:
//
//	int32 N*8 | N x float32 payload | N x int32 tags
//
// all little-endian. The header counts bytes of the two arrays, not words.
type Writer struct {
	mu      sync.Mutex
	w       io.Writer
	buf     []byte
	broken  error
	closed  bool
	stats   FlushStats
	onFlush []func(FlushStats)
}

// Create truncates or creates path and returns a Writer on it.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return NewWriter(f), nil
}

// NewWriter wraps w. If w is an io.Closer, Close closes it.
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		w:   w,
		buf: make([]byte, 1024), // reused between records
	}
}

// OnFlush registers f to be called after every successful Flush.
func (mw *Writer) OnFlush(f func(FlushStats)) {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	mw.onFlush = append(mw.onFlush, f)
}

// Stats returns a snapshot of the running totals.
func (mw *Writer) Stats() FlushStats {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return mw.stats
}

// Flush writes r as one record and resets it. An empty record is not
// written. On error r is left as it was so the caller can retry; a write
// that got part of the record out leaves the stream unusable and every
// later Flush returns ErrStreamBroken.
func (mw *Writer) Flush(r *Record) error {
	mw.mu.Lock()
	if mw.closed {
		mw.mu.Unlock()
		return ErrClosed
	}
	if mw.broken != nil {
		err := mw.broken
		mw.mu.Unlock()
		return err
	}
	if r.State() == Empty {
		mw.mu.Unlock()
		return nil
	}

	n := r.Len()
	recordLen := n * entryBytes
	if recordLen > math.MaxInt32 {
		mw.mu.Unlock()
		return fmt.Errorf("record of %d entries too large", n)
	}
	need := headerLen + recordLen
	if cap(mw.buf) < need {
		mw.buf = make([]byte, 2*need)
	}
	b := mw.buf[:need]

	binary.LittleEndian.PutUint32(b[0:], uint32(recordLen))
	off := headerLen
	for _, f := range r.Floats() {
		binary.LittleEndian.PutUint32(b[off:], math.Float32bits(f))
		off += 4
	}
	for _, v := range r.Ints() {
		binary.LittleEndian.PutUint32(b[off:], uint32(v))
		off += 4
	}

	written, err := mw.w.Write(b)
	if err == nil && written < need {
		err = io.ErrShortWrite
	}
	if err != nil {
		if written > 0 {
			mw.broken = fmt.Errorf("%w: wrote %d of %d bytes: %v", ErrStreamBroken, written, need, err)
			err = mw.broken
		} else {
			err = fmt.Errorf("write record: %w", err)
		}
		mw.mu.Unlock()
		return err
	}

	mw.stats.Records++
	mw.stats.Blocks += r.Blocks()
	mw.stats.Entries += n
	mw.stats.Bytes += int64(need)
	mw.stats.LastBlocks = r.Blocks()
	mw.stats.LastEntries = n
	stats := mw.stats
	hooks := mw.onFlush
	mw.mu.Unlock()

	r.Reset()
	for _, f := range hooks {
		f(stats)
	}
	return nil
}

// Close closes the underlying stream. Only the first call has an effect.
func (mw *Writer) Close() error {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	if mw.closed {
		return nil
	}
	mw.closed = true
	if c, ok := mw.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// WithFile creates path, hands the Writer to fn and closes it afterwards,
// whether fn fails or not.
func WithFile(path string, fn func(*Writer) error) (err error) {
	w, err := Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close %s: %w", path, cerr))
		}
	}()
	return fn(w)
}
