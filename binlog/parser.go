package binlog

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
)

// maxRecordLen guards against reading garbage as a huge header.
const maxRecordLen = 64 << 20

var ErrMalformed = errors.New("malformed record")

// Block is one measurement of a record as it appears on disk.
type Block struct {
	Value        float32
	Error        float32
	LocalIndices []int32
	LocalDerivs  []float32
	GlobalLabels []int32
	GlobalDerivs []float32
}

// RawRecord is one record with its two arrays, padding included.
type RawRecord struct {
	Floats []float32
	Ints   []int32
}

// Blocks splits the record back into measurement blocks. A zero tag opens
// a block (value) and then separates the local part from the global part
// (error); local indices and labels are never zero.
func (rr RawRecord) Blocks() ([]Block, error) {
	n := len(rr.Floats)
	if n != len(rr.Ints) || n == 0 {
		return nil, fmt.Errorf("%w: array lengths %d/%d", ErrMalformed, len(rr.Floats), len(rr.Ints))
	}
	blocks := []Block{}
	i := 1
	for i < n {
		if rr.Ints[i] != 0 {
			return nil, fmt.Errorf("%w: entry %d: expected value marker, got tag %d", ErrMalformed, i, rr.Ints[i])
		}
		b := Block{Value: rr.Floats[i]}
		i++
		for i < n && rr.Ints[i] != 0 {
			b.LocalIndices = append(b.LocalIndices, rr.Ints[i])
			b.LocalDerivs = append(b.LocalDerivs, rr.Floats[i])
			i++
		}
		if i >= n {
			return nil, fmt.Errorf("%w: block %d has no error entry", ErrMalformed, len(blocks))
		}
		b.Error = rr.Floats[i]
		i++
		for i < n && rr.Ints[i] != 0 {
			b.GlobalLabels = append(b.GlobalLabels, rr.Ints[i])
			b.GlobalDerivs = append(b.GlobalDerivs, rr.Floats[i])
			i++
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

// Reader reads records sequentially from a stream.
type Reader struct {
	r   io.Reader
	hdr []byte
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, hdr: make([]byte, headerLen)}
}

// Next returns the next record, or io.EOF after the last one.
func (rd *Reader) Next() (RawRecord, error) {
	if _, err := io.ReadFull(rd.r, rd.hdr); err != nil {
		if errors.Is(err, io.EOF) {
			return RawRecord{}, io.EOF
		}
		return RawRecord{}, fmt.Errorf("record header: %w", err)
	}
	recordLen := int(int32(binary.LittleEndian.Uint32(rd.hdr)))
	if recordLen <= 0 || recordLen%entryBytes != 0 || recordLen > maxRecordLen {
		return RawRecord{}, fmt.Errorf("%w: header %d", ErrMalformed, recordLen)
	}
	body := make([]byte, recordLen)
	if _, err := io.ReadFull(rd.r, body); err != nil {
		return RawRecord{}, fmt.Errorf("record body: %w", err)
	}

	n := recordLen / entryBytes
	rec := RawRecord{Floats: make([]float32, n), Ints: make([]int32, n)}
	for i := 0; i < n; i++ {
		rec.Floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(body[4*i:]))
		rec.Ints[i] = int32(binary.LittleEndian.Uint32(body[4*(n+i):]))
	}
	return rec, nil
}

// Parser loads a whole binary file.
type Parser struct {
	Path    string
	Records []RawRecord
}

func NewParser(path string) *Parser {
	return &Parser{Path: path}
}

func (p *Parser) Parse() error {
	f, err := os.Open(p.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	rd := NewReader(bufio.NewReader(f))
	for {
		rec, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("record %d: %w", len(p.Records), err)
		}
		p.Records = append(p.Records, rec)
	}
}

// LabelCount is how often one global label occurs across all records.
type LabelCount struct {
	Label int32
	Count int
}

// LabelCounts counts the global labels of all parsed records, sorted by label.
func (p *Parser) LabelCounts() ([]LabelCount, error) {
	counts := map[int32]int{}
	for i, rec := range p.Records {
		blocks, err := rec.Blocks()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		for _, b := range blocks {
			for _, l := range b.GlobalLabels {
				counts[l]++
			}
		}
	}
	out := make([]LabelCount, 0, len(counts))
	for l, c := range counts {
		out = append(out, LabelCount{Label: l, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}
