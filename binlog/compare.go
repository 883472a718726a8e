package binlog

import (
	"fmt"

	"gonum.org/v1/gonum/floats/scalar"
)

// Mismatch describes the first difference between two records.
type Mismatch struct {
	Index  int // position in the record, 0 is the padding entry
	Reason string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("entry %d: %s", m.Index, m.Reason)
}

// CompareRecords checks that two records carry the same labels in the same
// order and values equal within tol, absolute or relative. It returns nil
// when they match.
func CompareRecords(a, b RawRecord, tol float64) *Mismatch {
	if len(a.Floats) != len(b.Floats) {
		return &Mismatch{Index: -1, Reason: fmt.Sprintf("length %d vs %d", len(a.Floats), len(b.Floats))}
	}
	for i := range a.Floats {
		if a.Ints[i] != b.Ints[i] {
			return &Mismatch{Index: i, Reason: fmt.Sprintf("tag %d vs %d", a.Ints[i], b.Ints[i])}
		}
		x, y := float64(a.Floats[i]), float64(b.Floats[i])
		if !scalar.EqualWithinAbsOrRel(x, y, tol, tol) {
			return &Mismatch{Index: i, Reason: fmt.Sprintf("value %g vs %g", x, y)}
		}
	}
	return nil
}
