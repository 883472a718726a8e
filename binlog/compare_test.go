package binlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareRecords(t *testing.T) {
	a := RawRecord{Floats: []float32{0, 0.5, 1, 0.01, 2}, Ints: []int32{0, 0, 1, 0, 11101}}
	b := RawRecord{Floats: []float32{0, 0.5, 1, 0.01, 2.0000001}, Ints: []int32{0, 0, 1, 0, 11101}}
	assert.Nil(t, CompareRecords(a, b, 1e-6))

	b.Floats[4] = 2.1
	m := CompareRecords(a, b, 1e-6)
	require.NotNil(t, m)
	assert.Equal(t, 4, m.Index)

	b = RawRecord{Floats: []float32{0, 0.5, 1, 0.01, 2}, Ints: []int32{0, 0, 1, 0, 11102}}
	m = CompareRecords(a, b, 1e-6)
	require.NotNil(t, m)
	assert.Equal(t, "entry 4: tag 11101 vs 11102", m.String())

	m = CompareRecords(a, RawRecord{Floats: []float32{0}, Ints: []int32{0}}, 1e-6)
	require.NotNil(t, m)
	assert.Equal(t, -1, m.Index)
}
