package label

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_DefaultScheme(t *testing.T) {
	s := DefaultScheme()
	tests := []struct {
		name string
		p    Parameter
		want int
	}{
		{"top trans u L1", Parameter{Top, Translation, AxisU, 1}, 11101},
		{"top rot w L12", Parameter{Top, Rotation, AxisW, 12}, 12312},
		{"bottom trans v L5", Parameter{Bottom, Translation, AxisV, 5}, 21205},
		{"bottom rot u L20", Parameter{Bottom, Rotation, AxisU, 20}, 22120},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Encode(tt.p))
			assert.Equal(t, tt.want, s.Label(tt.p.Half, tt.p.Kind, tt.p.Axis, tt.p.Layer))
		})
	}
}

func TestParameterIndex(t *testing.T) {
	want := []struct {
		kind Kind
		axis Axis
	}{
		{Translation, AxisU}, {Translation, AxisV}, {Translation, AxisW},
		{Rotation, AxisU}, {Rotation, AxisV}, {Rotation, AxisW},
	}
	for i, w := range want {
		kind, axis, err := ParameterIndex(i + 1)
		require.NoError(t, err)
		assert.Equal(t, w.kind, kind, "index %d", i+1)
		assert.Equal(t, w.axis, axis, "index %d", i+1)
	}

	for _, bad := range []int{0, 7, -1} {
		_, _, err := ParameterIndex(bad)
		assert.ErrorIs(t, err, ErrParameterIndex)
	}
}

func TestEncode_InjectiveOverDomain(t *testing.T) {
	s := DefaultScheme()
	const maxLayer = 99
	seen := map[int]Parameter{}
	for _, half := range []Half{Top, Bottom} {
		for ip := 1; ip <= NumParameters; ip++ {
			kind, axis, err := ParameterIndex(ip)
			require.NoError(t, err)
			for layer := 1; layer <= maxLayer; layer++ {
				p := Parameter{half, kind, axis, layer}
				l := s.Encode(p)
				prev, dup := seen[l]
				require.False(t, dup, "%v collides with %v at %d", p, prev, l)
				seen[l] = p
			}
		}
	}
	assert.Len(t, seen, 2*NumParameters*maxLayer)
}

func TestDecode_RoundTrip(t *testing.T) {
	s := DefaultScheme()
	for _, half := range []Half{Top, Bottom} {
		for ip := 1; ip <= NumParameters; ip++ {
			kind, axis, _ := ParameterIndex(ip)
			for layer := 1; layer < DimensionOffset; layer += 7 {
				p := Parameter{half, kind, axis, layer}
				got, err := s.Decode(s.Encode(p))
				require.NoError(t, err)
				assert.Equal(t, p, got)
			}
		}
	}
}

func TestDecode_Rejects(t *testing.T) {
	s := DefaultScheme()
	for _, l := range []int{0, 5, 31101, 13101, 11401, 11001} {
		_, err := s.Decode(l)
		assert.ErrorIs(t, err, ErrUnknownLabel, "label %d", l)
	}

	_, err := Scheme{}.Decode(11101)
	assert.ErrorIs(t, err, ErrInvalidScheme)
}

func TestValidate(t *testing.T) {
	require.NoError(t, DefaultScheme().Validate(36))

	// layer 101 spills into the axis digit
	err := DefaultScheme().Validate(101)
	assert.ErrorIs(t, err, ErrLabelCollision)

	err = Scheme{HalfOffset: 10, TypeOffset: 10, DimensionOffset: 1}.Validate(1)
	assert.ErrorIs(t, err, ErrLabelCollision)

	err = Scheme{HalfOffset: 0, TypeOffset: 1000, DimensionOffset: 100}.Validate(10)
	assert.ErrorIs(t, err, ErrInvalidScheme)

	err = DefaultScheme().Validate(0)
	assert.ErrorIs(t, err, ErrInvalidScheme)

	err = Scheme{HalfOffset: math.MaxInt32, TypeOffset: 1000, DimensionOffset: 100}.Validate(10)
	assert.ErrorIs(t, err, ErrInvalidScheme)
}

func TestHalfFromDip(t *testing.T) {
	assert.Equal(t, Top, HalfFromDip(0.03))
	assert.Equal(t, Bottom, HalfFromDip(-0.03))
	assert.Equal(t, Bottom, HalfFromDip(0))
}

func TestStrings(t *testing.T) {
	p := Parameter{Bottom, Rotation, AxisV, 7}
	assert.Equal(t, "bottom/rot-v/L7", p.String())
	assert.Equal(t, "unknown", Half(0).String())
}

func TestParseHalf(t *testing.T) {
	for in, want := range map[string]Half{"top": Top, "T": Top, "1": Top, " bottom ": Bottom, "b": Bottom, "2": Bottom} {
		got, err := ParseHalf(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseHalf("")
	assert.Error(t, err)
}
