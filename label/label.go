// Package label maps sensor alignment parameters to the integer labels
// understood by the global alignment solver.
package label

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidScheme  = errors.New("invalid label scheme")
	ErrLabelCollision = errors.New("label collision")
	ErrUnknownLabel   = errors.New("unknown label")
	ErrParameterIndex = errors.New("parameter index out of range")
)

// Parameter identifies one alignment degree of freedom of one sensor.
type Parameter struct {
	Half  Half
	Kind  Kind
	Axis  Axis
	Layer int
}

func (p Parameter) String() string {
	return fmt.Sprintf("%s/%s-%s/L%d", p.Half, p.Kind, p.Axis, p.Layer)
}

// Scheme holds the multiplicative offsets of the labelling convention.
type Scheme struct {
	HalfOffset      int
	TypeOffset      int
	DimensionOffset int
}

// DefaultScheme returns the standard 10000/1000/100 convention.
func DefaultScheme() Scheme {
	return Scheme{
		HalfOffset:      HalfOffset,
		TypeOffset:      TypeOffset,
		DimensionOffset: DimensionOffset,
	}
}

// Encode returns the label of p. It does not check p against the domain;
// run Validate once at startup for that.
func (s Scheme) Encode(p Parameter) int {
	return s.HalfOffset*int(p.Half) + s.TypeOffset*int(p.Kind) + s.DimensionOffset*int(p.Axis) + p.Layer
}

// Label is shorthand for Encode.
func (s Scheme) Label(half Half, kind Kind, axis Axis, layer int) int {
	return s.Encode(Parameter{Half: half, Kind: kind, Axis: axis, Layer: layer})
}

// Decode splits a label back into its fields. Only labels produced by Encode
// for a valid half/kind/axis are accepted.
func (s Scheme) Decode(label int) (Parameter, error) {
	if s.HalfOffset <= 0 || s.TypeOffset <= 0 || s.DimensionOffset <= 0 {
		return Parameter{}, ErrInvalidScheme
	}
	rest := label
	half := Half(rest / s.HalfOffset)
	rest -= int(half) * s.HalfOffset
	kind := Kind(rest / s.TypeOffset)
	rest -= int(kind) * s.TypeOffset
	axis := Axis(rest / s.DimensionOffset)
	rest -= int(axis) * s.DimensionOffset

	p := Parameter{Half: half, Kind: kind, Axis: axis, Layer: rest}
	if !validHalf(half) || !validKind(kind) || !validAxis(axis) || rest < 0 || s.Encode(p) != label {
		return Parameter{}, fmt.Errorf("%w: %d", ErrUnknownLabel, label)
	}
	return p, nil
}

// Validate checks that every parameter with a layer in 1..maxLayer gets a
// distinct label that fits the 32-bit label field of the binary format.
func (s Scheme) Validate(maxLayer int) error {
	if s.HalfOffset <= 0 || s.TypeOffset <= 0 || s.DimensionOffset <= 0 {
		return fmt.Errorf("%w: offsets must be positive (%d/%d/%d)",
			ErrInvalidScheme, s.HalfOffset, s.TypeOffset, s.DimensionOffset)
	}
	if maxLayer < 1 {
		return fmt.Errorf("%w: max layer %d", ErrInvalidScheme, maxLayer)
	}

	seen := make(map[int]Parameter, 2*NumParameters*maxLayer)
	for _, half := range []Half{Top, Bottom} {
		for ip := 1; ip <= NumParameters; ip++ {
			kind, axis, _ := ParameterIndex(ip)
			for layer := 1; layer <= maxLayer; layer++ {
				p := Parameter{Half: half, Kind: kind, Axis: axis, Layer: layer}
				l := s.Encode(p)
				if l <= 0 || l > math.MaxInt32 {
					return fmt.Errorf("%w: %v encodes to %d", ErrInvalidScheme, p, l)
				}
				if prev, dup := seen[l]; dup {
					return fmt.Errorf("%w: %v and %v both encode to %d", ErrLabelCollision, prev, p, l)
				}
				seen[l] = p
			}
		}
	}
	return nil
}

// ParameterIndex maps the 1-based column index of the derivative matrix
// (u, v, w, alpha, beta, gamma) to its kind and axis.
func ParameterIndex(ip int) (Kind, Axis, error) {
	switch {
	case ip >= 1 && ip <= 3:
		return Translation, Axis(ip), nil
	case ip >= 4 && ip <= NumParameters:
		return Rotation, Axis(ip - 3), nil
	}
	return 0, 0, fmt.Errorf("%w: %d", ErrParameterIndex, ip)
}

// HalfFromDip classifies a track by its dip angle lambda: tracks going up
// belong to the top half.
func HalfFromDip(lambda float64) Half {
	if math.Sin(lambda) > 0 {
		return Top
	}
	return Bottom
}

func validHalf(h Half) bool { return h == Top || h == Bottom }
func validKind(k Kind) bool { return k == Translation || k == Rotation }
func validAxis(a Axis) bool { return a >= AxisU && a <= AxisW }
