package label

import (
	"fmt"
	"strings"
)

// Offsets of the alignment labelling convention. They must match the ones
// the solver steering files were generated with.
const (
	HalfOffset      = 10000
	TypeOffset      = 1000
	DimensionOffset = 100
)

// Half of the detector a track crossed.
type Half int

const (
	Top    Half = 1
	Bottom Half = 2
)

// Kind of rigid-body parameter.
type Kind int

const (
	Translation Kind = 1
	Rotation    Kind = 2
)

// Axis of a translation or rotation in the sensor frame.
type Axis int

const (
	AxisU Axis = 1
	AxisV Axis = 2
	AxisW Axis = 3
)

// NumParameters is the number of alignment parameters per sensor.
const NumParameters = 6

func (h Half) String() string {
	switch h {
	case Top:
		return "top"
	case Bottom:
		return "bottom"
	}
	return "unknown"
}

func (k Kind) String() string {
	switch k {
	case Translation:
		return "trans"
	case Rotation:
		return "rot"
	}
	return "unknown"
}

func (a Axis) String() string {
	switch a {
	case AxisU:
		return "u"
	case AxisV:
		return "v"
	case AxisW:
		return "w"
	}
	return "unknown"
}

// ParseHalf accepts top/t/1 and bottom/b/2.
func ParseHalf(s string) (Half, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "top", "t", "1":
		return Top, nil
	case "bottom", "bot", "b", "2":
		return Bottom, nil
	}
	return 0, fmt.Errorf("unknown half %q", s)
}
