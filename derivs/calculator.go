// Package derivs computes the derivatives of a strip measurement residual
// with respect to the rigid-body alignment parameters of its sensor.
package derivs

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"mille-go/label"
)

// MeasuredRow is the row of dr/dg that is written out. Strip sensors measure
// only the u coordinate; the v and w rows are kept for inspection.
const MeasuredRow = 0

// ErrLayerRange rejects a layer outside the range the label scheme was
// validated for; its labels would alias another sensor's parameters.
var ErrLayerRange = errors.New("layer outside label range")

// Derivative is one alignment parameter entry for the solver.
type Derivative struct {
	Label int
	Value float64
	Sigma float64 // reserved, always 0
}

// GlobalDers holds the derivative chain of one measurement point.
type GlobalDers struct {
	Geometry PointGeometry
	Half     label.Half

	DmDg *mat.Dense // 3x6
	DrDm *mat.Dense // 3x3
	DrDg *mat.Dense // 3x6

	params []Derivative
}

// Calculator turns point geometries into labelled global derivatives.
// Layers must lie in 1..MaxLayer.
type Calculator struct {
	Scheme   label.Scheme
	MaxLayer int
}

// NewCalculator allows every layer that fits below the dimension digit of
// scheme. Lower MaxLayer to the range the scheme was validated for.
func NewCalculator(scheme label.Scheme) *Calculator {
	return &Calculator{Scheme: scheme, MaxLayer: scheme.DimensionOffset - 1}
}

// Compute evaluates dr/dg = dr/dm * dm/dg for one point and labels the
// measured row with the parameters of the sensor on the given half.
func (c *Calculator) Compute(half label.Half, g PointGeometry) (*GlobalDers, error) {
	if g.Layer < 1 || g.Layer > c.MaxLayer {
		return nil, fmt.Errorf("layer %d: %w (1..%d)", g.Layer, ErrLayerRange, c.MaxLayer)
	}
	if !g.finite() {
		return nil, fmt.Errorf("layer %d: %w", g.Layer, ErrNonFinite)
	}
	drdm, err := ResidualDerivatives(g.TrackDir, g.Normal)
	if err != nil {
		return nil, fmt.Errorf("layer %d: %w", g.Layer, err)
	}
	dmdg := MeasDerivatives(g.Predicted)

	var drdg mat.Dense
	drdg.Mul(drdm, dmdg)

	gd := &GlobalDers{
		Geometry: g,
		Half:     half,
		DmDg:     dmdg,
		DrDm:     drdm,
		DrDg:     &drdg,
	}

	row := gd.MeasuredRow()
	gd.params = make([]Derivative, label.NumParameters)
	for ip := 1; ip <= label.NumParameters; ip++ {
		kind, axis, err := label.ParameterIndex(ip)
		if err != nil {
			return nil, err
		}
		gd.params[ip-1] = Derivative{
			Label: c.Scheme.Label(half, kind, axis, g.Layer),
			Value: row[ip-1],
		}
	}
	return gd, nil
}

// MeasuredRow returns a copy of the measured (u) row of dr/dg.
func (gd *GlobalDers) MeasuredRow() []float64 {
	return mat.Row(nil, MeasuredRow, gd.DrDg)
}

// Parameters returns the six labelled derivatives in column order.
func (gd *GlobalDers) Parameters() []Derivative {
	out := make([]Derivative, len(gd.params))
	copy(out, gd.params)
	return out
}
