package derivs

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// MinTrackNormalDot is the smallest |t.n| accepted before a track is treated
// as running inside the sensor plane.
const MinTrackNormalDot = 1e-12

var (
	ErrDegenerate = errors.New("track parallel to sensor plane")
	ErrNonFinite  = errors.New("non-finite point geometry")
)

// PointGeometry is the local geometry of one measurement, expressed in the
// measurement frame of the sensor that produced it.
type PointGeometry struct {
	Layer     int
	U, V, W   float64 // measured, unmeasured and normal coordinates
	TrackDir  r3.Vec
	Predicted r3.Vec // predicted hit on the sensor plane
	Normal    r3.Vec
}

func (g PointGeometry) String() string {
	return fmt.Sprintf("layer %d m=(%.6g,%.6g,%.6g) t=%v p=%v n=%v",
		g.Layer, g.U, g.V, g.W, g.TrackDir, g.Predicted, g.Normal)
}

func (g PointGeometry) finite() bool {
	for _, v := range [...]float64{
		g.U, g.V, g.W,
		g.TrackDir.X, g.TrackDir.Y, g.TrackDir.Z,
		g.Predicted.X, g.Predicted.Y, g.Predicted.Z,
		g.Normal.X, g.Normal.Y, g.Normal.Z,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// MeasDerivatives returns dm/dg, the 3x6 derivative of the local measurement
// (u, v, w) with respect to the sensor translations and rotations
// (u, v, w, alpha, beta, gamma), evaluated at the predicted hit p.
func MeasDerivatives(p r3.Vec) *mat.Dense {
	return mat.NewDense(3, 6, []float64{
		// du dv dw  dalpha  dbeta   dgamma
		1, 0, 0, 0, -p.Z, p.Y, // mu
		0, 1, 0, p.Z, 0, -p.X, // mv
		0, 0, 1, -p.Y, p.X, 0, // mw
	})
}

// ResidualDerivatives returns dr/dm, the 3x3 derivative of the residual with
// respect to the measurement after moving the hit along the track back onto
// the perturbed plane: dr/dm[i][j] = delta(i,j) - t[i]*n[j]/(t.n).
func ResidualDerivatives(t, n r3.Vec) (*mat.Dense, error) {
	tdotn := r3.Dot(t, n)
	if math.IsNaN(tdotn) || math.IsInf(tdotn, 0) {
		return nil, fmt.Errorf("%w: t.n=%v", ErrNonFinite, tdotn)
	}
	if math.Abs(tdotn) < MinTrackNormalDot {
		return nil, fmt.Errorf("%w: t.n=%g", ErrDegenerate, tdotn)
	}

	tv := [3]float64{t.X, t.Y, t.Z}
	nv := [3]float64{n.X, n.Y, n.Z}
	drdm := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			delta := 0.0
			if i == j {
				delta = 1.0
			}
			drdm.Set(i, j, delta-tv[i]*nv[j]/tdotn)
		}
	}
	return drdm, nil
}
