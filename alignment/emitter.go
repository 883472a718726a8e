// Package alignment turns fitted trajectories into alignment records: one
// block per trajectory point, with the global derivatives of the sensor the
// point was measured on.
package alignment

import (
	"errors"
	"fmt"

	"mille-go/binlog"
	"mille-go/derivs"
	"mille-go/label"
	"mille-go/monitoring"
)

// Policy decides what happens to a trajectory when one of its points
// cannot be given global derivatives: degenerate geometry, a layer outside
// the label range or a sensor missing from the table.
type Policy int

const (
	// SkipPoint drops the offending point and keeps the rest.
	SkipPoint Policy = iota
	// AbortTrajectory discards the whole trajectory.
	AbortTrajectory
)

func (p Policy) String() string {
	if p == AbortTrajectory {
		return "abort"
	}
	return "skip"
}

// ParsePolicy accepts "skip" and "abort".
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "skip", "":
		return SkipPoint, nil
	case "abort":
		return AbortTrajectory, nil
	}
	return 0, fmt.Errorf("unknown policy %q", s)
}

var (
	ErrPending       = errors.New("previous trajectory not flushed")
	ErrNothing       = errors.New("no pending trajectory")
	ErrUnknownSensor = errors.New("no sensor configured")
)

// SensorTable tells which (half, layer) pairs are alignable sensors.
type SensorTable interface {
	HasSensor(half label.Half, layer int) bool
}

// SensorHit places a point on a sensor.
type SensorHit struct {
	Half     label.Half
	Geometry derivs.PointGeometry
}

// Point is what the trajectory fit hands over for one measurement.
// Points without a sensor (scatterers, seed constraints) carry local data
// only.
type Point struct {
	Value        float64
	Error        float64
	LocalIndices []int32
	LocalDerivs  []float64
	Sensor       *SensorHit
}

// Summary reports what Emit did with one trajectory.
type Summary struct {
	Points  int
	Blocks  int
	Skipped int
	Entries int
}

// Emitter owns the record of the trajectory being written.
type Emitter struct {
	calc    *derivs.Calculator
	writer  *binlog.Writer
	record  *binlog.Record
	policy  Policy
	sensors SensorTable
	pending *Summary
}

func NewEmitter(calc *derivs.Calculator, w *binlog.Writer, policy Policy) *Emitter {
	return &Emitter{
		calc:   calc,
		writer: w,
		record: binlog.NewRecord(),
		policy: policy,
	}
}

// RequireSensors makes Emit treat points on a (half, layer) missing from t
// like degenerate ones, according to the policy.
func (e *Emitter) RequireSensors(t SensorTable) {
	e.sensors = t
}

// Emit computes the global derivatives of every point, fills one record and
// flushes it. If the flush fails the record stays buffered; call Retry or
// Discard before the next Emit.
func (e *Emitter) Emit(traj []Point) (Summary, error) {
	if e.pending != nil {
		return Summary{}, ErrPending
	}
	sum := Summary{Points: len(traj)}
	for i, p := range traj {
		var labels []int32
		var ders []float64
		if p.Sensor != nil {
			gd, err := e.derivatives(p.Sensor)
			if err != nil {
				if e.policy == AbortTrajectory {
					e.record.Reset()
					return sum, fmt.Errorf("point %d: %w", i, err)
				}
				monitoring.Logf("alignment: skipping point %d: %v", i, err)
				sum.Skipped++
				continue
			}
			for _, d := range gd.Parameters() {
				labels = append(labels, int32(d.Label))
				ders = append(ders, d.Value)
			}
		}
		if err := e.record.AddBlock(float32(p.Value), float32(p.Error), p.LocalIndices, p.LocalDerivs, labels, ders); err != nil {
			e.record.Reset()
			return sum, fmt.Errorf("point %d: %w", i, err)
		}
		sum.Blocks++
	}
	sum.Entries = e.record.Len()

	if err := e.writer.Flush(e.record); err != nil {
		e.pending = &sum
		return sum, err
	}
	return sum, nil
}

func (e *Emitter) derivatives(h *SensorHit) (*derivs.GlobalDers, error) {
	if e.sensors != nil && !e.sensors.HasSensor(h.Half, h.Geometry.Layer) {
		return nil, fmt.Errorf("%w: %s layer %d", ErrUnknownSensor, h.Half, h.Geometry.Layer)
	}
	return e.calc.Compute(h.Half, h.Geometry)
}

// Retry flushes the record left behind by a failed Emit.
func (e *Emitter) Retry() (Summary, error) {
	if e.pending == nil {
		return Summary{}, ErrNothing
	}
	if err := e.writer.Flush(e.record); err != nil {
		return *e.pending, err
	}
	sum := *e.pending
	e.pending = nil
	return sum, nil
}

// Discard drops the record left behind by a failed Emit.
func (e *Emitter) Discard() {
	e.record.Reset()
	e.pending = nil
}

// Pending reports whether a failed flush left a record behind.
func (e *Emitter) Pending() bool { return e.pending != nil }
