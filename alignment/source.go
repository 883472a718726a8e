package alignment

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"mille-go/derivs"
	"mille-go/label"
)

// Columns of the trajectory CSV. A row with an empty half is a point
// without a sensor; its geometry columns are ignored. A half of "auto"
// takes the half from the track dip angle in an extra trailing "lambda"
// column.
var Columns = []string{
	"traj", "half", "layer", "value", "error",
	"u", "v", "w",
	"tx", "ty", "tz",
	"px", "py", "pz",
	"nx", "ny", "nz",
	"locals",
}

const (
	colTraj = iota
	colHalf
	colLayer
	colValue
	colError
	colU
	colTx     = colU + 3
	colPx     = colTx + 3
	colNx     = colPx + 3
	colLocals = colNx + 3
	colLambda = colLocals + 1
)

// Source reads trajectories from CSV. Consecutive rows with the same traj
// id form one trajectory.
type Source struct {
	r       *csv.Reader
	line    int
	pending []string
	done    bool
}

func NewSource(r io.Reader) *Source {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.Comment = '#'
	cr.TrimLeadingSpace = true
	return &Source{r: cr}
}

// Next returns the next trajectory and its id, or io.EOF.
func (s *Source) Next() (string, []Point, error) {
	var id string
	var traj []Point
	for {
		row, err := s.row()
		if errors.Is(err, io.EOF) {
			if traj == nil {
				return "", nil, io.EOF
			}
			return id, traj, nil
		}
		if err != nil {
			return "", nil, err
		}
		if traj != nil && row[colTraj] != id {
			s.pending = row
			return id, traj, nil
		}
		p, err := parsePoint(row)
		if err != nil {
			return "", nil, fmt.Errorf("line %d: %w", s.line, err)
		}
		id = row[colTraj]
		traj = append(traj, p)
	}
}

func (s *Source) row() ([]string, error) {
	if s.pending != nil {
		row := s.pending
		s.pending = nil
		return row, nil
	}
	if s.done {
		return nil, io.EOF
	}
	for {
		row, err := s.r.Read()
		if err == io.EOF {
			s.done = true
			return nil, io.EOF
		}
		if err != nil {
			return nil, err
		}
		s.line, _ = s.r.FieldPos(0)
		if len(row) != len(Columns) && len(row) != colLambda+1 {
			return nil, fmt.Errorf("line %d: %d fields, want %d or %d", s.line, len(row), len(Columns), colLambda+1)
		}
		if row[colTraj] == Columns[colTraj] {
			continue
		}
		return row, nil
	}
}

func parsePoint(row []string) (Point, error) {
	var p Point
	var err error
	if p.Value, err = parseFloat(row, colValue); err != nil {
		return p, err
	}
	if p.Error, err = parseFloat(row, colError); err != nil {
		return p, err
	}
	if p.LocalIndices, p.LocalDerivs, err = ParseLocals(row[colLocals]); err != nil {
		return p, err
	}
	if strings.TrimSpace(row[colHalf]) == "" {
		return p, nil
	}

	half, err := parseHalf(row)
	if err != nil {
		return p, err
	}
	layer, err := strconv.Atoi(strings.TrimSpace(row[colLayer]))
	if err != nil {
		return p, fmt.Errorf("layer: %w", err)
	}
	g := derivs.PointGeometry{Layer: layer}
	if g.U, err = parseFloat(row, colU); err != nil {
		return p, err
	}
	if g.V, err = parseFloat(row, colU+1); err != nil {
		return p, err
	}
	if g.W, err = parseFloat(row, colU+2); err != nil {
		return p, err
	}
	if g.TrackDir, err = parseVec(row, colTx); err != nil {
		return p, err
	}
	if g.Predicted, err = parseVec(row, colPx); err != nil {
		return p, err
	}
	if g.Normal, err = parseVec(row, colNx); err != nil {
		return p, err
	}
	p.Sensor = &SensorHit{Half: half, Geometry: g}
	return p, nil
}

func parseHalf(row []string) (label.Half, error) {
	if !strings.EqualFold(strings.TrimSpace(row[colHalf]), "auto") {
		return label.ParseHalf(row[colHalf])
	}
	if len(row) <= colLambda {
		return 0, errors.New("half auto needs a lambda column")
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(row[colLambda]), 64)
	if err != nil {
		return 0, fmt.Errorf("lambda: %w", err)
	}
	return label.HalfFromDip(v), nil
}

func parseFloat(row []string, col int) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", Columns[col], err)
	}
	return v, nil
}

func parseVec(row []string, col int) (r3.Vec, error) {
	var xyz [3]float64
	for i := range xyz {
		v, err := parseFloat(row, col+i)
		if err != nil {
			return r3.Vec{}, err
		}
		xyz[i] = v
	}
	return r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}

// ParseLocals parses local derivatives written as "index:value" pairs
// separated by semicolons, e.g. "1:0.5;3:-1".
func ParseLocals(s string) ([]int32, []float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil, nil
	}
	parts := strings.Split(s, ";")
	idx := make([]int32, 0, len(parts))
	ders := make([]float64, 0, len(parts))
	for _, part := range parts {
		k, v, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return nil, nil, fmt.Errorf("locals: %q is not index:value", part)
		}
		i, err := strconv.ParseInt(strings.TrimSpace(k), 10, 32)
		if err != nil || i < 1 {
			return nil, nil, fmt.Errorf("locals: bad index %q", k)
		}
		d, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, nil, fmt.Errorf("locals: %w", err)
		}
		idx = append(idx, int32(i))
		ders = append(ders, d)
	}
	return idx, ders, nil
}
