package alignment

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"mille-go/label"
)

const trajectories = `traj,half,layer,value,error,u,v,w,tx,ty,tz,px,py,pz,nx,ny,nz,locals
# run 5772, event 12
7,top,1,0.25,0.5,0.25,0,0,0,0,1,1,2,0,0,0,1,1:1;2:0.5;4:-1
7,,,0,0.001,0,0,0,0,0,0,0,0,0,0,0,0,2:1;3:1
9,bottom,3,-0.1,0.02,0,0,0,0,0.1,1,0,0,0,0,0,1,
`

func TestSource_GroupsByTrajectory(t *testing.T) {
	src := NewSource(strings.NewReader(trajectories))

	id, traj, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, "7", id)
	require.Len(t, traj, 2)

	p := traj[0]
	assert.Equal(t, 0.25, p.Value)
	assert.Equal(t, []int32{1, 2, 4}, p.LocalIndices)
	assert.Equal(t, []float64{1, 0.5, -1}, p.LocalDerivs)
	require.NotNil(t, p.Sensor)
	assert.Equal(t, label.Top, p.Sensor.Half)
	assert.Equal(t, 1, p.Sensor.Geometry.Layer)
	assert.Equal(t, r3.Vec{Z: 1}, p.Sensor.Geometry.TrackDir)
	assert.Equal(t, r3.Vec{X: 1, Y: 2}, p.Sensor.Geometry.Predicted)
	assert.Equal(t, r3.Vec{Z: 1}, p.Sensor.Geometry.Normal)

	assert.Nil(t, traj[1].Sensor)
	assert.Equal(t, []int32{2, 3}, traj[1].LocalIndices)

	id, traj, err = src.Next()
	require.NoError(t, err)
	assert.Equal(t, "9", id)
	require.Len(t, traj, 1)
	assert.Equal(t, label.Bottom, traj[0].Sensor.Half)
	assert.Empty(t, traj[0].LocalIndices)

	_, _, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)
	_, _, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSource_Errors(t *testing.T) {
	rows := []string{
		"1,top,x,0,1,0,0,0,0,0,1,0,0,0,0,0,1,",
		"1,left,1,0,1,0,0,0,0,0,1,0,0,0,0,0,1,",
		"1,top,1,zero,1,0,0,0,0,0,1,0,0,0,0,0,1,",
		"1,top,1,0,1,0,0,0,0,0,1,0,0,0,0,0,1,1=2",
		"1,top,1,0,1,0,0,0",
	}
	for _, row := range rows {
		_, _, err := NewSource(strings.NewReader(row + "\n")).Next()
		assert.Error(t, err, row)
	}
}

func TestParseLocals(t *testing.T) {
	idx, ders, err := ParseLocals(" 1:0.5 ; 3:-2 ")
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 3}, idx)
	assert.Equal(t, []float64{0.5, -2}, ders)

	idx, ders, err = ParseLocals("")
	require.NoError(t, err)
	assert.Nil(t, idx)
	assert.Nil(t, ders)

	for _, bad := range []string{"1", "0:1", "a:1", "1:b", "1:2;"} {
		_, _, err := ParseLocals(bad)
		assert.Error(t, err, bad)
	}
}

func TestSource_HalfFromDip(t *testing.T) {
	src := NewSource(strings.NewReader(`1,auto,2,0,1,0,0,0,0,0.05,1,0,0,0,0,0,1,,0.05
1,auto,2,0,1,0,0,0,0,-0.05,1,0,0,0,0,0,1,,-0.05
`))
	_, traj, err := src.Next()
	require.NoError(t, err)
	require.Len(t, traj, 2)
	assert.Equal(t, label.Top, traj[0].Sensor.Half)
	assert.Equal(t, label.Bottom, traj[1].Sensor.Half)

	for _, row := range []string{
		"1,auto,2,0,1,0,0,0,0,0,1,0,0,0,0,0,1,",
		"1,auto,2,0,1,0,0,0,0,0,1,0,0,0,0,0,1,,up",
		"1,top,2,0,1,0,0,0,0,0,1,0,0,0,0,0,1,,0.1,extra",
	} {
		_, _, err := NewSource(strings.NewReader(row + "\n")).Next()
		assert.Error(t, err, row)
	}
}
