package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mille-go/alignment"
	"mille-go/label"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "alignment.xml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `<?xml version="1.0"?>
<alignment output="run5772.bin" policy="abort">
  <labels half="10000" type="1000" dimension="100"/>
  <sensorlist>
    <sensor name="module_L1t_halfmodule_axial_sensor0" id="1" half="top"/>
    <sensor name="module_L1t_halfmodule_stereo_sensor0" id="2" half="top"/>
    <sensor name="module_L1b_halfmodule_axial_sensor0" id="1" half="bottom"/>
  </sensorlist>
</alignment>`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "run5772.bin", cfg.OutputFile)
	assert.Equal(t, alignment.AbortTrajectory, cfg.Policy)
	assert.Equal(t, label.DefaultScheme(), cfg.Scheme)
	assert.Len(t, cfg.Sensors, 3)
	assert.Equal(t, 2, cfg.MaxLayer())
	assert.Equal(t, 2, cfg.LayerLimit())

	s, ok := cfg.SensorAt(label.Bottom, 1)
	require.True(t, ok)
	assert.Equal(t, Sensor{Name: "module_L1b_halfmodule_axial_sensor0", Layer: 1, Half: label.Bottom}, s)
	assert.True(t, cfg.HasSensor(label.Top, 2))
	assert.False(t, cfg.HasSensor(label.Bottom, 2))
	assert.False(t, cfg.HasSensor(label.Top, 3))

	sorted := cfg.SortedSensors()
	assert.Equal(t, "module_L1t_halfmodule_axial_sensor0", sorted[0].Name)
	assert.Equal(t, label.Bottom, sorted[2].Half)

	require.NoError(t, cfg.Validate())
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `<alignment/>`))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "millepedeData.bin", cfg.OutputFile)
	assert.Equal(t, alignment.SkipPoint, cfg.Policy)
	assert.Equal(t, 99, cfg.LayerLimit())
	require.NoError(t, cfg.Validate())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
	}{
		{"bad offset", `<alignment><labels half="ten"/></alignment>`, ErrInvalidConfig},
		{"bad policy", `<alignment policy="ignore"/>`, ErrInvalidConfig},
		{"no name", `<alignment><sensorlist><sensor id="1" half="top"/></sensorlist></alignment>`, ErrInvalidConfig},
		{"bad id", `<alignment><sensorlist><sensor name="a" id="x" half="top"/></sensorlist></alignment>`, ErrInvalidConfig},
		{"bad half", `<alignment><sensorlist><sensor name="a" id="1" half="left"/></sensorlist></alignment>`, ErrInvalidConfig},
		{"duplicate name", `<alignment><sensorlist>
			<sensor name="a" id="1" half="top"/><sensor name="a" id="2" half="top"/>
		</sensorlist></alignment>`, ErrDuplicateSensor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.ErrorIs(t, err, tt.err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.xml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, `<alignment><sensorlist>`))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Sensors["a"] = Sensor{Name: "a", Layer: 3, Half: label.Top}
	cfg.Sensors["b"] = Sensor{Name: "b", Layer: 3, Half: label.Top}
	assert.ErrorIs(t, cfg.Validate(), ErrDuplicateSensor)

	cfg = Default()
	cfg.Sensors["a"] = Sensor{Name: "a", Layer: 0, Half: label.Top}
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = Default()
	cfg.Sensors["a"] = Sensor{Name: "a", Layer: 150, Half: label.Top}
	assert.ErrorIs(t, cfg.Validate(), label.ErrLabelCollision)

	// without sensors the whole encodable layer range is checked
	cfg = Default()
	cfg.Scheme = label.Scheme{HalfOffset: 10000, TypeOffset: 1000, DimensionOffset: 400}
	assert.ErrorIs(t, cfg.Validate(), label.ErrLabelCollision)
	cfg.Sensors["a"] = Sensor{Name: "a", Layer: 36, Half: label.Top}
	require.NoError(t, cfg.Validate())

	cfg = Default()
	cfg.OutputFile = ""
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}
