// Package config loads the alignment output settings and the sensor table
// that maps sensors to label layers.
//
// The file is XML:
//
//	<alignment output="millepedeData.bin" policy="skip">
//	  <labels half="10000" type="1000" dimension="100"/>
//	  <sensorlist>
//	    <sensor name="module_L1t_halfmodule_axial_sensor0" id="1" half="top"/>
//	  </sensorlist>
//	</alignment>
package config

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"

	"mille-go/alignment"
	"mille-go/binlog"
	"mille-go/label"
)

var (
	ErrInvalidConfig   = errors.New("invalid alignment config")
	ErrDuplicateSensor = errors.New("duplicate sensor")
)

// Sensor is one alignable sensor.
type Sensor struct {
	Name  string
	Layer int // label layer, the sensor's Millepede id
	Half  label.Half
}

type Config struct {
	OutputFile string
	Policy     alignment.Policy
	Scheme     label.Scheme
	Sensors    map[string]Sensor
}

// Default returns the standard label scheme writing to millepedeData.bin.
func Default() *Config {
	return &Config{
		OutputFile: binlog.DefaultFileName,
		Policy:     alignment.SkipPoint,
		Scheme:     label.DefaultScheme(),
		Sensors:    map[string]Sensor{},
	}
}

// Load reads path on top of Default. Attributes left out keep their
// defaults.
func Load(path string) (*Config, error) {
	dec, f, err := readXML(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	cfg := Default()
	inSensorList := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "alignment":
				if v, ok := attrValue(t, "output"); ok && v != "" {
					cfg.OutputFile = v
				}
				if v, ok := attrValue(t, "policy"); ok {
					p, err := alignment.ParsePolicy(v)
					if err != nil {
						return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
					}
					cfg.Policy = p
				}
			case "labels":
				if err := parseLabels(t, &cfg.Scheme); err != nil {
					return nil, err
				}
			case "sensorlist":
				inSensorList = true
			case "sensor":
				if !inSensorList {
					continue
				}
				s, err := parseSensor(t)
				if err != nil {
					return nil, err
				}
				if _, dup := cfg.Sensors[s.Name]; dup {
					return nil, fmt.Errorf("%w: %s", ErrDuplicateSensor, s.Name)
				}
				cfg.Sensors[s.Name] = s
			}
		case xml.EndElement:
			if t.Name.Local == "sensorlist" {
				inSensorList = false
			}
		}
	}
	return cfg, nil
}

func parseLabels(t xml.StartElement, s *label.Scheme) error {
	for _, f := range []struct {
		attr string
		dst  *int
	}{
		{"half", &s.HalfOffset},
		{"type", &s.TypeOffset},
		{"dimension", &s.DimensionOffset},
	} {
		v, ok, err := parseIntAttr(t, f.attr)
		if err != nil {
			return fmt.Errorf("%w: labels %s: %v", ErrInvalidConfig, f.attr, err)
		}
		if ok {
			*f.dst = v
		}
	}
	return nil
}

func parseSensor(t xml.StartElement) (Sensor, error) {
	name, ok := attrValue(t, "name")
	if !ok || name == "" {
		return Sensor{}, fmt.Errorf("%w: sensor without name", ErrInvalidConfig)
	}
	id, ok, err := parseIntAttr(t, "id")
	if err != nil || !ok {
		return Sensor{}, fmt.Errorf("%w: sensor %s: bad id", ErrInvalidConfig, name)
	}
	half, err := label.ParseHalf(mustAttr(t, "half"))
	if err != nil {
		return Sensor{}, fmt.Errorf("%w: sensor %s: %v", ErrInvalidConfig, name, err)
	}
	return Sensor{Name: name, Layer: id, Half: half}, nil
}

func mustAttr(t xml.StartElement, name string) string {
	v, _ := attrValue(t, name)
	return v
}

// MaxLayer returns the largest sensor layer, or 0 without sensors.
func (c *Config) MaxLayer() int {
	m := 0
	for _, s := range c.Sensors {
		if s.Layer > m {
			m = s.Layer
		}
	}
	return m
}

// SensorAt returns the sensor on the given half and layer.
func (c *Config) SensorAt(half label.Half, layer int) (Sensor, bool) {
	for _, s := range c.Sensors {
		if s.Half == half && s.Layer == layer {
			return s, true
		}
	}
	return Sensor{}, false
}

// HasSensor reports whether a sensor sits on the given half and layer.
func (c *Config) HasSensor(half label.Half, layer int) bool {
	_, ok := c.SensorAt(half, layer)
	return ok
}

// LayerLimit is the highest layer Validate checks the scheme for: the
// largest configured sensor layer, or every layer below the dimension
// digit when no sensors are configured.
func (c *Config) LayerLimit() int {
	if m := c.MaxLayer(); m > 0 {
		return m
	}
	return c.Scheme.DimensionOffset - 1
}

// SortedSensors returns the sensors ordered by half then layer.
func (c *Config) SortedSensors() []Sensor {
	out := make([]Sensor, 0, len(c.Sensors))
	for _, s := range c.Sensors {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Half != out[j].Half {
			return out[i].Half < out[j].Half
		}
		if out[i].Layer != out[j].Layer {
			return out[i].Layer < out[j].Layer
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Validate is the startup check of the labelling convention: the scheme
// must be injective up to LayerLimit, and no two sensors of one half may
// share a layer.
func (c *Config) Validate() error {
	if c.OutputFile == "" {
		return fmt.Errorf("%w: empty output file", ErrInvalidConfig)
	}
	type key struct {
		half  label.Half
		layer int
	}
	owner := map[key]string{}
	for _, s := range c.SortedSensors() {
		if s.Layer < 1 {
			return fmt.Errorf("%w: sensor %s has layer %d", ErrInvalidConfig, s.Name, s.Layer)
		}
		k := key{s.Half, s.Layer}
		if other, dup := owner[k]; dup {
			return fmt.Errorf("%w: %s and %s are both %s layer %d", ErrDuplicateSensor, other, s.Name, s.Half, s.Layer)
		}
		owner[k] = s.Name
	}
	return c.Scheme.Validate(c.LayerLimit())
}
