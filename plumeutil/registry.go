/*
Copyright © 2024 the Plume authors.
This file is part of Plume.

Plume is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Plume is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Plume.  If not, see <http://www.gnu.org/licenses/>.
*/

package plumeutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ctessum/unit"
	"gopkg.in/yaml.v3"

	"github.com/oceantracer/plume"
)

// tracerFile is the on-disk shape of one tracer entry in a registry
// override file, in either TOML or YAML -- both decode into the same
// Go struct, mirroring the dual-format support the rest of the pack's
// config loaders show for shapefile/JSON pairs.
type tracerFile struct {
	ID                    string  `toml:"id" yaml:"id"`
	Name                  string  `toml:"name" yaml:"name"`
	Type                  string  `toml:"type" yaml:"type"`
	HalfLifeDays          float64 `toml:"half_life_days" yaml:"half_life_days"`
	BaseUnit              string  `toml:"base_unit" yaml:"base_unit"`
	DefaultTotal          float64 `toml:"default_total" yaml:"default_total"`
	DiffusivityMultiplier float64 `toml:"diffusivity_multiplier" yaml:"diffusivity_multiplier"`
	SettlingVelocity      float64 `toml:"settling_velocity" yaml:"settling_velocity"`
	EvaporationRate       float64 `toml:"evaporation_rate" yaml:"evaporation_rate"`
	SigmaH                float64 `toml:"sigma_h" yaml:"sigma_h"`
	SigmaV                float64 `toml:"sigma_v" yaml:"sigma_v"`
	DecayEnabled          bool    `toml:"decay_enabled" yaml:"decay_enabled"`
}

type tracerFileDoc struct {
	Tracers []tracerFile `toml:"tracers" yaml:"tracers"`
}

var taxonomicTypeByName = map[string]plume.TaxonomicType{
	"radionuclide": plume.Radionuclide,
	"hydrocarbon":  plume.Hydrocarbon,
	"particulate":  plume.Particulate,
	"pollutant":    plume.Pollutant,
	"biological":   plume.Biological,
}

// LoadRegistry returns plume.DefaultRegistry() with entries from path
// layered on top, replacing any built-in descriptor of the same ID.
// An empty path returns the defaults unchanged. The format is chosen
// from the file extension: .toml or .yaml/.yml.
func LoadRegistry(path string) (*plume.Registry, error) {
	reg := plume.DefaultRegistry()
	if path == "" {
		return reg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("plumeutil: reading tracer registry file: %w", err)
	}

	var doc tracerFileDoc
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), &doc); err != nil {
			return nil, fmt.Errorf("plumeutil: parsing TOML tracer registry: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("plumeutil: parsing YAML tracer registry: %w", err)
		}
	default:
		return nil, fmt.Errorf("plumeutil: unrecognized tracer registry extension %q (want .toml, .yaml, or .yml)", ext)
	}

	for _, tf := range doc.Tracers {
		desc, err := tracerFileToDescriptor(tf)
		if err != nil {
			return nil, err
		}
		reg.Register(desc)
	}
	return reg, nil
}

func tracerFileToDescriptor(tf tracerFile) (*plume.Descriptor, error) {
	if tf.ID == "" {
		return nil, fmt.Errorf("plumeutil: tracer registry entry missing id")
	}
	taxType, ok := taxonomicTypeByName[strings.ToLower(tf.Type)]
	if !ok {
		return nil, fmt.Errorf("plumeutil: tracer %q has unknown type %q", tf.ID, tf.Type)
	}
	dims := unit.Kilogram
	if taxType == plume.Radionuclide {
		dims = unit.Dimless
	}
	return &plume.Descriptor{
		ID: tf.ID, Name: tf.Name, Type: taxType,
		HalfLifeDays: tf.HalfLifeDays,
		BaseUnit:     tf.BaseUnit,
		DefaultTotal: unit.New(tf.DefaultTotal, dims),
		Behavior: plume.Behavior{
			DiffusivityMultiplier: tf.DiffusivityMultiplier,
			SettlingVelocity:      tf.SettlingVelocity,
			EvaporationRate:       tf.EvaporationRate,
			SigmaH:                tf.SigmaH,
			SigmaV:                tf.SigmaV,
			DecayEnabled:          tf.DecayEnabled,
		},
	}, nil
}
