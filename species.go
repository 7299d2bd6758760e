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

package plume

import (
	"fmt"
	"sync"

	"github.com/ctessum/unit"
)

// TaxonomicType is the coarse classification a tracer descriptor
// belongs to, per spec.md section 3. ConcentrationModel switches on
// this to pick its per-species formula.
type TaxonomicType int

const (
	Radionuclide TaxonomicType = iota
	Hydrocarbon
	Particulate
	Pollutant
	Biological
)

func (t TaxonomicType) String() string {
	switch t {
	case Radionuclide:
		return "radionuclide"
	case Hydrocarbon:
		return "hydrocarbon"
	case Particulate:
		return "particulate"
	case Pollutant:
		return "pollutant"
	case Biological:
		return "biological"
	default:
		return "unknown"
	}
}

// Behavior is a tracer's physical parameter bundle: everything the
// integrator and decay model need beyond the base mass/activity
// value.
type Behavior struct {
	DiffusivityMultiplier float64 // dimensionless scale on DiffusivityField K
	SettlingVelocity      float64 // m/day; positive sinks
	EvaporationRate       float64 // per day; 0 disables evaporation
	SigmaH                float64 // horizontal plume sigma, meters
	SigmaV                float64 // vertical plume sigma, meters
	DecayEnabled          bool
}

// Descriptor is one tracer registry entry: process-wide constant
// data, never mutated after Register.
type Descriptor struct {
	ID           string
	Name         string
	Type         TaxonomicType
	HalfLifeDays float64 // 0 if not a decaying radionuclide
	BaseUnit     string  // "Bq", "kg", ...
	DefaultTotal *unit.Unit
	Behavior     Behavior
}

// dimensionsFor returns the SI base dimensions backing a taxonomic
// type's mass/activity bookkeeping. Radioactivity (Bq) has no SI base
// dimension of its own in github.com/ctessum/unit, so radionuclide
// quantities are tracked dimensionless; every other taxonomy is
// tracked as a mass.
func dimensionsFor(t TaxonomicType) unit.Dimensions {
	if t == Radionuclide {
		return unit.Dimless
	}
	return unit.Kilogram
}

// Registry is a lookup table of tracer descriptors, keyed by ID. It
// is safe for concurrent reads; Register is expected to run during
// setup, before any simulation reads from it, mirroring the
// process-wide-constant lifetime in spec.md section 3.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Descriptor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Descriptor)}
}

// Register adds or replaces a descriptor.
func (r *Registry) Register(d *Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[d.ID] = d
}

// Lookup returns the descriptor for id, or a ConfigurationError if
// it is unknown.
func (r *Registry) Lookup(id string) (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.entries[id]
	if !ok {
		return nil, configurationErrorf("tracer_id", "unknown tracer %q", id)
	}
	return d, nil
}

// DefaultRegistry returns a registry pre-populated with one
// descriptor per taxonomic type, matching the canonical examples used
// throughout spec.md section 8's scenarios (Cs-137 for S5, a generic
// hydrocarbon, particulate, pollutant, and biological tracer).
// plumeutil.LoadRegistry layers TOML/YAML overrides on top of this.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&Descriptor{
		ID: "cs137", Name: "Cesium-137", Type: Radionuclide,
		HalfLifeDays: 30.17 * 365.25,
		BaseUnit:     "Bq",
		DefaultTotal: unit.New(16.2e6, dimensionsFor(Radionuclide)), // GBq
		Behavior: Behavior{
			DiffusivityMultiplier: 1.0,
			SigmaH:                1000, SigmaV: 10,
			DecayEnabled: true,
		},
	})
	r.Register(&Descriptor{
		ID: "crude_oil", Name: "Crude oil", Type: Hydrocarbon,
		BaseUnit:     "kg",
		DefaultTotal: unit.New(1e6, dimensionsFor(Hydrocarbon)),
		Behavior: Behavior{
			DiffusivityMultiplier: 0.5,
			SettlingVelocity:      -50, // rises toward the surface
			EvaporationRate:       0.05,
			SigmaH:                500, SigmaV: 1,
		},
	})
	r.Register(&Descriptor{
		ID: "microplastic", Name: "Microplastic particulate", Type: Particulate,
		BaseUnit:     "kg",
		DefaultTotal: unit.New(1e3, dimensionsFor(Particulate)),
		Behavior: Behavior{
			DiffusivityMultiplier: 1.2,
			SettlingVelocity:      2,
			SigmaH:                300, SigmaV: 20,
		},
	})
	r.Register(&Descriptor{
		ID: "generic_pollutant", Name: "Generic dissolved pollutant", Type: Pollutant,
		BaseUnit:     "kg",
		DefaultTotal: unit.New(5e4, dimensionsFor(Pollutant)),
		Behavior: Behavior{
			DiffusivityMultiplier: 1.0,
			SigmaH:                800, SigmaV: 15,
		},
	})
	r.Register(&Descriptor{
		ID: "larval_cohort", Name: "Larval cohort", Type: Biological,
		BaseUnit:     "kg",
		DefaultTotal: unit.New(1, dimensionsFor(Biological)),
		Behavior: Behavior{
			DiffusivityMultiplier: 0.8,
			SigmaH:                200, SigmaV: 5,
		},
	})
	return r
}

func (d *Descriptor) String() string {
	return fmt.Sprintf("%s (%s, %s)", d.Name, d.ID, d.Type)
}
