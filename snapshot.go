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

import "time"

// ParticleRecord is a read-only, per-particle view exposed by the
// Snapshot API, per spec.md section 6.
type ParticleRecord struct {
	XKm           float64      `json:"x_km"`
	YKm           float64      `json:"y_km"`
	DepthKm       float64      `json:"depth_km"`
	Concentration float64      `json:"concentration"`
	AgeDays       float64      `json:"age_days"`
	Mass          float64      `json:"mass"`
	Active        bool         `json:"active"`
	SpeciesID     string       `json:"species_id"`
	Trail         []TrailPoint `json:"trail,omitempty"`
}

// SummaryStats are the aggregate figures carried alongside each
// Snapshot's particle list.
type SummaryStats struct {
	SimDay           float64   `json:"sim_day"`
	DateUTC          time.Time `json:"date_utc"`
	ReleasedTotal    int       `json:"released_total"`
	DecayedTotal     int       `json:"decayed_total"`
	ActiveCount      int       `json:"active_count"`
	ParticlesOnLand  int       `json:"particles_on_land"`
	MaxDepthM        float64   `json:"max_depth_m"`
	MaxConcentration float64   `json:"max_concentration"`
}

// Snapshot is a read-only view of a ParticlePool at one simulation
// day, handed to on_frame callbacks and recorded by FrameBuffer.
type Snapshot struct {
	Particles []ParticleRecord `json:"particles"`
	Stats     SummaryStats     `json:"stats"`
}

// BuildSnapshot copies every active particle in pool into a read-only
// Snapshot. The copy is deliberate: ParticlePool exclusively owns
// particle storage (spec.md section 3, Ownership) and the Integrator
// continues mutating it on the next step.
func BuildSnapshot(pool *ParticlePool, dateUTC time.Time, simDay float64, releasedTotal, decayedTotal, particlesOnLand int) Snapshot {
	var records []ParticleRecord
	var maxDepthM, maxConcentration float64
	active := 0
	pool.Each(func(_ int, p *Particle) {
		active++
		trail := make([]TrailPoint, len(p.Trail))
		copy(trail, p.Trail)
		records = append(records, ParticleRecord{
			XKm: p.X, YKm: p.Y, DepthKm: p.DepthKm,
			Concentration: p.Concentration,
			AgeDays:       p.AgeDays,
			Mass:          p.Mass,
			Active:        p.Active,
			SpeciesID:     p.Species,
			Trail:         trail,
		})
		if depthM := p.DepthKm * 1000; depthM > maxDepthM {
			maxDepthM = depthM
		}
		if p.Concentration > maxConcentration {
			maxConcentration = p.Concentration
		}
	})
	return Snapshot{
		Particles: records,
		Stats: SummaryStats{
			SimDay: simDay, DateUTC: dateUTC,
			ReleasedTotal: releasedTotal, DecayedTotal: decayedTotal,
			ActiveCount: active, ParticlesOnLand: particlesOnLand,
			MaxDepthM: maxDepthM, MaxConcentration: maxConcentration,
		},
	}
}
