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
	"math"

	"gonum.org/v1/gonum/floats"
)

// massFloorFraction is the fraction of a particle's initial mass
// below which it is retired, per spec.md section 3 and section 4.8
// step 5.
const massFloorFraction = 1e-3

// ApplySettling adds a tracer's deterministic vertical settling
// contribution to a particle's depth. The Integrator calls it after
// the vertical random walk and before clamping depth. Sign convention:
// positive SettlingVelocity sinks (spec.md section 3).
func ApplySettling(p *Particle, desc *Descriptor, deltaDays float64) {
	p.DepthKm += desc.Behavior.SettlingVelocity * deltaDays / 1000
}

// ApplyDecay evolves a particle's mass by radioactive half-life and
// evaporation, per spec.md section 4.8 step 5, and reports whether it
// fell below its retirement floor.
func ApplyDecay(p *Particle, desc *Descriptor, deltaDays float64) (retire bool) {
	if desc.Behavior.DecayEnabled && desc.HalfLifeDays > 0 {
		p.Mass *= math.Pow(2, -deltaDays/desc.HalfLifeDays)
	}
	if desc.Behavior.EvaporationRate > 0 {
		p.Mass *= math.Exp(-desc.Behavior.EvaporationRate * deltaDays / 30)
	}
	if p.Mass < massFloorFraction*p.InitialMass {
		return true
	}
	return false
}

// TotalActiveMass sums the mass of every active particle in pool,
// the run-level figure checked against the mass-conservation
// invariant (spec.md section 8, invariant 2).
func TotalActiveMass(pool *ParticlePool) float64 {
	masses := make([]float64, 0, pool.Capacity())
	pool.Each(func(_ int, p *Particle) {
		masses = append(masses, p.Mass)
	})
	return floats.Sum(masses)
}
