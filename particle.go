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
	"context"
	"math"
	"math/rand"
)

// Flat-Earth scale constants, valid near 37 degrees latitude, per
// spec.md section 4.7.
const (
	lonScaleKmPerDeg = 88.8
	latScaleKmPerDeg = 111.0

	maxTrailLength = 8
	// MaxEmitAttempts bounds the land-rejection resampling loop in
	// ParticlePool.Emit.
	MaxEmitAttempts = 1000
)

// TrailPoint is one recorded position along a particle's visualization
// trail.
type TrailPoint struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	DepthKm float64 `json:"depth_km"`
}

// Particle is one fictitious parcel carrying a fraction of the
// released mass/activity. See spec.md section 3 for the invariants:
// an inactive particle has no meaningful position, age, or mass.
type Particle struct {
	ID       uint64
	Active   bool
	Species  string // registry key
	X, Y     float64 // km, relative to the release origin
	DepthKm  float64 // 0 = surface, positive downward, clamped to [0, 1]
	AgeDays  float64
	Mass     float64 // remaining, in the species' base unit
	InitialMass float64 // set at emit; decay floor is 1e-3 of this
	Concentration float64
	LastU, LastV  float64 // m/s, last sampled velocity
	Trail         []TrailPoint
	LastIntegrator string // "euler" or "rk4", set each step
}

// OceanChecker reports whether (lon, lat, depthM) is open ocean at
// simDay. ParticlePool.Emit takes one as a parameter rather than
// holding a *grid.CurrentField directly, so the pool does not depend
// on how "ocean" is determined. The Integrator's land-rejection step
// calls CurrentField.IsOcean directly.
type OceanChecker func(ctx context.Context, lon, lat, depthM, simDay float64) (bool, error)

// ParticlePool is a dense, fixed-capacity array of particle records
// with no per-step allocation: Emit and Retire only flip the Active
// flag and overwrite fields in place.
type ParticlePool struct {
	particles      []Particle
	refLon, refLat float64
	rng            *rand.Rand
	nextID         uint64
}

// NewParticlePool allocates a pool of the given capacity, centered on
// (refLon, refLat). rng drives Box-Muller position sampling; pass a
// seeded *rand.Rand for reproducible runs (spec.md section 8,
// invariant 5).
func NewParticlePool(capacity int, refLon, refLat float64, rng *rand.Rand) *ParticlePool {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &ParticlePool{
		particles: make([]Particle, capacity),
		refLon:    refLon, refLat: refLat,
		rng: rng,
	}
}

// Capacity returns the pool's fixed particle capacity.
func (p *ParticlePool) Capacity() int { return len(p.particles) }

// At returns a pointer to the particle record at index i, active or
// not. The Integrator and snapshot code use this for direct mutation
// and read access respectively.
func (p *ParticlePool) At(i int) *Particle { return &p.particles[i] }

// firstInactiveSlot returns the index of the first inactive particle
// record, or -1 if the pool is full.
func (p *ParticlePool) firstInactiveSlot() int {
	for i := range p.particles {
		if !p.particles[i].Active {
			return i
		}
	}
	return -1
}

// ToLonLat converts a particle's (x, y) km offset back to (lon, lat)
// around the pool's release origin.
func (p *ParticlePool) ToLonLat(x, y float64) (lon, lat float64) {
	return p.refLon + x/lonScaleKmPerDeg, p.refLat + y/latScaleKmPerDeg
}

// ToXY converts (lon, lat) to a km offset around the release origin.
func (p *ParticlePool) ToXY(lon, lat float64) (x, y float64) {
	return (lon - p.refLon) * lonScaleKmPerDeg, (lat - p.refLat) * latScaleKmPerDeg
}

// Emit samples a Box-Muller-distributed release position around the
// pool's origin (sigma = 30 km, clipped at +/-3 sigma), rejecting
// samples that land on land, and activates the first free slot with
// it. Returns emitted=false without error if the pool is full or if
// no ocean position was found within MaxEmitAttempts -- per spec.md
// section 4.7, the schedule's fractional accumulator retains the
// unreleased amount in either case.
func (p *ParticlePool) Emit(ctx context.Context, species string, unitsPerParticle, simDay, depthM float64, initialConcentration float64, ocean OceanChecker) (emitted bool, err error) {
	slot := p.firstInactiveSlot()
	if slot < 0 {
		return false, nil
	}

	const sigmaKm = 30.0
	sigmaDeg := sigmaKm / lonScaleKmPerDeg

	for attempt := 0; attempt < MaxEmitAttempts; attempt++ {
		dLon, dLat := p.boxMuller(sigmaDeg)
		lon := p.refLon + dLon
		lat := p.refLat + dLat
		isOcean, err := ocean(ctx, lon, lat, depthM, simDay)
		if err != nil {
			return false, err
		}
		if !isOcean {
			continue
		}
		x, y := p.ToXY(lon, lat)
		p.nextID++
		pt := &p.particles[slot]
		*pt = Particle{
			ID:            p.nextID,
			Active:        true,
			Species:       species,
			X:             x,
			Y:             y,
			DepthKm:       0,
			AgeDays:       0,
			Mass:          unitsPerParticle,
			InitialMass:   unitsPerParticle,
			Concentration: initialConcentration,
			Trail:         []TrailPoint{{X: x, Y: y, DepthKm: 0}},
		}
		return true, nil
	}
	return false, nil
}

// boxMuller draws a pair of independent N(0, sigma^2) samples via the
// Box-Muller transform, clipped at +/-3 sigma per spec.md section 4.7.
func (p *ParticlePool) boxMuller(sigma float64) (x, y float64) {
	u1 := p.rng.Float64()
	u2 := p.rng.Float64()
	if u1 < 1e-12 {
		u1 = 1e-12
	}
	r := math.Sqrt(-2 * math.Log(u1))
	x = sigma * r * math.Cos(2*math.Pi*u2)
	y = sigma * r * math.Sin(2*math.Pi*u2)
	clip := 3 * sigma
	x = clampf(x, -clip, clip)
	y = clampf(y, -clip, clip)
	return x, y
}

// Retire deactivates the particle at index i.
func (p *ParticlePool) Retire(i int) {
	p.particles[i].Active = false
}

// Each calls f once for every active particle's index, in storage
// order. Mutating f is expected -- the Integrator (and the
// DecaySettling functions it calls) mutate particles in place through
// the pointer f receives.
func (p *ParticlePool) Each(f func(i int, particle *Particle)) {
	for i := range p.particles {
		if p.particles[i].Active {
			f(i, &p.particles[i])
		}
	}
}

// Counts returns the number of active particles and the number of
// storage slots that have ever been used (active + retired).
func (p *ParticlePool) Counts() (active, everUsed int) {
	for i := range p.particles {
		if p.particles[i].Active {
			active++
		}
		if p.particles[i].ID != 0 {
			everUsed++
		}
	}
	return active, everUsed
}

// appendTrail pushes (x, y, depthKm) onto a particle's trail if it
// has moved more than 1 km on either axis since the last recorded
// point, evicting the oldest point once the trail reaches
// maxTrailLength (spec.md section 4.8 step 7).
func appendTrail(p *Particle, x, y, depthKm float64) {
	if len(p.Trail) > 0 {
		last := p.Trail[len(p.Trail)-1]
		if math.Abs(x-last.X) <= 1 && math.Abs(y-last.Y) <= 1 {
			return
		}
	}
	p.Trail = append(p.Trail, TrailPoint{X: x, Y: y, DepthKm: depthKm})
	if len(p.Trail) > maxTrailLength {
		p.Trail = p.Trail[len(p.Trail)-maxTrailLength:]
	}
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
