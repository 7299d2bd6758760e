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
	"time"

	"github.com/oceantracer/plume/grid"
)

// IntegratorKind tags which advection scheme a step uses. This is the
// tagged-variant dispatch SPEC_FULL section 9 calls for in place of
// an "if (engine) { engine.doX() }" check.
type IntegratorKind int

const (
	Euler IntegratorKind = iota
	RK4
)

// mPerSecondToKmPerDay converts a velocity in m/s to km/day:
// 86400 s/day / 1000 m/km = 86.4.
const mPerSecondToKmPerDay = 86.4

// Vertical mixing constants, spec.md section 4.8 step 4.
const (
	kzShallow    = 1e-2  // m^2/s, above 50 m
	kzMid        = 1e-4  // m^2/s, 50-200 m
	kzDeep       = 5e-5  // m^2/s, below 200 m
	ekmanMS      = 5e-6  // m/s, always downward
	convectiveMS = 2e-6  // m/s, Northern-hemisphere winter, depth < 100 m
	fallbackK    = 20.0  // m^2/s, used when no DiffusivityField is configured
)

// Settings configures one Integrator: the advection scheme, the
// diffusion and land-rejection policies, and the RK4 adaptive-step
// parameters.
type Settings struct {
	Kind                IntegratorKind
	DiffusivityScale    float64 // configure()'s diffusivity_scale
	VerticalMixing      bool
	MaxLandSearchRadius int
	CoastalPushStrength float64 // km added per day of push toward open water
	MinStep, MaxStep    float64 // RK4 substep bounds, simulation-days
	Safety              float64 // RK4 step-size safety numerator
	StartDate           time.Time
}

// DefaultSettings returns the baseline RK4/land-rejection parameters
// used unless configure() overrides them.
func DefaultSettings() Settings {
	return Settings{
		Kind:                RK4,
		DiffusivityScale:    1.0,
		VerticalMixing:      true,
		MaxLandSearchRadius: 10,
		CoastalPushStrength: 3,
		MinStep:             1.0 / 1440, // one minute
		MaxStep:             1.0,
		Safety:              0.05,
		StartDate:           time.Now(),
	}
}

// Integrator advances a ParticlePool by one simulation step, reading
// velocity and diffusivity from the grid field caches. It holds no
// particle state of its own.
type Integrator struct {
	settings     Settings
	current      *grid.CurrentField
	diffusivity  *grid.DiffusivityField // nil disables the real K lookup; fallbackK is used
	rng          *rand.Rand
}

// NewIntegrator builds an Integrator against the given fields. diff
// may be nil, in which case every horizontal diffusion draw uses
// fallbackK per spec.md section 4.8 step 2.
func NewIntegrator(settings Settings, current *grid.CurrentField, diff *grid.DiffusivityField, rng *rand.Rand) *Integrator {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Integrator{settings: settings, current: current, diffusivity: diff, rng: rng}
}

// StepStats summarizes one Integrator.Step call across the whole
// pool, for the run loop's gauges and log line.
type StepStats struct {
	ParticlesOnLand int
	Retired         int
}

// Step advances every active particle in pool by deltaDays of
// simulated time, at simDay, per the seven-stage pipeline in spec.md
// section 4.8.
func (in *Integrator) Step(ctx context.Context, pool *ParticlePool, registry *Registry, simDay, deltaDays float64) (StepStats, error) {
	var stats StepStats
	var stepErr error
	pool.Each(func(i int, p *Particle) {
		if stepErr != nil {
			return
		}
		desc, err := registry.Lookup(p.Species)
		if err != nil {
			stepErr = err
			return
		}
		onLand, retired, err := in.stepParticle(ctx, pool, p, desc, simDay, deltaDays)
		if err != nil {
			stepErr = err
			return
		}
		if onLand {
			stats.ParticlesOnLand++
		}
		if retired {
			pool.Retire(i)
			stats.Retired++
		}
		p.AgeDays += deltaDays
	})
	return stats, stepErr
}

func (in *Integrator) stepParticle(ctx context.Context, pool *ParticlePool, p *Particle, desc *Descriptor, simDay, deltaDays float64) (onLand, retired bool, err error) {
	prevX, prevY, prevDepth := p.X, p.Y, p.DepthKm
	deltaSeconds := deltaDays * secondsPerSimDay

	// 1. Advection.
	var newX, newY float64
	var usedEuler bool
	if in.settings.Kind == RK4 {
		newX, newY, usedEuler, err = in.advectRK4(ctx, pool, p, simDay, deltaDays)
	} else {
		newX, newY, err = in.advectEuler(ctx, pool, p, simDay, deltaDays)
		usedEuler = true
	}
	if err != nil {
		return false, false, err
	}
	if usedEuler {
		p.LastIntegrator = "euler"
	} else {
		p.LastIntegrator = "rk4"
	}
	p.X, p.Y = newX, newY

	// 2. Horizontal random walk.
	lon, lat := pool.ToLonLat(p.X, p.Y)
	k := fallbackK
	if in.diffusivity != nil {
		if kk, found, derr := in.diffusivity.DiffusivityAt(ctx, lon, lat, simDay); derr != nil {
			return false, false, derr
		} else if found {
			k = kk
		}
	}
	stepM := math.Sqrt(2 * k * in.settings.DiffusivityScale * desc.Behavior.DiffusivityMultiplier * deltaSeconds)
	stepKm := stepM / 1000
	p.X += stepKm * in.stdNormal()
	p.Y += stepKm * in.stdNormal()

	// 3. Land rejection.
	lon, lat = pool.ToLonLat(p.X, p.Y)
	depthM := p.DepthKm * 1000
	ocean, err := in.current.IsOcean(ctx, lon, lat, depthM, simDay)
	if err != nil {
		return false, false, err
	}
	if !ocean {
		p.X, p.Y, p.DepthKm = prevX, prevY, prevDepth
		lon, lat = pool.ToLonLat(p.X, p.Y)
		cellLon, cellLat, found, nerr := in.current.NearestOceanCell(ctx, lon, lat, depthM, simDay, in.settings.MaxLandSearchRadius)
		if nerr != nil {
			return false, false, nerr
		}
		if found {
			targetX, targetY := pool.ToXY(cellLon, cellLat)
			push := in.settings.CoastalPushStrength * deltaDays
			p.X += clampPush(targetX-p.X, push)
			p.Y += clampPush(targetY-p.Y, push)
		} else {
			onLand = true
		}
	}

	// 4. Vertical motion.
	if in.settings.VerticalMixing {
		depthMeters := p.DepthKm * 1000
		kz := kzShallow
		switch {
		case depthMeters > 200:
			kz = kzDeep
		case depthMeters > 50:
			kz = kzMid
		}
		dzM := math.Sqrt(2*kz*deltaSeconds) * in.stdNormal()
		dzM += ekmanMS * deltaSeconds
		doy := dayOfYear(in.settings.StartDate, simDay)
		if (doy >= 335 || doy <= 90) && depthMeters < 100 {
			dzM += convectiveMS * deltaSeconds
		}
		p.DepthKm += dzM / 1000
	}
	ApplySettling(p, desc, deltaDays)
	p.DepthKm = clampf(p.DepthKm, 0, 1.0)

	// 5. Decay / mass loss.
	if ApplyDecay(p, desc, deltaDays) {
		retired = true
	}

	// 6. Concentration update.
	p.Concentration = Concentration(desc, p.Mass, p.DepthKm)

	// 7. Trail update.
	appendTrail(p, p.X, p.Y, p.DepthKm)

	return onLand, retired, nil
}

// clampPush returns delta clamped to +/-limit, preserving sign -- the
// coastal push moves at most `limit` km toward the target this step.
func clampPush(delta, limit float64) float64 {
	if delta > limit {
		return limit
	}
	if delta < -limit {
		return -limit
	}
	return delta
}

// stdNormal draws one N(0,1) sample via Box-Muller.
func (in *Integrator) stdNormal() float64 {
	u1 := in.rng.Float64()
	u2 := in.rng.Float64()
	if u1 < 1e-12 {
		u1 = 1e-12
	}
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// sampleVelocity looks up (u, v) in m/s at (lon, lat, depthM, day).
// found is false on a LookupMiss (land sentinel, no native cell), a
// condition recovered locally (spec.md section 7) rather than
// returned as an error.
func (in *Integrator) sampleVelocity(ctx context.Context, lon, lat, depthM, day float64) (u, v float64, found bool, err error) {
	vel, err := in.current.VelocityAt(ctx, lon, lat, depthM, day)
	if err != nil {
		return 0, 0, false, err
	}
	return vel.U, vel.V, vel.Found, nil
}

// advectEuler applies first-order advection from the particle's
// current position. A LookupMiss contributes zero displacement.
func (in *Integrator) advectEuler(ctx context.Context, pool *ParticlePool, p *Particle, simDay, deltaDays float64) (x, y float64, err error) {
	lon, lat := pool.ToLonLat(p.X, p.Y)
	depthM := p.DepthKm * 1000
	u, v, found, err := in.sampleVelocity(ctx, lon, lat, depthM, simDay)
	if err != nil {
		return p.X, p.Y, err
	}
	if !found {
		return p.X, p.Y, nil
	}
	p.LastU, p.LastV = u, v
	return p.X + u*mPerSecondToKmPerDay*deltaDays, p.Y + v*mPerSecondToKmPerDay*deltaDays, nil
}

// advectRK4 performs adaptive-step fourth-order Runge-Kutta advection
// over deltaDays, per spec.md section 4.8 step 1. usedEuler reports
// whether any slope lookup failed mid-step, in which case the whole
// step falls back to Euler advection from the particle's original
// position using a fresh velocity sample.
func (in *Integrator) advectRK4(ctx context.Context, pool *ParticlePool, p *Particle, simDay, deltaDays float64) (x, y float64, usedEuler bool, err error) {
	speed := math.Hypot(p.LastU, p.LastV)
	const eps = 1e-6
	h := in.settings.Safety / (speed + eps)
	h = clampf(h, in.settings.MinStep, math.Min(in.settings.MaxStep, deltaDays))
	n := int(math.Ceil(deltaDays / h))
	if n < 1 {
		n = 1
	}
	h = deltaDays / float64(n)

	depthM := p.DepthKm * 1000
	px, py := p.X, p.Y
	t := simDay
	for step := 0; step < n; step++ {
		lon1, lat1 := pool.ToLonLat(px, py)
		u1, v1, found1, err := in.sampleVelocity(ctx, lon1, lat1, depthM, t)
		if err != nil {
			return p.X, p.Y, false, err
		}
		if !found1 {
			ex, ey, eerr := in.advectEuler(ctx, pool, p, simDay, deltaDays)
			return ex, ey, true, eerr
		}
		k1x, k1y := u1*mPerSecondToKmPerDay, v1*mPerSecondToKmPerDay

		lon2, lat2 := pool.ToLonLat(px+k1x*h/2, py+k1y*h/2)
		u2, v2, found2, err := in.sampleVelocity(ctx, lon2, lat2, depthM, t+h/2)
		if err != nil {
			return p.X, p.Y, false, err
		}
		if !found2 {
			ex, ey, eerr := in.advectEuler(ctx, pool, p, simDay, deltaDays)
			return ex, ey, true, eerr
		}
		k2x, k2y := u2*mPerSecondToKmPerDay, v2*mPerSecondToKmPerDay

		lon3, lat3 := pool.ToLonLat(px+k2x*h/2, py+k2y*h/2)
		u3, v3, found3, err := in.sampleVelocity(ctx, lon3, lat3, depthM, t+h/2)
		if err != nil {
			return p.X, p.Y, false, err
		}
		if !found3 {
			ex, ey, eerr := in.advectEuler(ctx, pool, p, simDay, deltaDays)
			return ex, ey, true, eerr
		}
		k3x, k3y := u3*mPerSecondToKmPerDay, v3*mPerSecondToKmPerDay

		lon4, lat4 := pool.ToLonLat(px+k3x*h, py+k3y*h)
		u4, v4, found4, err := in.sampleVelocity(ctx, lon4, lat4, depthM, t+h)
		if err != nil {
			return p.X, p.Y, false, err
		}
		if !found4 {
			ex, ey, eerr := in.advectEuler(ctx, pool, p, simDay, deltaDays)
			return ex, ey, true, eerr
		}
		k4x, k4y := u4*mPerSecondToKmPerDay, v4*mPerSecondToKmPerDay

		px += h / 6 * (k1x + 2*k2x + 2*k3x + k4x)
		py += h / 6 * (k1y + 2*k2y + 2*k3y + k4y)
		p.LastU, p.LastV = u1, v1
		t += h
	}
	return px, py, false, nil
}
