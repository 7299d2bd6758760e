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
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oceantracer/plume/grid"
)

// LatLon is a release-location pair.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Config is the control interface's configure() payload, per spec.md
// section 6.
type Config struct {
	ReleaseLocation  LatLon    `json:"release_location"`
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
	TracerID         string    `json:"tracer_id"`
	ParticleCount    int       `json:"particle_count"`
	Phases           []Phase   `json:"phases"`
	RK4Enabled       bool      `json:"rk4_enabled"`
	DiffusivityScale float32   `json:"diffusivity_scale"`
	SimulationSpeed  float32   `json:"simulation_speed"`
	Seed             int64     `json:"seed,omitempty"` // 0 means a fresh entropy-sourced seed
}

// Run is the control interface: configure/start/pause/resume/reset,
// on_frame subscription, and prerender, wrapped around one
// ParticlePool/ReleaseSchedule/Integrator triple. It generalizes the
// teacher's Calculations/ResetCells/Log DomainManipulator pipeline
// (run.go) into a struct-based control surface, since SPEC_FULL's
// callback/prerender shape doesn't fit a single functional pipeline.
type Run struct {
	ID     uuid.UUID
	cfg    Config
	desc   *Descriptor
	logger *logrus.Entry

	registry    *Registry
	current     *grid.CurrentField
	diffusivity *grid.DiffusivityField

	mu         sync.Mutex
	pool       *ParticlePool
	schedule   *ReleaseSchedule
	clock      *SimulationClock
	integrator *Integrator
	settings   Settings
	seed       int64
	onFrame    []func(Snapshot)

	simDay          float64
	releasedTotal   int
	decayedTotal    int
	particlesOnLand int
	iteration       int

	running bool
	stopCh  chan struct{}
}

// Configure validates cfg and builds a new Run against the given
// fields and tracer registry. The run is not started.
func Configure(cfg Config, current *grid.CurrentField, diffusivity *grid.DiffusivityField, registry *Registry) (*Run, error) {
	if !cfg.EndDate.After(cfg.StartDate) {
		return nil, configurationErrorf("end_date", "must be after start_date")
	}
	if cfg.ParticleCount <= 0 {
		return nil, configurationErrorf("particle_count", "must be positive, got %d", cfg.ParticleCount)
	}
	desc, err := registry.Lookup(cfg.TracerID)
	if err != nil {
		return nil, err
	}
	schedule := NewReleaseSchedule()
	for _, p := range cfg.Phases {
		if err := schedule.AddPhase(p); err != nil {
			return nil, err
		}
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	pool := NewParticlePool(cfg.ParticleCount, cfg.ReleaseLocation.Lon, cfg.ReleaseLocation.Lat, rand.New(rand.NewSource(seed)))

	settings := DefaultSettings()
	settings.StartDate = cfg.StartDate
	settings.DiffusivityScale = float64(cfg.DiffusivityScale)
	if cfg.RK4Enabled {
		settings.Kind = RK4
	} else {
		settings.Kind = Euler
	}
	integrator := NewIntegrator(settings, current, diffusivity, rand.New(rand.NewSource(seed+1)))

	id := uuid.New()
	r := &Run{
		ID: id, cfg: cfg, desc: desc,
		registry: registry, current: current, diffusivity: diffusivity,
		pool: pool, schedule: schedule,
		clock:      NewSimulationClock(float64(cfg.SimulationSpeed)),
		integrator: integrator,
		settings:   settings,
		seed:       seed,
		logger:     logrus.WithFields(logrus.Fields{"run_id": id.String(), "tracer": desc.ID}),
	}
	return r, nil
}

// OnFrame registers a callback invoked with the current snapshot
// after every completed step.
func (r *Run) OnFrame(cb func(Snapshot)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onFrame = append(r.onFrame, cb)
}

// Start begins the real-time step loop, driven by the Run's
// SimulationClock. A no-op if already running.
func (r *Run) Start() error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.clock.Resume()
	r.mu.Unlock()
	go r.loop()
	return nil
}

// loop ticks the real-time clock and advances the simulation whenever
// it reports elapsed simulation-days, until Reset stops it.
func (r *Run) loop() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			dt := r.clock.Step()
			if dt <= 0 {
				continue
			}
			if _, err := r.advance(context.Background(), dt); err != nil {
				r.logger.WithError(err).Error("step failed, halting run")
				return
			}
		}
	}
}

// Pause halts real-elapsed integration; the loop keeps ticking but
// every Step() reports zero delta until Resume.
func (r *Run) Pause() error {
	r.clock.Pause()
	return nil
}

// Resume rebases the clock's wall-clock anchor to now.
func (r *Run) Resume() error {
	r.clock.Resume()
	return nil
}

// Reset stops the loop, recreates the particle pool with the original
// seed, and zeros every counter, so an identical configure+start
// after Reset reproduces the same trajectory (spec.md section 8,
// round-trip law 6).
func (r *Run) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		close(r.stopCh)
		r.running = false
	}
	r.pool = NewParticlePool(r.cfg.ParticleCount, r.cfg.ReleaseLocation.Lon, r.cfg.ReleaseLocation.Lat, rand.New(rand.NewSource(r.seed)))
	r.schedule = NewReleaseSchedule()
	for _, p := range r.cfg.Phases {
		if err := r.schedule.AddPhase(p); err != nil {
			return err
		}
	}
	r.integrator = NewIntegrator(r.settings, r.current, r.diffusivity, rand.New(rand.NewSource(r.seed+1)))
	r.clock.Reset()
	r.simDay, r.releasedTotal, r.decayedTotal, r.particlesOnLand, r.iteration = 0, 0, 0, 0, 0
	return nil
}

// oceanChecker adapts the Run's CurrentField into an OceanChecker for
// ParticlePool.Emit's land-rejection loop.
func (r *Run) oceanChecker() OceanChecker {
	return func(ctx context.Context, lon, lat, depthM, simDay float64) (bool, error) {
		return r.current.IsOcean(ctx, lon, lat, depthM, simDay)
	}
}

// advance runs one simulation step of deltaDays: release scheduling,
// integration, bookkeeping, and the on_frame callback fan-out. It is
// shared by the real-time loop and Prerender.
func (r *Run) advance(ctx context.Context, deltaDays float64) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	unitsPerParticle := r.schedule.UnitsPerParticle(r.pool.Capacity())
	n := r.schedule.Advance(r.simDay, deltaDays, r.pool.Capacity())
	for i := 0; i < n; i++ {
		initialConc := Concentration(r.desc, unitsPerParticle, 0)
		emitted, err := r.pool.Emit(ctx, r.desc.ID, unitsPerParticle, r.simDay, 0, initialConc, r.oceanChecker())
		if err != nil {
			return Snapshot{}, err
		}
		if emitted {
			r.releasedTotal++
		}
	}

	stats, err := r.integrator.Step(ctx, r.pool, r.registry, r.simDay, deltaDays)
	if err != nil {
		return Snapshot{}, err
	}
	r.decayedTotal += stats.Retired
	r.particlesOnLand = stats.ParticlesOnLand
	r.simDay += deltaDays
	r.iteration++

	dateUTC := r.cfg.StartDate.Add(time.Duration(r.simDay * secondsPerSimDay * float64(time.Second)))
	snap := BuildSnapshot(r.pool, dateUTC, r.simDay, r.releasedTotal, r.decayedTotal, r.particlesOnLand)

	r.logger.WithFields(logrus.Fields{
		"iteration": r.iteration, "sim_day": fmt.Sprintf("%.3f", r.simDay),
		"active": snap.Stats.ActiveCount, "decayed": r.decayedTotal, "on_land": r.particlesOnLand,
	}).Info("step")

	for _, cb := range r.onFrame {
		cb(snap)
	}
	return snap, nil
}

// PrerenderConfig configures a batch (pre-render) run to completion.
type PrerenderConfig struct {
	EndDay         float64      `json:"end_day"`
	FixedStep      float64      `json:"fixed_step"`      // simulation-days per tick, default 0.1
	RecordInterval float64      `json:"record_interval"` // simulation-days between recorded frames, default 1
	Progress       ProgressFunc `json:"-"`
}

// Prerender runs the simulation to config.EndDay without a real-time
// loop, recording a deep-copy snapshot at each multiple of
// RecordInterval and emitting coarse progress events, per spec.md
// section 4.11 and section 6. It returns the recorded snapshots, or
// ErrCancelled if ctx is cancelled between steps.
func (r *Run) Prerender(ctx context.Context, config PrerenderConfig) ([]Snapshot, error) {
	fixedStep := config.FixedStep
	if fixedStep <= 0 {
		fixedStep = 0.1
	}
	fb := NewFrameBuffer(config.RecordInterval)
	lastReportedDecile := -1

	for r.simDay < config.EndDay {
		select {
		case <-ctx.Done():
			return nil, ErrCancelled
		default:
		}
		dt := fixedStep
		if r.simDay+dt > config.EndDay {
			dt = config.EndDay - r.simDay
		}
		snap, err := r.advance(ctx, dt)
		if err != nil {
			return nil, err
		}
		fb.Record(snap, r.simDay)

		if config.Progress != nil {
			pct := r.simDay / config.EndDay * 100
			if decile := int(pct / 10); decile > lastReportedDecile {
				lastReportedDecile = decile
				config.Progress(pct, fmt.Sprintf("day %.1f/%.1f", r.simDay, config.EndDay))
			}
		}
	}
	if config.Progress != nil {
		config.Progress(100, "complete")
	}

	frames := fb.Frames()
	snaps := make([]Snapshot, len(frames))
	for i, f := range frames {
		snaps[i] = f.Snapshot
	}
	return snaps, nil
}

// SimDay returns the run's current simulation day.
func (r *Run) SimDay() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.simDay
}

// Pool exposes the run's particle pool for read access by a
// consumer that wants more than the Snapshot API's copy (e.g. a
// server pushing live positions without per-frame allocation).
func (r *Run) Pool() *ParticlePool { return r.pool }
