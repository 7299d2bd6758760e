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

import "math"

// baseUnitMultiplier converts a phase's declared unit into the
// species' base unit, per spec.md section 4.6's fixed table. GBq is
// the implicit base unit for activity; kg is the implicit base unit
// for mass. Units not in the table pass through unscaled (kg, GBq,
// and any species-defined base unit already match the base).
var baseUnitMultiplier = map[string]float64{
	"Bq":  1e-9,
	"GBq": 1,
	"TBq": 1e3,
	"PBq": 1e6,
	"kg":  1,
	"tons": 1e3,
}

// Phase is an immutable release-phase descriptor: a fixed total
// released at a uniform rate between start_day and end_day.
type Phase struct {
	StartDay float64 `json:"start_day"`
	EndDay   float64 `json:"end_day"`
	Total    float64 `json:"total"`
	Unit     string  `json:"unit"`
}

func (p Phase) duration() float64 { return p.EndDay - p.StartDay }

// rateBaseUnit returns this phase's total, converted to the species'
// base unit, divided by its duration.
func (p Phase) rateBaseUnit() float64 {
	mult, ok := baseUnitMultiplier[p.Unit]
	if !ok {
		mult = 1
	}
	return (p.Total * mult) / p.duration()
}

func (p Phase) totalBaseUnit() float64 {
	mult, ok := baseUnitMultiplier[p.Unit]
	if !ok {
		mult = 1
	}
	return p.Total * mult
}

// ReleaseSchedule is an ordered, non-overlapping list of release
// phases plus the fractional-particle accumulator described in
// spec.md section 4.6.
type ReleaseSchedule struct {
	phases   []Phase
	residual float64
}

// NewReleaseSchedule returns an empty schedule.
func NewReleaseSchedule() *ReleaseSchedule {
	return &ReleaseSchedule{}
}

// AddPhase inserts a phase in start_day order, rejecting an inverted
// interval (end_day <= start_day), a non-positive total, or overlap
// with an existing phase.
func (s *ReleaseSchedule) AddPhase(p Phase) error {
	if p.EndDay <= p.StartDay {
		return configurationErrorf("phase", "end_day %.3f must be greater than start_day %.3f", p.EndDay, p.StartDay)
	}
	if p.Total <= 0 {
		return configurationErrorf("phase", "total %.6g must be positive", p.Total)
	}
	for _, existing := range s.phases {
		if p.StartDay < existing.EndDay && existing.StartDay < p.EndDay {
			return configurationErrorf("phase", "phase [%.3f, %.3f] overlaps existing phase [%.3f, %.3f]",
				p.StartDay, p.EndDay, existing.StartDay, existing.EndDay)
		}
	}
	s.phases = append(s.phases, p)
	// Keep phases sorted by start_day, per spec.md section 4.6.
	for i := len(s.phases) - 1; i > 0 && s.phases[i].StartDay < s.phases[i-1].StartDay; i-- {
		s.phases[i], s.phases[i-1] = s.phases[i-1], s.phases[i]
	}
	return nil
}

// Phases returns the schedule's phases in start_day order.
func (s *ReleaseSchedule) Phases() []Phase { return s.phases }

// RateAt returns the active phase's rate, in the species' base unit
// per day, and the active phase itself. Returns (0, nil) if no phase
// covers day.
func (s *ReleaseSchedule) RateAt(day float64) (float64, *Phase) {
	for i := range s.phases {
		p := &s.phases[i]
		if day >= p.StartDay && day < p.EndDay {
			return p.rateBaseUnit(), p
		}
	}
	return 0, nil
}

// TotalBaseUnit returns the sum of every phase's total, converted to
// the species' base unit.
func (s *ReleaseSchedule) TotalBaseUnit() float64 {
	var total float64
	for _, p := range s.phases {
		total += p.totalBaseUnit()
	}
	return total
}

// UnitsPerParticle returns Sigma(phase total in base unit) /
// particleCapacity, the per-particle mass/activity quantum used by
// both Advance and ParticlePool.Emit.
func (s *ReleaseSchedule) UnitsPerParticle(particleCapacity int) float64 {
	if particleCapacity <= 0 {
		return 0
	}
	return s.TotalBaseUnit() / float64(particleCapacity)
}

// Advance accumulates rate_at(currentDay) * deltaDays / unitsPerParticle
// into the fractional counter and returns the whole number of
// particles to emit, subtracting that amount from the counter. This
// preserves exact conservation of the declared total release across
// arbitrarily small steps (spec.md section 4.6).
func (s *ReleaseSchedule) Advance(currentDay, deltaDays float64, particleCapacity int) int {
	unitsPerParticle := s.UnitsPerParticle(particleCapacity)
	if unitsPerParticle <= 0 {
		return 0
	}
	rate, _ := s.RateAt(currentDay)
	s.residual += rate * deltaDays / unitsPerParticle
	n := math.Floor(s.residual)
	s.residual -= n
	return int(n)
}

// Residual returns the current fractional-particle accumulator,
// exposed for tests of spec.md section 8 invariant 10.
func (s *ReleaseSchedule) Residual() float64 { return s.residual }
