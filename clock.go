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

const secondsPerSimDay = 86400.0

// SimulationClock maps real elapsed wall-clock time to simulation
// days, scaled by a speed multiplier. It captures the
// capture-a-`time.Time`-anchor-and-rebase-it idiom the teacher uses
// in its own step-loop timer (run.go's Log closure), generalized to
// support pause/resume/reset.
type SimulationClock struct {
	speed       float64
	anchor      time.Time
	paused      bool
	elapsedDays float64
	startedAt   time.Time
}

// NewSimulationClock returns a clock running at speed simulation-days
// per wall-clock day (i.e. speed=1 means real time; speed=86400 means
// one simulated day passes every wall-clock second).
func NewSimulationClock(speed float64) *SimulationClock {
	now := time.Now()
	return &SimulationClock{speed: speed, anchor: now, startedAt: now}
}

// SetSpeed changes the speed multiplier. It takes effect on the next
// Step call, per spec.md section 4.10.
func (c *SimulationClock) SetSpeed(speed float64) { c.speed = speed }

// Step returns the elapsed simulation-days since the last Step (or
// since Pause/Resume), and rebases its anchor to now. Returns 0 while
// paused.
func (c *SimulationClock) Step() float64 {
	if c.paused {
		return 0
	}
	now := time.Now()
	real := now.Sub(c.anchor).Seconds()
	c.anchor = now
	delta := real * c.speed / secondsPerSimDay
	c.elapsedDays += delta
	return delta
}

// Pause halts real-elapsed integration; Step returns 0 until Resume.
func (c *SimulationClock) Pause() { c.paused = true }

// Resume rebases the wall-clock anchor to now, so the next Step's
// delta is computed from the resume instant with no catch-up for time
// spent paused.
func (c *SimulationClock) Resume() {
	c.paused = false
	c.anchor = time.Now()
}

// Reset zeros elapsed simulation-days and rebases the anchor to now.
func (c *SimulationClock) Reset() {
	now := time.Now()
	c.anchor = now
	c.startedAt = now
	c.elapsedDays = 0
	c.paused = false
}

// ElapsedDays returns the total simulation-days elapsed since the
// last Reset.
func (c *SimulationClock) ElapsedDays() float64 { return c.elapsedDays }

// Paused reports whether the clock is currently paused.
func (c *SimulationClock) Paused() bool { return c.paused }

// dayOfYear returns the day-of-year (0-365) for a simulation day
// measured from startDate, used by the winter-convective-mixing
// condition in the integrator (spec.md section 4.8 step 4).
func dayOfYear(startDate time.Time, simDay float64) int {
	t := startDate.Add(time.Duration(simDay * secondsPerSimDay * float64(time.Second)))
	return t.YearDay() - 1
}
