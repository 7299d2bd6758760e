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

import "sort"

// DefaultRecordInterval is the spacing, in simulation-days, between
// recorded frames in pre-render (batch) mode, per spec.md section
// 4.11.
const DefaultRecordInterval = 1.0

// Frame is one recorded snapshot in a FrameBuffer.
type Frame struct {
	SimDay   float64
	Snapshot Snapshot
}

// FrameBuffer records periodic deep-copy snapshots during a pre-render
// run and serves them back by simulation-day seek, mirroring the
// teacher's Results() deep-copy-on-demand pattern (run.go) generalized
// to a time-indexed series with binary search.
type FrameBuffer struct {
	recordInterval float64
	nextRecordDay  float64
	frames         []Frame
}

// NewFrameBuffer returns an empty buffer that records a frame every
// recordInterval simulation-days.
func NewFrameBuffer(recordInterval float64) *FrameBuffer {
	if recordInterval <= 0 {
		recordInterval = DefaultRecordInterval
	}
	return &FrameBuffer{recordInterval: recordInterval}
}

// Record appends a frame if simDay has reached the next recording
// boundary. It is a no-op otherwise, so callers can invoke it every
// fixed-step tick without checking the interval themselves.
func (fb *FrameBuffer) Record(snap Snapshot, simDay float64) {
	if simDay+1e-9 < fb.nextRecordDay {
		return
	}
	fb.frames = append(fb.frames, Frame{SimDay: simDay, Snapshot: snap})
	fb.nextRecordDay += fb.recordInterval
}

// Frames returns every recorded frame, in ascending simulation-day
// order.
func (fb *FrameBuffer) Frames() []Frame { return fb.frames }

// Seek returns the pair of frames bracketing simDay (before, after),
// found=false if simDay is outside the recorded range. If simDay
// exactly matches a recorded frame, before==after==that frame.
func (fb *FrameBuffer) Seek(simDay float64) (before, after Frame, found bool) {
	if len(fb.frames) == 0 {
		return Frame{}, Frame{}, false
	}
	i := sort.Search(len(fb.frames), func(i int) bool { return fb.frames[i].SimDay >= simDay })
	if i == 0 {
		if fb.frames[0].SimDay == simDay {
			return fb.frames[0], fb.frames[0], true
		}
		return Frame{}, Frame{}, false
	}
	if i == len(fb.frames) {
		return Frame{}, Frame{}, false
	}
	if fb.frames[i].SimDay == simDay {
		return fb.frames[i], fb.frames[i], true
	}
	return fb.frames[i-1], fb.frames[i], true
}

// Interpolate returns a position-only frame linearly interpolated
// between the bracketing recorded frames at simDay, for continuous
// playback consumers that don't want the bracketing pair themselves.
// It pairs records by their index in the two particle lists. Those
// lists hold only active particles in slot order, and Emit reuses
// retired slots, so an emission or retirement between the two frames
// pairs different particles; records beyond the shorter list are
// dropped.
func (fb *FrameBuffer) Interpolate(simDay float64) (Snapshot, bool) {
	before, after, found := fb.Seek(simDay)
	if !found {
		return Snapshot{}, false
	}
	if before.SimDay == after.SimDay {
		return before.Snapshot, true
	}
	frac := (simDay - before.SimDay) / (after.SimDay - before.SimDay)
	n := len(before.Snapshot.Particles)
	if len(after.Snapshot.Particles) < n {
		n = len(after.Snapshot.Particles)
	}
	records := make([]ParticleRecord, n)
	for i := 0; i < n; i++ {
		b, a := before.Snapshot.Particles[i], after.Snapshot.Particles[i]
		records[i] = ParticleRecord{
			XKm:     lerp(b.XKm, a.XKm, frac),
			YKm:     lerp(b.YKm, a.YKm, frac),
			DepthKm: lerp(b.DepthKm, a.DepthKm, frac),
			Active:  a.Active,
			SpeciesID: a.SpeciesID,
		}
	}
	stats := after.Snapshot.Stats
	stats.SimDay = simDay
	return Snapshot{Particles: records, Stats: stats}, true
}

func lerp(a, b, frac float64) float64 { return a + (b-a)*frac }

// ProgressFunc receives coarse-percentage progress events during a
// pre-render run, per spec.md section 6.
type ProgressFunc func(percent float64, message string)
