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

package grid

import (
	"encoding/json"
	"os"
	"sort"
)

// DayEntry describes one day's file within an archive.
type DayEntry struct {
	Year      int    `json:"year"`
	Month     int    `json:"month"`
	Day       int    `json:"day"`
	File      string `json:"file"`
	DayOffset int    `json:"day_offset"`
}

// Metadata describes an archive: its identifier, date coverage, and
// (for current archives) the depth levels in meters. Diffusivity
// archives leave Depths nil.
type Metadata struct {
	DatasetID string     `json:"dataset_id"`
	Days      []DayEntry `json:"days"`
	NLat      int        `json:"n_lat"`
	NLon      int        `json:"n_lon"`
	Depths    []float64  `json:"depths,omitempty"`
}

// ReadMetadata parses an archive metadata JSON file.
func ReadMetadata(path string) (*Metadata, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, dataUnavailablef("opening metadata %s: %v", path, err)
	}
	var m Metadata
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, corruptf("parsing metadata %s: %v", path, err)
	}
	sort.Slice(m.Days, func(i, j int) bool { return m.Days[i].DayOffset < m.Days[j].DayOffset })
	return &m, nil
}

// FileForDay returns the DayEntry (and so the file) covering the given
// day offset, clamped per spec.md section 4.4: if the offset isn't
// present, the smallest offset strictly greater is used, else the
// latest available entry. Returns false if Days is empty.
func (m *Metadata) FileForDay(dayOffset int) (DayEntry, bool) {
	if len(m.Days) == 0 {
		return DayEntry{}, false
	}
	for _, d := range m.Days {
		if d.DayOffset == dayOffset {
			return d, true
		}
	}
	for _, d := range m.Days {
		if d.DayOffset > dayOffset {
			return d, true
		}
	}
	return m.Days[len(m.Days)-1], true
}

// DepthIndex returns the index of the depth layer nearest depthM
// (meters, positive downward), tie-broken to the shallower layer.
func (m *Metadata) DepthIndex(depthM float64) int {
	if len(m.Depths) == 0 {
		return 0
	}
	best := 0
	bestDiff := absf(depthM - m.Depths[0])
	for i := 1; i < len(m.Depths); i++ {
		d := absf(depthM - m.Depths[i])
		if d < bestDiff {
			best = i
			bestDiff = d
		}
		// Equal distance: keep the shallower (lower index, since Depths
		// is ascending) layer already selected.
	}
	return best
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
