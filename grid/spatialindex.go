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
	"github.com/ctessum/geom"
)

// SpatialIndex provides O(1)-expected nearest-native-cell lookups
// over the irregular lon/lat arrays of a grid archive. It is built
// once per archive (grids are day-invariant) and bucketed into a
// fixed GRID x GRID lattice spanning the archive's lon/lat extent.
type SpatialIndex struct {
	grid    int // bucket lattice dimension (GRID x GRID)
	stride  int // native-cell sampling stride used when populating buckets
	lon     []float64
	lat     []float64
	minLon, maxLon float64
	minLat, maxLat float64
	buckets []([]int) // len grid*grid, each holding native cell indices
}

// NewSpatialIndex builds a bucket index over lon/lat, which must be
// parallel arrays of native cell coordinates. gridSize is the
// GRID x GRID bucket lattice dimension (100 for currents, 50 for
// diffusivity); stride is the native-cell sampling stride used to
// populate buckets (10 for currents, 20 for diffusivity); boundsStride
// is the sampling stride used to compute the lon/lat extent (1000 for
// currents, 100 for diffusivity).
func NewSpatialIndex(lon, lat []float64, gridSize, stride, boundsStride int) *SpatialIndex {
	idx := &SpatialIndex{
		grid:   gridSize,
		stride: stride,
		lon:    lon,
		lat:    lat,
	}
	idx.computeBounds(boundsStride)
	idx.build()
	return idx
}

func (idx *SpatialIndex) computeBounds(boundsStride int) {
	if boundsStride < 1 {
		boundsStride = 1
	}
	first := true
	for i := 0; i < len(idx.lon); i += boundsStride {
		lo, la := idx.lon[i], idx.lat[i]
		if first {
			idx.minLon, idx.maxLon = lo, lo
			idx.minLat, idx.maxLat = la, la
			first = false
			continue
		}
		if lo < idx.minLon {
			idx.minLon = lo
		}
		if lo > idx.maxLon {
			idx.maxLon = lo
		}
		if la < idx.minLat {
			idx.minLat = la
		}
		if la > idx.maxLat {
			idx.maxLat = la
		}
	}
	// Guard against a degenerate (zero-width) extent.
	if idx.maxLon <= idx.minLon {
		idx.maxLon = idx.minLon + 1
	}
	if idx.maxLat <= idx.minLat {
		idx.maxLat = idx.minLat + 1
	}
}

func (idx *SpatialIndex) build() {
	idx.buckets = make([][]int, idx.grid*idx.grid)
	stride := idx.stride
	if stride < 1 {
		stride = 1
	}
	for i := 0; i < len(idx.lon); i += stride {
		bx, by := idx.bucketOf(idx.lon[i], idx.lat[i])
		b := by*idx.grid + bx
		idx.buckets[b] = append(idx.buckets[b], i)
	}
}

func (idx *SpatialIndex) bucketOf(lon, lat float64) (int, int) {
	bx := int((lon - idx.minLon) / (idx.maxLon - idx.minLon) * float64(idx.grid))
	by := int((lat - idx.minLat) / (idx.maxLat - idx.minLat) * float64(idx.grid))
	if bx < 0 {
		bx = 0
	}
	if bx >= idx.grid {
		bx = idx.grid - 1
	}
	if by < 0 {
		by = 0
	}
	if by >= idx.grid {
		by = idx.grid - 1
	}
	return bx, by
}

// NearestCell returns the native-cell index closest to (lon, lat) in
// (lon, lat) degree-space among the candidates found in the 3x3 bucket
// neighborhood of (lon, lat), or -1 if none are found. Ties are broken
// by the lower linear index.
func (idx *SpatialIndex) NearestCell(lon, lat float64) int {
	bx, by := idx.bucketOf(lon, lat)
	best := -1
	bestDist := 0.0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			x, y := bx+dx, by+dy
			if x < 0 || x >= idx.grid || y < 0 || y >= idx.grid {
				continue
			}
			for _, ci := range idx.buckets[y*idx.grid+x] {
				d := sqDist(idx.lon[ci], idx.lat[ci], lon, lat)
				if best == -1 || d < bestDist || (d == bestDist && ci < best) {
					best = ci
					bestDist = d
				}
			}
		}
	}
	return best
}

// NearestCellInRing searches an expanding ring of bucket
// neighborhoods (radius 0, the centre bucket alone, then 1, 2, ...
// up to maxRadius bucket steps)
// around (lon, lat) and calls accept on each candidate cell in
// ascending distance order within a ring; the first cell for which
// accept returns true is returned. Returns -1 if maxRadius is
// exhausted without a match. Used for the land-mask spiral search
// (nearest_ocean_cell).
func (idx *SpatialIndex) NearestCellInRing(lon, lat float64, maxRadius int, accept func(cellIdx int) bool) int {
	bx, by := idx.bucketOf(lon, lat)
	for r := 0; r <= maxRadius; r++ {
		type cand struct {
			ci   int
			dist float64
		}
		var cands []cand
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				// Only the ring boundary for r>0; r==0 is the center cell.
				if r > 0 && dx != -r && dx != r && dy != -r && dy != r {
					continue
				}
				x, y := bx+dx, by+dy
				if x < 0 || x >= idx.grid || y < 0 || y >= idx.grid {
					continue
				}
				for _, ci := range idx.buckets[y*idx.grid+x] {
					cands = append(cands, cand{ci, sqDist(idx.lon[ci], idx.lat[ci], lon, lat)})
				}
			}
		}
		// Search nearest-first within the ring so the first accepted
		// candidate is the closest valid one for that radius.
		for pass := 0; pass < len(cands); pass++ {
			minIdx := -1
			for i, c := range cands {
				if c.ci < 0 {
					continue
				}
				if minIdx == -1 || c.dist < cands[minIdx].dist {
					minIdx = i
				}
			}
			if minIdx == -1 {
				break
			}
			ci := cands[minIdx].ci
			cands[minIdx].ci = -1
			if accept(ci) {
				return ci
			}
		}
	}
	return -1
}

// Point returns the (lon, lat) of a native cell index as a geom.Point.
func (idx *SpatialIndex) Point(cellIdx int) geom.Point {
	return geom.Point{X: idx.lon[cellIdx], Y: idx.lat[cellIdx]}
}

func sqDist(lon1, lat1, lon2, lat2 float64) float64 {
	dx := lon1 - lon2
	dy := lat1 - lat2
	return dx*dx + dy*dy
}
