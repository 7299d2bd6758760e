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

import "testing"

func gridLonLat(n int) ([]float64, []float64) {
	lon := make([]float64, n*n)
	lat := make([]float64, n*n)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			lon[j*n+i] = 140 + float64(i)*0.1
			lat[j*n+i] = 35 + float64(j)*0.1
		}
	}
	return lon, lat
}

func TestSpatialIndexNearestCell(t *testing.T) {
	lon, lat := gridLonLat(50)
	idx := NewSpatialIndex(lon, lat, 100, 10, 1000)

	ci := idx.NearestCell(141.31, 37.42)
	if ci < 0 {
		t.Fatal("expected a nearest cell, got none")
	}
	// Stride 10 indexes every 10th cell, i.e. whole-degree longitudes
	// on each 0.1-degree latitude row, so the nearest indexed cell is
	// (141, 37.4): row 24, column 10.
	if want := 24*50 + 10; ci != want {
		t.Errorf("NearestCell(141.31, 37.42) = %d at (%v, %v), want %d at (%v, %v)",
			ci, lon[ci], lat[ci], want, lon[want], lat[want])
	}
}

func TestSpatialIndexMiss(t *testing.T) {
	lon, lat := gridLonLat(50)
	idx := NewSpatialIndex(lon, lat, 100, 10, 1000)
	// Far outside the archive's extent and bucket lattice clamps to
	// the nearest edge bucket, so this should still return a cell
	// rather than -1 -- the miss case is only when a neighborhood has
	// no populated buckets at all, which a densely sampled grid never
	// exhibits. Exercise the documented miss path directly instead.
	empty := NewSpatialIndex([]float64{0}, []float64{0}, 100, 1, 1)
	ci := idx.NearestCell(200, 80)
	if ci < 0 {
		t.Errorf("expected clamped nearest cell at the grid edge, got miss")
	}
	if empty.NearestCell(0, 0) < 0 {
		t.Errorf("single-cell index should resolve its only cell")
	}
	// (0.9, 0.9) falls in bucket (90, 90); the only populated bucket is
	// (0, 0), outside its 3x3 neighborhood.
	if ci := empty.NearestCell(0.9, 0.9); ci != -1 {
		t.Errorf("NearestCell with no populated bucket in the neighborhood = %d, want -1", ci)
	}
}

func TestSpatialIndexTieBreakLowerIndex(t *testing.T) {
	// Two coincident cells at the same location: the lower linear
	// index must win.
	lon := []float64{141.0, 141.0, 150.0}
	lat := []float64{37.0, 37.0, 37.0}
	idx := NewSpatialIndex(lon, lat, 10, 1, 1)
	ci := idx.NearestCell(141.0, 37.0)
	if ci != 0 {
		t.Errorf("expected tie-break to lower index 0, got %d", ci)
	}
}

func TestNearestCellInRing(t *testing.T) {
	lon, lat := gridLonLat(50)
	idx := NewSpatialIndex(lon, lat, 100, 10, 1000)
	// Reject every candidate except one far-off cell, forcing the
	// spiral to expand. The target must be an indexed cell: stride 10
	// indexes every 10th cell, so the last indexed one is len-10.
	targetLon, targetLat := lon[len(lon)-10], lat[len(lat)-10]
	ci := idx.NearestCellInRing(lon[0], lat[0], 100, func(cellIdx int) bool {
		return lon[cellIdx] == targetLon && lat[cellIdx] == targetLat
	})
	if ci < 0 {
		t.Fatal("expected the spiral search to eventually find the accepted cell")
	}
	if lon[ci] != targetLon || lat[ci] != targetLat {
		t.Errorf("found wrong cell: (%v, %v)", lon[ci], lat[ci])
	}
}
