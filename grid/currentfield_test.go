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
	"context"
	"path/filepath"
	"testing"
)

// buildCurrentArchive writes a single-day, 3x3 current archive (one
// depth layer) with a uniform (u, v), plus its metadata.json, and
// opens a CurrentField against it. writeCurrentFileV4 lays native
// cells out starting at (lon, lat) = (141, 37) with a 0.1/0.05 degree
// step per cell index, so every VelocityAt lookup in this file targets
// that fixed grid.
func buildCurrentArchive(t *testing.T, u, v float32, landAt int) *CurrentField {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "day0.bin")

	const n = 3
	us := make([]float32, n*n)
	vs := make([]float32, n*n)
	for i := range us {
		us[i], vs[i] = u, v
	}
	if landAt >= 0 {
		us[landAt], vs[landAt] = 9999, 9999
	}
	writeCurrentFileV4(t, path, n, n, 1, us, vs)

	writeMetadata(t, filepath.Join(dir, "metadata.json"), Metadata{
		DatasetID: "test", NLat: n, NLon: n,
		Depths: []float64{0},
		Days:   []DayEntry{{Year: 2024, Month: 3, Day: 1, File: "day0.bin", DayOffset: 0}},
	})

	cf, err := NewCurrentField(filepath.Join(dir, "metadata.json"), dir, 4, 0)
	if err != nil {
		t.Fatal(err)
	}
	return cf
}

func TestCurrentFieldVelocityAt(t *testing.T) {
	// writeCurrentFileV4 lays native cells out starting at lon=141,
	// lat=37 with a 0.1/0.05 degree step per cell index.
	cf := buildCurrentArchive(t, 0.3, -0.2, -1)
	vel, err := cf.VelocityAt(context.Background(), 141, 37, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !vel.Found {
		t.Fatal("expected a found velocity at a native cell")
	}
	// The archive stores float32, so the values read back are the
	// float32 roundings of 0.3 and -0.2, widened to float64.
	wantU, wantV := float64(float32(0.3)), float64(float32(-0.2))
	if vel.U != wantU || vel.V != wantV {
		t.Errorf("VelocityAt() = (%v, %v), want (%v, %v)", vel.U, vel.V, wantU, wantV)
	}
}

func TestCurrentFieldVelocityAtLandSentinel(t *testing.T) {
	cf := buildCurrentArchive(t, 0.3, -0.2, 0)
	vel, err := cf.VelocityAt(context.Background(), 141, 37, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if vel.Found {
		t.Error("expected Found=false at a land/fill sentinel cell")
	}
}

func TestCurrentFieldIsOcean(t *testing.T) {
	cf := buildCurrentArchive(t, 0.1, 0, -1)
	ok, err := cf.IsOcean(context.Background(), 141, 37, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("expected IsOcean to report true for a valid native cell")
	}
}

func TestCurrentFieldVelocitiesAtMultiple(t *testing.T) {
	cf := buildCurrentArchive(t, 0.2, 0.1, -1)
	vels, err := cf.VelocitiesAtMultiple(context.Background(), []Position{
		{Lon: 141, Lat: 37},
		{Lon: 1000, Lat: 1000}, // outside the index's bucket range -> no native cell
	}, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(vels) != 2 {
		t.Fatalf("len(vels) = %d, want 2", len(vels))
	}
	if !vels[0].Found {
		t.Error("expected the first position to resolve to a native cell")
	}
}

func TestCurrentFieldNearestOceanCell(t *testing.T) {
	cf := buildCurrentArchive(t, 0.1, 0, 4) // center cell (index 4 of a 3x3) is land
	lon, lat, found, err := cf.NearestOceanCell(context.Background(), 141, 37, 0, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("expected a nearby ocean cell to be found")
	}
	if lon == 0 && lat == 0 {
		t.Error("expected a non-zero ocean cell coordinate")
	}
}

func TestCurrentFieldDepths(t *testing.T) {
	cf := buildCurrentArchive(t, 0, 0, -1)
	depths := cf.Depths()
	if len(depths) != 1 || depths[0] != 0 {
		t.Errorf("Depths() = %v, want [0]", depths)
	}
}
