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
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func writeCoordFile(t *testing.T, path string, lon, lat []float32) {
	t.Helper()
	buf := new(bytes.Buffer)
	n := len(lon)
	nlat, nlon := 1, n // caller supplies a flat list; treat as a single row
	binary.Write(buf, binary.LittleEndian, int32(1))
	binary.Write(buf, binary.LittleEndian, int32(nlat))
	binary.Write(buf, binary.LittleEndian, int32(nlon))
	binary.Write(buf, binary.LittleEndian, lon)
	binary.Write(buf, binary.LittleEndian, lat)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
}

func writeDiffusivityFile(t *testing.T, path string, year, month, day int32, k []uint16) {
	t.Helper()
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, int32(6))
	binary.Write(buf, binary.LittleEndian, year)
	binary.Write(buf, binary.LittleEndian, month)
	binary.Write(buf, binary.LittleEndian, day)
	binary.Write(buf, binary.LittleEndian, int32(0))
	binary.Write(buf, binary.LittleEndian, k)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
}

// buildDiffusivityField writes a 4-cell coordinate file and a single
// day's diffusivity archive covering it, and opens a DiffusivityField
// against them.
func buildDiffusivityField(t *testing.T, kValues []float32) *DiffusivityField {
	t.Helper()
	dir := t.TempDir()
	lon := []float32{141, 141.1, 141.2, 141.3}
	lat := []float32{37, 37, 37, 37}
	writeCoordFile(t, filepath.Join(dir, "eke_coords.bin"), lon, lat)

	k := make([]uint16, len(kValues))
	for i, v := range kValues {
		k[i] = encodeHalf(v)
	}
	writeDiffusivityFile(t, filepath.Join(dir, "day0.bin"), 2024, 3, 1, k)

	writeMetadata(t, filepath.Join(dir, "metadata.json"), Metadata{
		DatasetID: "test-eke",
		Days:      []DayEntry{{Year: 2024, Month: 3, Day: 1, File: "day0.bin", DayOffset: 0}},
	})

	f, err := NewDiffusivityField(
		filepath.Join(dir, "metadata.json"),
		filepath.Join(dir, "eke_coords.bin"),
		dir, 4, 0,
	)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestDiffusivityFieldAt(t *testing.T) {
	f := buildDiffusivityField(t, []float32{100, 200, 300, 400})
	k, found, err := f.DiffusivityAt(context.Background(), 141, 37, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("expected a found diffusivity value at a coordinate grid point")
	}
	if k != 100 {
		t.Errorf("DiffusivityAt() = %v, want 100", k)
	}
}

func TestDiffusivityFieldClampsToFloorAndCeiling(t *testing.T) {
	f := buildDiffusivityField(t, []float32{1, 10000, 250, 250})
	kLow, _, err := f.DiffusivityAt(context.Background(), 141, 37, 0)
	if err != nil {
		t.Fatal(err)
	}
	if kLow != 20 {
		t.Errorf("DiffusivityAt() low value = %v, want floor 20", kLow)
	}
	// The 50x50 index samples every 20th cell, so only cell 0 of a
	// 4-cell grid is reachable; the ceiling case gets its own field.
	fHigh := buildDiffusivityField(t, []float32{10000, 250, 250, 250})
	kHigh, _, err := fHigh.DiffusivityAt(context.Background(), 141, 37, 0)
	if err != nil {
		t.Fatal(err)
	}
	if kHigh != 500 {
		t.Errorf("DiffusivityAt() high value = %v, want ceiling 500", kHigh)
	}
}

func TestDiffusivityFieldMissingCoordFile(t *testing.T) {
	dir := t.TempDir()
	writeMetadata(t, filepath.Join(dir, "metadata.json"), Metadata{
		Days: []DayEntry{{Year: 2024, Month: 3, Day: 1, File: "day0.bin", DayOffset: 0}},
	})
	_, err := NewDiffusivityField(
		filepath.Join(dir, "metadata.json"),
		filepath.Join(dir, "missing_coords.bin"),
		dir, 4, 0,
	)
	if err == nil {
		t.Fatal("expected an error for a missing coordinate file")
	}
}
