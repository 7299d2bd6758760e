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
	"path/filepath"
	"testing"
)

func writeMetadata(t *testing.T, path string, m Metadata) {
	t.Helper()
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestReadMetadataSortsDays(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metadata.json")
	writeMetadata(t, path, Metadata{
		DatasetID: "test", NLat: 2, NLon: 2,
		Days: []DayEntry{
			{Year: 2024, Month: 1, Day: 3, File: "c.bin", DayOffset: 2},
			{Year: 2024, Month: 1, Day: 1, File: "a.bin", DayOffset: 0},
			{Year: 2024, Month: 1, Day: 2, File: "b.bin", DayOffset: 1},
		},
	})

	m, err := ReadMetadata(path)
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []string{"a.bin", "b.bin", "c.bin"} {
		if m.Days[i].File != want {
			t.Errorf("Days[%d].File = %q, want %q", i, m.Days[i].File, want)
		}
	}
}

func TestReadMetadataMissingFile(t *testing.T) {
	if _, err := ReadMetadata("/nonexistent/metadata.json"); err == nil {
		t.Fatal("expected an error for a missing metadata file")
	}
}

func TestReadMetadataCorrupt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metadata.json")
	if err := os.WriteFile(path, []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadMetadata(path); err == nil {
		t.Fatal("expected an error for malformed metadata JSON")
	}
}

func TestFileForDayClampsToNearestLater(t *testing.T) {
	m := &Metadata{Days: []DayEntry{
		{DayOffset: 0, File: "d0"},
		{DayOffset: 5, File: "d5"},
		{DayOffset: 10, File: "d10"},
	}}
	entry, ok := m.FileForDay(3)
	if !ok || entry.File != "d5" {
		t.Errorf("FileForDay(3) = (%v, %v), want d5", entry, ok)
	}
}

func TestFileForDayClampsToLatestWhenBeyondRange(t *testing.T) {
	m := &Metadata{Days: []DayEntry{
		{DayOffset: 0, File: "d0"},
		{DayOffset: 5, File: "d5"},
	}}
	entry, ok := m.FileForDay(100)
	if !ok || entry.File != "d5" {
		t.Errorf("FileForDay(100) = (%v, %v), want d5", entry, ok)
	}
}

func TestFileForDayEmpty(t *testing.T) {
	m := &Metadata{}
	if _, ok := m.FileForDay(0); ok {
		t.Error("FileForDay on an empty metadata should report not found")
	}
}

func TestDepthIndexNearest(t *testing.T) {
	m := &Metadata{Depths: []float64{0, 50, 200, 1000}}
	cases := map[float64]int{
		0:    0,
		40:   1,
		150:  2,
		1500: 3,
	}
	for depth, want := range cases {
		if got := m.DepthIndex(depth); got != want {
			t.Errorf("DepthIndex(%v) = %d, want %d", depth, got, want)
		}
	}
}

func TestDepthIndexNoDepths(t *testing.T) {
	m := &Metadata{}
	if got := m.DepthIndex(500); got != 0 {
		t.Errorf("DepthIndex on a metadata with no depths = %d, want 0", got)
	}
}
