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
	"fmt"
	"math"
	"path/filepath"
)

// landSentinel is the magnitude above which a stored velocity or
// diffusivity value is considered a legacy land/fill sentinel
// (historically -9999), per spec.md section 9.
const landSentinel = 1000.0

// isLand reports whether v is the NaN-or-|v|>1000 land/fill sentinel.
func isLand(v float64) bool {
	return math.IsNaN(v) || math.Abs(v) > landSentinel
}

// Velocity is the result of a CurrentField lookup.
type Velocity struct {
	U, V        float64 // m/s
	Found       bool
	ChosenDepth int // index into the archive's depth list
}

// CurrentField provides (u, v) at an arbitrary (lon, lat, depth,
// simulation day), lazily loading daily bundles through an
// LRUDayCache and resolving native cells through a SpatialIndex built
// once from the first loaded day's coordinates.
type CurrentField struct {
	meta    *Metadata
	dir     string
	cache   *LRUDayCache
	index   *SpatialIndex
	startDay int // calendar day-of-year offset corresponding to simulation day 0, in the metadata's DayOffset numbering
}

// NewCurrentField opens a current archive described by the metadata
// at metadataPath, keeping at most cacheSize daily bundles resident.
// startDayOffset is the metadata DayOffset corresponding to
// simulation day zero.
func NewCurrentField(metadataPath, dir string, cacheSize, startDayOffset int) (*CurrentField, error) {
	meta, err := ReadMetadata(metadataPath)
	if err != nil {
		return nil, err
	}
	f := &CurrentField{meta: meta, dir: dir, startDay: startDayOffset}
	f.cache = NewLRUDayCache(cacheSize, f.load)
	return f, nil
}

func (f *CurrentField) load(ctx context.Context, key string) (interface{}, error) {
	entry, ok := f.dayEntry(key)
	if !ok {
		return nil, dataUnavailablef("no archive entry for day %s", key)
	}
	bundle, err := ReadCurrentFile(filepath.Join(f.dir, entry.File))
	if err != nil {
		return nil, err
	}
	if f.index == nil {
		f.index = NewSpatialIndex(bundle.Lon, bundle.Lat, 100, 10, 1000)
	}
	return bundle, nil
}

// dayEntry resolves a cache key back to the metadata DayEntry,
// applying the clamp-to-nearest-available-day policy.
func (f *CurrentField) dayEntry(key string) (DayEntry, bool) {
	offset := f.offsetForKey(key)
	return f.meta.FileForDay(offset)
}

func (f *CurrentField) offsetForKey(key string) int {
	var off int
	fmt.Sscanf(key, "%d", &off)
	return off
}

// keyForSimDay converts a simulation day (float64, elapsed days since
// run start) into the integer archive day-offset key used by the
// cache and metadata lookup.
func (f *CurrentField) keyForSimDay(simDay float64) string {
	offset := f.startDay + int(math.Floor(simDay))
	return fmt.Sprintf("%d", offset)
}

// dayBundle ensures the day covering simDay is resident and returns
// it, pinned for the duration of the caller's step.
func (f *CurrentField) dayBundle(ctx context.Context, simDay float64) (*CurrentBundle, error) {
	key := f.keyForSimDay(simDay)
	v, err := f.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return v.(*CurrentBundle), nil
}

// VelocityAt returns (u, v) at (lon, lat, depthM, simDay). Found is
// false if no native cell is found within the lookup neighborhood, or
// if the stored value is a land/fill sentinel (spec.md section 4.3).
func (f *CurrentField) VelocityAt(ctx context.Context, lon, lat, depthM, simDay float64) (Velocity, error) {
	bundle, err := f.dayBundle(ctx, simDay)
	if err != nil {
		return Velocity{}, err
	}
	cellIdx := f.index.NearestCell(lon, lat)
	if cellIdx < 0 {
		return Velocity{Found: false}, nil
	}
	depthIdx := f.meta.DepthIndex(depthM)
	if depthIdx >= bundle.NDepth {
		depthIdx = bundle.NDepth - 1
	}
	u := bundle.U.Get(depthIdx, cellIdx)
	v := bundle.V.Get(depthIdx, cellIdx)
	if isLand(u) || isLand(v) {
		return Velocity{Found: false, ChosenDepth: depthIdx}, nil
	}
	return Velocity{U: u, V: v, Found: true, ChosenDepth: depthIdx}, nil
}

// Position is a (lon, lat) pair used for batched lookups.
type Position struct{ Lon, Lat float64 }

// VelocitiesAtMultiple is the batched variant of VelocityAt: it loads
// the day's bundle once and reuses it for every position, so the
// throughput contract (spec.md section 4.3) is O(len(positions)).
func (f *CurrentField) VelocitiesAtMultiple(ctx context.Context, positions []Position, depthM, simDay float64) ([]Velocity, error) {
	bundle, err := f.dayBundle(ctx, simDay)
	if err != nil {
		return nil, err
	}
	depthIdx := f.meta.DepthIndex(depthM)
	if depthIdx >= bundle.NDepth {
		depthIdx = bundle.NDepth - 1
	}
	out := make([]Velocity, len(positions))
	for i, p := range positions {
		cellIdx := f.index.NearestCell(p.Lon, p.Lat)
		if cellIdx < 0 {
			continue
		}
		u := bundle.U.Get(depthIdx, cellIdx)
		v := bundle.V.Get(depthIdx, cellIdx)
		if isLand(u) || isLand(v) {
			out[i] = Velocity{Found: false, ChosenDepth: depthIdx}
			continue
		}
		out[i] = Velocity{U: u, V: v, Found: true, ChosenDepth: depthIdx}
	}
	return out, nil
}

// IsOcean reports whether (lon, lat, depthM) resolves to a valid,
// non-land velocity at simDay.
func (f *CurrentField) IsOcean(ctx context.Context, lon, lat, depthM, simDay float64) (bool, error) {
	v, err := f.VelocityAt(ctx, lon, lat, depthM, simDay)
	if err != nil {
		return false, err
	}
	return v.Found, nil
}

// NearestOceanCell expands a ring-by-ring spiral search up to
// maxRadius bucket steps from (lon, lat) and returns the (lon, lat)
// of the first native cell with a finite velocity at the chosen depth
// layer, or found=false if the radius is exhausted.
func (f *CurrentField) NearestOceanCell(ctx context.Context, lon, lat, depthM, simDay float64, maxRadius int) (cellLon, cellLat float64, found bool, err error) {
	bundle, err := f.dayBundle(ctx, simDay)
	if err != nil {
		return 0, 0, false, err
	}
	depthIdx := f.meta.DepthIndex(depthM)
	if depthIdx >= bundle.NDepth {
		depthIdx = bundle.NDepth - 1
	}
	ci := f.index.NearestCellInRing(lon, lat, maxRadius, func(cellIdx int) bool {
		u := bundle.U.Get(depthIdx, cellIdx)
		v := bundle.V.Get(depthIdx, cellIdx)
		return !isLand(u) && !isLand(v)
	})
	if ci < 0 {
		return 0, 0, false, nil
	}
	p := f.index.Point(ci)
	return p.X, p.Y, true, nil
}

// Depths returns the archive's depth level list, in meters, ascending.
func (f *CurrentField) Depths() []float64 { return f.meta.Depths }
