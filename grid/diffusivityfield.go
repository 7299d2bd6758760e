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

// DiffusivityField provides horizontal diffusivity K (m^2/s) at an
// arbitrary (lon, lat, simulation day). It shares a single coordinate
// grid (loaded once from eke_coords.bin) across all days and uses a
// 50x50 bucket SpatialIndex, per spec.md section 4.2.
type DiffusivityField struct {
	meta     *Metadata
	dir      string
	coords   *CoordFile
	cache    *LRUDayCache
	index    *SpatialIndex
	startDay int
}

// NewDiffusivityField opens a diffusivity archive described by the
// metadata at metadataPath, sharing coordinates from coordPath.
func NewDiffusivityField(metadataPath, coordPath, dir string, cacheSize, startDayOffset int) (*DiffusivityField, error) {
	meta, err := ReadMetadata(metadataPath)
	if err != nil {
		return nil, err
	}
	coords, err := ReadCoordFile(coordPath)
	if err != nil {
		return nil, err
	}
	f := &DiffusivityField{
		meta: meta, dir: dir, coords: coords, startDay: startDayOffset,
		index: NewSpatialIndex(coords.Lon, coords.Lat, 50, 20, 100),
	}
	f.cache = NewLRUDayCache(cacheSize, f.load)
	return f, nil
}

func (f *DiffusivityField) load(ctx context.Context, key string) (interface{}, error) {
	var offset int
	fmt.Sscanf(key, "%d", &offset)
	entry, ok := f.meta.FileForDay(offset)
	if !ok {
		return nil, dataUnavailablef("no diffusivity archive entry for day %s", key)
	}
	nCells := f.coords.NLat * f.coords.NLon
	return ReadDiffusivityFile(filepath.Join(f.dir, entry.File), nCells)
}

func (f *DiffusivityField) keyForSimDay(simDay float64) string {
	return fmt.Sprintf("%d", f.startDay+int(math.Floor(simDay)))
}

func (f *DiffusivityField) dayBundle(ctx context.Context, simDay float64) (*DiffusivityBundle, error) {
	key := f.keyForSimDay(simDay)
	v, err := f.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return v.(*DiffusivityBundle), nil
}

// DiffusivityAt returns K (m^2/s), already clamped to [20, 500], at
// (lon, lat, simDay). found is false if no native cell resolves
// within the lookup neighborhood.
func (f *DiffusivityField) DiffusivityAt(ctx context.Context, lon, lat, simDay float64) (k float64, found bool, err error) {
	bundle, err := f.dayBundle(ctx, simDay)
	if err != nil {
		return 0, false, err
	}
	cellIdx := f.index.NearestCell(lon, lat)
	if cellIdx < 0 {
		return 0, false, nil
	}
	return bundle.K[cellIdx], true, nil
}
