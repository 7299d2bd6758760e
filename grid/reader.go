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

// Package grid implements the on-disk binary archive format for the
// daily ocean-current and eddy-kinetic-energy diffusivity datasets,
// the spatial index used to look up native grid cells, and the
// LRU cache that keeps a bounded number of daily bundles resident.
package grid

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/ctessum/sparse"
)

// Errors returned by the binary readers. They are the DataUnavailable
// and CorruptBinary categories from the error taxonomy; the run loop
// halts on either.
var (
	ErrDataUnavailable = fmt.Errorf("grid: data unavailable")
	ErrCorruptBinary   = fmt.Errorf("grid: corrupt binary")
	ErrUnsupportedFormat = fmt.Errorf("grid: unsupported format version")
)

// dataUnavailablef wraps an I/O failure as DataUnavailable.
func dataUnavailablef(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrDataUnavailable, fmt.Sprintf(format, args...))
}

// corruptf wraps a structural problem as CorruptBinary.
func corruptf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrCorruptBinary, fmt.Sprintf(format, args...))
}

// unsupportedf wraps an unrecognized version as UnsupportedFormat.
func unsupportedf(version int32) error {
	return fmt.Errorf("%w: version %d", ErrUnsupportedFormat, version)
}

// currentHeader is the on-disk header of a daily current file.
// Version 3 files omit NDepth and are treated as NDepth=1.
type currentHeader struct {
	Version int32
	NLat    int32
	NLon    int32
	NDepth  int32
	Year    int32
	Month   int32
	Day     int32
}

// CurrentBundle is the parsed payload of one daily current file:
// native cell coordinates and (u, v) at each depth layer, all backed
// by dense arrays sized off the header.
type CurrentBundle struct {
	Year, Month, Day int
	NLat, NLon       int
	NDepth           int
	Lon, Lat         []float64 // native cell coordinates, length NLat*NLon
	U, V             *sparse.DenseArray // shape [NDepth, NLat*NLon]
}

// ReadCurrentFile parses a daily current archive file at path.
func ReadCurrentFile(path string) (*CurrentBundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, dataUnavailablef("opening %s: %v", path, err)
	}
	defer f.Close()

	var version int32
	if err := binary.Read(f, binary.LittleEndian, &version); err != nil {
		return nil, dataUnavailablef("reading version from %s: %v", path, err)
	}
	if version != 3 && version != 4 {
		return nil, unsupportedf(version)
	}

	var nlat, nlon, ndepth int32 = 0, 0, 1
	if err := binary.Read(f, binary.LittleEndian, &nlat); err != nil {
		return nil, corruptf("reading n_lat from %s: %v", path, err)
	}
	if err := binary.Read(f, binary.LittleEndian, &nlon); err != nil {
		return nil, corruptf("reading n_lon from %s: %v", path, err)
	}
	if version == 4 {
		if err := binary.Read(f, binary.LittleEndian, &ndepth); err != nil {
			return nil, corruptf("reading n_depth from %s: %v", path, err)
		}
	}
	if nlat <= 0 || nlon <= 0 || ndepth <= 0 {
		return nil, corruptf("invalid grid dimensions in %s: nlat=%d nlon=%d ndepth=%d", path, nlat, nlon, ndepth)
	}

	var year, month, day int32
	if err := binary.Read(f, binary.LittleEndian, &year); err != nil {
		return nil, corruptf("reading date from %s: %v", path, err)
	}
	if err := binary.Read(f, binary.LittleEndian, &month); err != nil {
		return nil, corruptf("reading date from %s: %v", path, err)
	}
	if err := binary.Read(f, binary.LittleEndian, &day); err != nil {
		return nil, corruptf("reading date from %s: %v", path, err)
	}

	nCells := int(nlat) * int(nlon)

	lon, err := readFloat64Array(f, nCells, path, "lon")
	if err != nil {
		return nil, err
	}
	lat, err := readFloat64Array(f, nCells, path, "lat")
	if err != nil {
		return nil, err
	}

	u := sparse.ZerosDense(int(ndepth), nCells)
	if err := readDenseFloat32(f, u, path, "u"); err != nil {
		return nil, err
	}
	v := sparse.ZerosDense(int(ndepth), nCells)
	if err := readDenseFloat32(f, v, path, "v"); err != nil {
		return nil, err
	}

	return &CurrentBundle{
		Year: int(year), Month: int(month), Day: int(day),
		NLat: int(nlat), NLon: int(nlon), NDepth: int(ndepth),
		Lon: lon, Lat: lat, U: u, V: v,
	}, nil
}

// diffusivityHeader is the on-disk header of a daily diffusivity file.
type diffusivityHeader struct {
	Version           int32
	Year, Month, Day  int32
	MaxErrorScaled    int32
}

// DiffusivityBundle is the parsed payload of one daily diffusivity
// file: a half-precision K array decoded to float64 on load.
type DiffusivityBundle struct {
	Year, Month, Day int
	MaxErrorScaled   int // largest quantization error, units of 1e-3 m^2/s
	K                []float64 // length NLat*NLon, already decoded and clamped to [20,500]
}

// ReadDiffusivityFile parses a daily diffusivity archive file at
// path. nCells is the number of grid cells, known from the shared
// coordinate file.
func ReadDiffusivityFile(path string, nCells int) (*DiffusivityBundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, dataUnavailablef("opening %s: %v", path, err)
	}
	defer f.Close()

	var version int32
	if err := binary.Read(f, binary.LittleEndian, &version); err != nil {
		return nil, dataUnavailablef("reading version from %s: %v", path, err)
	}
	if version != 6 {
		return nil, unsupportedf(version)
	}
	var year, month, day, maxErr int32
	for _, dst := range []*int32{&year, &month, &day, &maxErr} {
		if err := binary.Read(f, binary.LittleEndian, dst); err != nil {
			return nil, corruptf("reading header from %s: %v", path, err)
		}
	}

	raw := make([]uint16, nCells)
	if err := binary.Read(f, binary.LittleEndian, raw); err != nil {
		return nil, corruptf("reading K payload from %s: %v (expected %d cells)", path, err, nCells)
	}

	k := make([]float64, nCells)
	for i, h := range raw {
		v := float64(decodeHalf(h))
		k[i] = clampK(v)
	}

	return &DiffusivityBundle{
		Year: int(year), Month: int(month), Day: int(day),
		MaxErrorScaled: int(maxErr), K: k,
	}, nil
}

// clampK applies the diffusivity floor/ceiling and NaN substitution
// from spec.md section 3: NaN -> 20, then clamp to [20, 500] m^2/s.
func clampK(v float64) float64 {
	if isNaN(v) {
		return 20
	}
	if v < 20 {
		return 20
	}
	if v > 500 {
		return 500
	}
	return v
}

func isNaN(v float64) bool { return v != v }

// CoordFile is the shared coordinate grid for the diffusivity
// archive, loaded once from eke_coords.bin.
type CoordFile struct {
	NLat, NLon int
	Lon, Lat   []float64
}

// ReadCoordFile parses eke_coords.bin: {version, n_lat, n_lon} header
// followed by flat lon[] and lat[] float32 arrays.
func ReadCoordFile(path string) (*CoordFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, dataUnavailablef("opening %s: %v", path, err)
	}
	defer f.Close()

	var version, nlat, nlon int32
	if err := binary.Read(f, binary.LittleEndian, &version); err != nil {
		return nil, corruptf("reading version from %s: %v", path, err)
	}
	if err := binary.Read(f, binary.LittleEndian, &nlat); err != nil {
		return nil, corruptf("reading n_lat from %s: %v", path, err)
	}
	if err := binary.Read(f, binary.LittleEndian, &nlon); err != nil {
		return nil, corruptf("reading n_lon from %s: %v", path, err)
	}
	nCells := int(nlat) * int(nlon)
	lon, err := readFloat64Array(f, nCells, path, "lon")
	if err != nil {
		return nil, err
	}
	lat, err := readFloat64Array(f, nCells, path, "lat")
	if err != nil {
		return nil, err
	}
	return &CoordFile{NLat: int(nlat), NLon: int(nlon), Lon: lon, Lat: lat}, nil
}

// readFloat64Array reads n contiguous little-endian float32 values
// and widens them to float64 for arithmetic convenience downstream.
func readFloat64Array(r io.Reader, n int, path, field string) ([]float64, error) {
	raw := make([]float32, n)
	if err := binary.Read(r, binary.LittleEndian, raw); err != nil {
		return nil, corruptf("reading %s from %s: %v (expected %d values)", field, path, err, n)
	}
	out := make([]float64, n)
	for i, v := range raw {
		out[i] = float64(v)
	}
	return out, nil
}

// readDenseFloat32 reads NDepth*nCells contiguous little-endian
// float32 values into a pre-shaped dense array.
func readDenseFloat32(r io.Reader, dst *sparse.DenseArray, path, field string) error {
	shape := dst.Shape
	n := 1
	for _, s := range shape {
		n *= s
	}
	raw := make([]float32, n)
	if err := binary.Read(r, binary.LittleEndian, raw); err != nil {
		return corruptf("reading %s from %s: %v (expected %d values)", field, path, err, n)
	}
	for i, v := range raw {
		dst.Elements[i] = float64(v)
	}
	return nil
}
