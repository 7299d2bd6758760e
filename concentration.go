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

import "math"

// concentrationScale is the radionuclide visualization multiplier
// flagged as ambiguous in spec.md section 9; kept in the core per the
// spec's own resolution (see DESIGN.md, Open Question decision 2).
const concentrationScale = 1000.0

const waterDensityKgPerM3 = 1000.0

// minPlumeVolumeM3 floors the Gaussian plume volume so concentration
// never divides by (near) zero for a tightly-sigma'd tracer.
const minPlumeVolumeM3 = 1e9

// plumeVolumeM3 computes the Gaussian plume volume from the species'
// horizontal and vertical sigmas, per spec.md section 4.9.
func plumeVolumeM3(sigmaH, sigmaV float64) float64 {
	v := math.Pow(2*math.Pi, 1.5) * sigmaH * sigmaH * sigmaV
	if v < minPlumeVolumeM3 {
		return minPlumeVolumeM3
	}
	return v
}

// Concentration computes one particle's concentration from its
// current mass, depth, and taxonomic type, per the per-species
// formulas in spec.md section 4.9.
func Concentration(desc *Descriptor, mass, depthKm float64) float64 {
	volume := plumeVolumeM3(desc.Behavior.SigmaH, desc.Behavior.SigmaV)
	switch desc.Type {
	case Radionuclide:
		c := (mass / volume) * concentrationScale
		return clampf(c, 1e-6, 1e6)
	case Hydrocarbon:
		if depthKm < 0.01 {
			const slickThicknessM = 0.001
			areaM2 := volume / slickThicknessM
			return mass / areaM2 // kg/m^2
		}
		return (mass / volume) / waterDensityKgPerM3 * 1e6 // ppm
	case Particulate:
		return (mass / volume) * 1000 // mg/L
	case Pollutant:
		return (mass / (volume * waterDensityKgPerM3)) * 1e9 // ppb
	case Biological:
		return mass / volume // organisms/m^3
	default:
		return mass / volume
	}
}
