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
	"math"
	"testing"
)

// TestHalfRoundTrip verifies spec invariant 8: decoding a stored K
// and re-encoding it reproduces the stored value exactly.
func TestHalfRoundTrip(t *testing.T) {
	for _, h := range []uint16{0x0000, 0x3c00, 0xc000, 0x7bff, 0x0001, 0x0400} {
		f := decodeHalf(h)
		got := encodeHalf(f)
		if got != h {
			t.Errorf("round trip for 0x%04x: decoded %v, re-encoded 0x%04x", h, f, got)
		}
	}
}

func TestDecodeHalfKnownValues(t *testing.T) {
	cases := []struct {
		bits uint16
		want float32
	}{
		{0x0000, 0},
		{0x3c00, 1.0},
		{0xbc00, -1.0},
		{0x4000, 2.0},
		{0x7c00, float32(math.Inf(1))},
		{0xfc00, float32(math.Inf(-1))},
	}
	for _, c := range cases {
		got := decodeHalf(c.bits)
		if got != c.want {
			t.Errorf("decodeHalf(0x%04x) = %v, want %v", c.bits, got, c.want)
		}
	}
}

func TestDecodeHalfNaN(t *testing.T) {
	v := decodeHalf(0x7e00)
	if !math.IsNaN(float64(v)) {
		t.Errorf("expected NaN, got %v", v)
	}
}
