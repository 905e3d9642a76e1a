// Copyright 2024 The go-csi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package intel

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// rateBW40 flags a 40 MHz frame in the rate/flags word.
const rateBW40 = 0x800

// 802.11n spatial-mapping (spreading) matrices applied by the
// transmitter, keyed by stream count and bandwidth mode. They are
// unitary, so removal multiplies by the conjugate transpose.
var (
	sm2of20 = smDense(2, 1/math.Sqrt2, []float64{
		0, 0,
		0, math.Pi,
	})
	sm2of40 = smDense(2, 1/math.Sqrt2, []float64{
		0, math.Pi / 2,
		math.Pi / 2, 0,
	})
	sm3of20 = smDense(3, 1/math.Sqrt(3), []float64{
		-2 * math.Pi / 16, -2 * math.Pi / (80.0 / 33), 2 * math.Pi / (80.0 / 3),
		2 * math.Pi / (80.0 / 23), 2 * math.Pi / (48.0 / 13), 2 * math.Pi / (240.0 / 13),
		-2 * math.Pi / (80.0 / 13), 2 * math.Pi / (240.0 / 37), 2 * math.Pi / (48.0 / 13),
	})
	sm3of40 = smDense(3, 1/math.Sqrt(3), []float64{
		-2 * math.Pi / 16, -2 * math.Pi / (80.0 / 13), 2 * math.Pi / (80.0 / 23),
		-2 * math.Pi / (160.0 / 13), 2 * math.Pi / (480.0 / 73), -2 * math.Pi / (480.0 / 31),
		2 * math.Pi / (80.0 / 37), 2 * math.Pi / (240.0 / 7), 2 * math.Pi / (48.0 / 55),
	})
)

func smDense(n int, norm float64, phases []float64) *mat.CDense {
	vs := make([]complex128, len(phases))
	for i, ph := range phases {
		vs[i] = complex(norm, 0) * cmplx.Exp(complex(0, ph))
	}
	return mat.NewCDense(n, n, vs)
}

// RemoveSpatialMapping returns a copy of the CSI tensor of rec with
// the transmitter-side spatial mapping undone. Frames with a stream
// count other than 2 or 3 are returned unchanged.
func RemoveSpatialMapping(rec *Record) []complex128 {
	out := make([]complex128, len(rec.CSI))
	copy(out, rec.CSI)
	removeSM(rec, out)
	return out
}

// RemoveSpatialMappingInPlace applies the same transform as
// RemoveSpatialMapping, mutating the CSI tensor owned by rec.
func RemoveSpatialMappingInPlace(rec *Record) {
	removeSM(rec, rec.CSI)
}

func removeSM(rec *Record, csi []complex128) {
	var sm *mat.CDense
	switch rec.Ntx {
	case 2:
		sm = sm2of20
		if rec.Rate&rateBW40 != 0 {
			sm = sm2of40
		}
	case 3:
		sm = sm3of20
		if rec.Rate&rateBW40 != 0 {
			sm = sm3of40
		}
	default:
		return // nothing was mapped
	}

	var (
		ntx = int(rec.Ntx)
		nrx = int(rec.Nrx)
		smH = sm.H()
		row = mat.NewCDense(1, ntx, nil)
		out = mat.NewCDense(1, ntx, nil)
	)
	for sub := 0; sub < NumSubcarriers; sub++ {
		for rx := 0; rx < nrx; rx++ {
			for tx := 0; tx < ntx; tx++ {
				row.Set(0, tx, csi[rec.index(sub, rx, tx)])
			}
			out.Mul(row, smH)
			for tx := 0; tx < ntx; tx++ {
				csi[rec.index(sub, rx, tx)] = out.At(0, tx)
			}
		}
	}
}
