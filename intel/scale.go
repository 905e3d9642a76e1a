// Copyright 2024 The go-csi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package intel

import "math"

const (
	// noiseSentinel is reported by the NIC when no noise-floor
	// measurement is available; noiseDefault substitutes for it.
	noiseSentinel = -127
	noiseDefault  = -92
)

// ScaleCSI returns a copy of the CSI tensor of rec scaled to absolute
// channel units, normalized against the thermal and quantization
// noise floors.
func ScaleCSI(rec *Record) []complex128 {
	out := make([]complex128, len(rec.CSI))
	copy(out, rec.CSI)
	scaleCSI(rec, out)
	return out
}

// ScaleCSIInPlace applies the same scaling as ScaleCSI, mutating the
// CSI tensor owned by rec.
func ScaleCSIInPlace(rec *Record) {
	scaleCSI(rec, rec.CSI)
}

func scaleCSI(rec *Record, csi []complex128) {
	var csiPwr float64
	for _, v := range rec.CSI {
		csiPwr += real(v)*real(v) + imag(v)*imag(v)
	}
	if csiPwr == 0 {
		return
	}

	var (
		rssPwr = dbinv(RSS(rec))
		scale  = rssPwr / (csiPwr / NumSubcarriers)
	)

	noise := float64(rec.Noise)
	if rec.Noise == noiseSentinel {
		noise = noiseDefault
	}

	// quantization error scales with the number of summed antenna
	// products; the stream-count correction undoes the transmit
	// power split across spatial streams.
	total := dbinv(noise) + scale*float64(rec.Nrx)*float64(rec.Ntx)
	switch rec.Ntx {
	case 2:
		total /= 2
	case 3:
		total /= dbinv(4.5)
	}

	f := complex(math.Sqrt(scale/total), 0)
	for i := range csi {
		csi[i] *= f
	}
}
