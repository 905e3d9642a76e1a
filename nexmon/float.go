// Copyright 2024 The go-csi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nexmon

import "math/bits"

// targetBits is the bit width the frame's largest sample is scaled
// to by the auto-scale pass.
const targetBits = 10

// unpackFloat decodes packed-float CSI words into out.
//
// Each 32-bit word holds, from the most significant used bit down:
// a signed real mantissa (nman bits, sign in the top bit), a signed
// imaginary mantissa (nman bits) and a shared exponent (nexp bits,
// two's complement).
//
// The encoding is frame-relative: a first pass scans the whole frame
// for the maximum bit length among all samples, and a second pass
// shifts every sample uniformly so that the largest one fits
// targetBits. Decoding samples independently would get the relative
// magnitudes wrong.
func unpackFloat(f chipFormat, words []uint32, out []complex128) {
	var (
		nman = f.nman
		nexp = f.nexp

		iqMask   = uint32(1)<<(nman-1) - 1
		eMask    = uint32(1)<<nexp - 1
		sgnRMask = uint32(1) << (nexp + 2*nman - 1)
		sgnIMask = uint32(1) << (nexp + nman - 1)

		ePivot = 1 << (nexp - 1)
		eFloor = -nman
		maxbit = -ePivot
	)

	n := len(out)
	if len(words) < n {
		n = len(words)
	}

	var (
		res = make([]uint32, n) // real magnitudes
		ims = make([]uint32, n) // imaginary magnitudes
		es  = make([]int, n)
	)
	for i := 0; i < n; i++ {
		w := words[i]
		res[i] = w >> (nexp + nman) & iqMask
		ims[i] = w >> nexp & iqMask
		e := int(w & eMask)
		if e >= ePivot {
			e -= ePivot << 1
		}
		es[i] = e
		if x := res[i] | ims[i]; x != 0 {
			if b := e + bits.Len32(x); b > maxbit {
				maxbit = b
			}
		}
	}

	shift := targetBits - maxbit
	for i := 0; i < n; i++ {
		var (
			re = int64(res[i])
			im = int64(ims[i])
		)
		switch e := es[i] + shift; {
		case e < eFloor:
			re, im = 0, 0
		case e < 0:
			re >>= -e
			im >>= -e
		default:
			re <<= e
			im <<= e
		}
		if words[i]&sgnRMask != 0 {
			re = -re
		}
		if words[i]&sgnIMask != 0 {
			im = -im
		}
		out[i] = complex(float64(re), float64(im))
	}
}
