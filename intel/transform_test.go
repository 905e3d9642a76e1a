// Copyright 2024 The go-csi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package intel

import (
	"math"
	"math/cmplx"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func testRecord(nrx, ntx int) *Record {
	rec := &Record{
		Nrx: uint8(nrx), Ntx: uint8(ntx),
		RSSIA: 30, RSSIB: 28,
		Noise: -92,
		AGC:   20,
		maxRx: 3, maxTx: ntx,
	}
	rec.CSI = make([]complex128, NumSubcarriers*rec.maxRx*rec.maxTx)
	for sub := 0; sub < NumSubcarriers; sub++ {
		for rx := 0; rx < nrx; rx++ {
			for tx := 0; tx < ntx; tx++ {
				rec.CSI[rec.index(sub, rx, tx)] = complex(
					float64(1+sub+rx),
					float64(tx-sub),
				)
			}
		}
	}
	return rec
}

func TestRSSMonotonicInAGC(t *testing.T) {
	rec := testRecord(2, 1)
	prev := math.Inf(+1)
	for agc := uint8(0); agc < 60; agc += 5 {
		rec.AGC = agc
		rss := RSS(rec)
		if rss >= prev {
			t.Fatalf("RSS not decreasing at agc=%d: got=%v, prev=%v", agc, rss, prev)
		}
		prev = rss
	}
}

func TestRSSInactiveChain(t *testing.T) {
	rec := testRecord(2, 1)
	rec.RSSIA, rec.RSSIB, rec.RSSIC = 30, 0, 0
	want := 30 - rssOffset - float64(rec.AGC)
	if got := RSS(rec); math.Abs(got-want) > 1e-12 {
		t.Fatalf("invalid RSS: got=%v, want=%v", got, want)
	}
}

func TestScaleCSI(t *testing.T) {
	rec := testRecord(2, 2)
	orig := append([]complex128(nil), rec.CSI...)

	out := ScaleCSI(rec)
	for i := range rec.CSI {
		if rec.CSI[i] != orig[i] {
			t.Fatalf("ScaleCSI mutated the record at %d", i)
		}
	}

	// scaling is a uniform positive factor over all samples.
	var f float64
	for i := range out {
		if orig[i] == 0 {
			continue
		}
		r := real(out[i]) / real(orig[i])
		if f == 0 {
			f = r
		}
		if math.Abs(r-f) > 1e-9*math.Abs(f) {
			t.Fatalf("non-uniform scale at %d: got=%v, want=%v", i, r, f)
		}
	}
	if f <= 0 {
		t.Fatalf("invalid scale factor: %v", f)
	}

	ScaleCSIInPlace(rec)
	for i := range out {
		if cmplx.Abs(rec.CSI[i]-out[i]) > 1e-12 {
			t.Fatalf("in-place and copying variants disagree at %d: %v != %v",
				i, rec.CSI[i], out[i],
			)
		}
	}
}

func TestRemoveSpatialMappingIdentity(t *testing.T) {
	// single-stream frames were never mapped: the transform must be
	// the identity.
	rec := testRecord(3, 1)
	orig := append([]complex128(nil), rec.CSI...)

	out := RemoveSpatialMapping(rec)
	for i := range orig {
		if out[i] != orig[i] {
			t.Fatalf("single-stream CSI changed at %d: got=%v, want=%v", i, out[i], orig[i])
		}
	}
}

func TestRemoveSpatialMappingRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		name string
		ntx  int
		rate uint16
		sm   *mat.CDense
	}{
		{name: "2x20MHz", ntx: 2, rate: 0, sm: sm2of20},
		{name: "2x40MHz", ntx: 2, rate: rateBW40, sm: sm2of40},
		{name: "3x20MHz", ntx: 3, rate: 0, sm: sm3of20},
		{name: "3x40MHz", ntx: 3, rate: rateBW40, sm: sm3of40},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec := testRecord(2, tc.ntx)
			rec.Rate = tc.rate
			want := append([]complex128(nil), rec.CSI...)

			// apply the spatial mapping the way the transmitter
			// does, then undo it.
			var (
				row = mat.NewCDense(1, tc.ntx, nil)
				out = mat.NewCDense(1, tc.ntx, nil)
			)
			for sub := 0; sub < NumSubcarriers; sub++ {
				for rx := 0; rx < int(rec.Nrx); rx++ {
					for tx := 0; tx < tc.ntx; tx++ {
						row.Set(0, tx, rec.CSI[rec.index(sub, rx, tx)])
					}
					out.Mul(row, tc.sm)
					for tx := 0; tx < tc.ntx; tx++ {
						rec.CSI[rec.index(sub, rx, tx)] = out.At(0, tx)
					}
				}
			}

			RemoveSpatialMappingInPlace(rec)
			for i := range want {
				if cmplx.Abs(rec.CSI[i]-want[i]) > 1e-9 {
					t.Fatalf("round trip failed at %d: got=%v, want=%v", i, rec.CSI[i], want[i])
				}
			}
		})
	}
}
