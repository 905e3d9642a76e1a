// Copyright 2024 The go-csi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package intel

import "math"

// rssOffset is the fixed calibration between the NIC RSSI scale and dBm.
const rssOffset = 44

func dbinv(x float64) float64 { return math.Pow(10, x/10) }

func todb(x float64) float64 { return 10 * math.Log10(x) }

// RSS returns the total received signal strength of rec in dBm,
// summing the per-antenna RSSI values in the linear domain.
// An RSSI of zero marks an inactive chain and does not contribute.
func RSS(rec *Record) float64 {
	var pwr float64
	if rec.RSSIA != 0 {
		pwr += dbinv(float64(rec.RSSIA))
	}
	if rec.RSSIB != 0 {
		pwr += dbinv(float64(rec.RSSIB))
	}
	if rec.RSSIC != 0 {
		pwr += dbinv(float64(rec.RSSIC))
	}
	return todb(pwr) - rssOffset - float64(rec.AGC)
}
