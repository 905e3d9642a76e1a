// Copyright 2024 The go-csi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package nexmon decodes pcap captures produced by Nexmon CSI
// extraction firmware on Broadcom chips.
package nexmon // import "github.com/go-csi/csikit/nexmon"

// TypeCSI is the status code returned by DecodeFrame for a
// successfully decoded frame.
const TypeCSI = 0xf100

const (
	etherLen  = 42 // Ethernet + IP + UDP prefix of a CSI packet
	markerOff = 6  // Ethernet source address
	appHdrLen = 18
)

// marker tags the Ethernet source address of CSI packets; anything
// else in the capture is skipped.
var marker = [6]byte{'N', 'E', 'X', 'M', 'O', 'N'}

// Record is one decoded CSI frame.
//
// The CSI vector holds one complex sample per subcarrier; the core
// and spatial-stream indices are metadata, not tensor axes.
type Record struct {
	Sec     uint32 // capture timestamp, seconds
	Usec    uint32 // capture timestamp, microseconds
	CapLen  uint32 // bytes captured from the wire
	WireLen uint32 // bytes on the wire

	Magic       uint32
	Source      [6]byte // MAC of the capturing interface
	Seq         uint16
	Core        uint8
	Spatial     uint8
	ChanSpec    uint16
	ChipVersion uint16

	CSI []complex128
}

// Store holds the records decoded from one capture, in file order.
type Store struct {
	Records []Record
}

type formatKind uint8

const (
	fmtUnsupported formatKind = iota
	fmtInt16
	fmtFloat
)

// chipFormat is the CSI sample encoding of one chip generation,
// decided once at construction.
type chipFormat struct {
	kind formatKind
	nman int // mantissa width, sign included
	nexp int // exponent width
}

func formatFor(chip string) chipFormat {
	switch chip {
	case "4339", "43455c0":
		return chipFormat{kind: fmtInt16}
	case "4358":
		return chipFormat{kind: fmtFloat, nman: 9, nexp: 5}
	case "4366c0":
		return chipFormat{kind: fmtFloat, nman: 12, nexp: 6}
	default:
		return chipFormat{kind: fmtUnsupported}
	}
}
