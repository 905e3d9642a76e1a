// Copyright 2024 The go-csi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package intel decodes CSI log files produced by the Intel 5300
// netlink connector and derives physical quantities from the
// decoded channel matrices.
package intel // import "github.com/go-csi/csikit/intel"

import (
	"errors"
)

const (
	codeCSI = 0xbb // beamforming (CSI) record
	codeMAC = 0xc1 // MAC-header record

	// NumSubcarriers is the number of OFDM subcarriers reported by
	// the 5300 NIC, regardless of bandwidth mode.
	NumSubcarriers = 30

	csiHeaderLen = 20
	macHeaderLen = 24

	// smallest complete CSI record: length prefix + type code +
	// header + 1x1 beamforming matrix.
	minRecordLen = 3 + csiHeaderLen + 60*1*1 + 12
)

var (
	// ErrAntennaRange reports a frame whose declared antenna counts
	// exceed the configured maxima.
	ErrAntennaRange = errors.New("intel: antenna count exceeds configured maximum")

	// ErrFrameSize reports a CSI record whose declared beamforming
	// matrix size does not match its antenna counts.
	ErrFrameSize = errors.New("intel: invalid beamforming matrix size")

	// ErrPermutation reports a CSI record whose antenna permutation
	// addresses a receive chain beyond the declared count.
	ErrPermutation = errors.New("intel: invalid antenna permutation")
)

// Record is one decoded CSI frame.
//
// The CSI tensor is stored as a flat slice of complex samples with
// shape [NumSubcarriers x MaxRx x MaxTx] (the configured maxima, not
// the per-frame counts); entries beyond Nrx/Ntx are zero.
type Record struct {
	Timestamp uint32 // low 32 bits of the 1 MHz NIC clock
	Count     uint16 // beamforming measurement counter
	Nrx, Ntx  uint8  // antenna counts declared by the frame
	RSSIA     uint8  // per-antenna RSSI, dB above noise floor
	RSSIB     uint8
	RSSIC     uint8
	Noise     int8
	AGC       uint8
	Perm      [3]uint8 // receive-chain permutation
	Rate      uint16   // rate/flags word

	CSI []complex128

	maxRx, maxTx int
}

// Dims returns the dimensions of the CSI tensor.
func (rec *Record) Dims() (nsub, nrx, ntx int) {
	return NumSubcarriers, rec.maxRx, rec.maxTx
}

// At returns the CSI sample for the given subcarrier and antenna pair.
func (rec *Record) At(sub, rx, tx int) complex128 {
	return rec.CSI[rec.index(sub, rx, tx)]
}

func (rec *Record) index(sub, rx, tx int) int {
	return (sub*rec.maxRx+rx)*rec.maxTx + tx
}

// MACRecord is one decoded 802.11 MAC-header frame.
type MACRecord struct {
	FrameControl uint16
	Duration     uint16
	Addr1        [6]byte
	Addr2        [6]byte
	Addr3        [6]byte
	Seq          uint16
	Payload      []byte // at most the configured payload cap
}

// Store holds the records decoded from one capture, in file order.
type Store struct {
	CSI []Record
	MAC []MACRecord
}

func newStore(nbytes int) *Store {
	// records are at least minRecordLen bytes on the wire, so this
	// over-estimates the final count; the append loop never exposes
	// the unused capacity.
	n := nbytes/minRecordLen + 1
	return &Store{
		CSI: make([]Record, 0, n),
		MAC: make([]MACRecord, 0, n),
	}
}
