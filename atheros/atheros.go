// Copyright 2024 The go-csi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package atheros decodes CSI log files produced by the Atheros
// ath9k CSI extraction driver.
package atheros // import "github.com/go-csi/csikit/atheros"

import (
	"errors"
)

const (
	// TypeCSI is the status code returned by DecodeFrame for a
	// successfully decoded record.
	TypeCSI = 0xff00

	headerLen = 25

	// csiBits is the width of one packed CSI component on the wire.
	csiBits = 10
)

var (
	// ErrChainRange reports a frame whose declared chain counts
	// exceed the configured maxima.
	ErrChainRange = errors.New("atheros: chain count exceeds configured maximum")

	// ErrToneRange reports a frame whose declared tone count exceeds
	// the configured tone count.
	ErrToneRange = errors.New("atheros: tone count exceeds configured maximum")
)

// Record is one decoded CSI frame.
//
// The CSI tensor is stored as a flat slice of complex samples with
// shape [Tones x MaxNr x MaxNc] (the configured maxima, not the
// per-frame counts); entries beyond the frame's tone and chain
// counts are zero.
type Record struct {
	Timestamp  uint64 // 64-bit driver clock
	CSILen     uint16 // packed CSI byte length declared by the frame
	Channel    uint16 // centre frequency, MHz
	ErrInfo    uint8  // PHY error code
	NoiseFloor int8
	Rate       uint8
	Bandwidth  uint8
	Tones      uint8 // tone count declared by the frame
	Nr, Nc     uint8 // chain counts declared by the frame
	RSSI       uint8 // combined RSSI
	RSSI1      uint8
	RSSI2      uint8
	RSSI3      uint8
	PayloadLen uint16

	CSI     []complex128
	Payload []byte // at most the configured payload cap

	tones, maxNr, maxNc int
}

// Dims returns the dimensions of the CSI tensor.
func (rec *Record) Dims() (tones, nr, nc int) {
	return rec.tones, rec.maxNr, rec.maxNc
}

// At returns the CSI sample for the given tone and chain pair.
func (rec *Record) At(tone, r, c int) complex128 {
	return rec.CSI[rec.index(tone, r, c)]
}

func (rec *Record) index(tone, r, c int) int {
	return (tone*rec.maxNr+r)*rec.maxNc + c
}

// Store holds the records decoded from one capture, in file order.
type Store struct {
	Records []Record
}

func newStore(nbytes int) *Store {
	// a record is at least the length prefix plus the fixed header.
	n := nbytes/(2+headerLen) + 1
	return &Store{Records: make([]Record, 0, n)}
}
