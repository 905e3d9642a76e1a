// Copyright 2024 The go-csi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nexmon

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"log"
	"math"
	"os"

	"github.com/google/gopacket/pcapgo"
	"golang.org/x/xerrors"

	"github.com/go-csi/csikit/internal/bitio"
)

// Config holds the construction-time options of a Decoder.
type Config struct {
	Chip      string // chip identifier, e.g. "4339", "4358", "43455c0", "4366c0"
	Bandwidth int    // channel bandwidth in MHz: 20, 40 or 80 (default 80)
	Verbose   bool   // emit a summary after each batch decode

	Msg *log.Logger // destination of the summary (default log.Default())
}

// Decoder decodes Nexmon CSI pcap captures.
//
// Batch decoding walks a whole pcap stream and returns a Store; live
// decoding consumes one pre-delimited UDP payload at a time into the
// Frame slot. A Decoder is not safe for concurrent use.
type Decoder struct {
	cfg  Config
	fmt  chipFormat
	nsub int // subcarrier count, round(bandwidth * 3.2)
	msg  *log.Logger

	Frame Record // last frame decoded by DecodeFrame
}

// NewDecoder returns a decoder configured with cfg.
//
// An unknown chip identifier is not an error: headers still decode,
// but the CSI payload is left untouched and reported in the summary.
func NewDecoder(cfg Config) (*Decoder, error) {
	if cfg.Bandwidth == 0 {
		cfg.Bandwidth = 80
	}
	switch cfg.Bandwidth {
	case 20, 40, 80:
	default:
		return nil, xerrors.Errorf("nexmon: invalid bandwidth %d MHz", cfg.Bandwidth)
	}
	msg := cfg.Msg
	if msg == nil {
		msg = log.Default()
	}
	return &Decoder{
		cfg:  cfg,
		fmt:  formatFor(cfg.Chip),
		nsub: int(math.Round(float64(cfg.Bandwidth) * 3.2)),
		msg:  msg,
	}, nil
}

// Subcarriers returns the per-frame CSI vector length.
func (dec *Decoder) Subcarriers() int { return dec.nsub }

// Decode decodes a whole pcap stream.
//
// Only packets carrying the CSI marker in their Ethernet source
// address are decoded; everything else in the capture is skipped. A
// truncated trailing packet ends the decode cleanly.
func (dec *Decoder) Decode(r io.Reader) (*Store, error) {
	pr, err := pcapgo.NewReader(r)
	if err != nil {
		return nil, xerrors.Errorf("nexmon: could not read pcap header: %w", err)
	}

	var (
		store   = &Store{}
		skipped = 0
	)
loop:
	for {
		data, ci, err := pr.ReadPacketData()
		switch {
		case err == nil:
			// ok
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			break loop // truncated packet: keep what we have
		default:
			dec.summary(store, skipped)
			return store, xerrors.Errorf("nexmon: could not read pcap record %d: %w",
				len(store.Records)+skipped, err,
			)
		}

		if len(data) < etherLen+appHdrLen ||
			!bytes.Equal(data[markerOff:markerOff+6], marker[:]) {
			skipped++
			continue
		}

		var rec Record
		rec.Sec = uint32(ci.Timestamp.Unix())
		rec.Usec = uint32(ci.Timestamp.Nanosecond() / 1e3)
		rec.CapLen = uint32(ci.CaptureLength)
		rec.WireLen = uint32(ci.Length)
		if err := dec.decodeFrame(data[etherLen:], &rec); err != nil {
			dec.summary(store, skipped)
			return store, xerrors.Errorf("nexmon: could not decode record %d: %w",
				len(store.Records), err,
			)
		}
		store.Records = append(store.Records, rec)
	}

	dec.summary(store, skipped)
	return store, nil
}

// DecodeFile opens the pcap file at path and decodes it.
func (dec *Decoder) DecodeFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Errorf("nexmon: could not open %q: %w", path, err)
	}
	defer f.Close()
	return dec.Decode(f)
}

// DecodeFrame decodes one pre-delimited UDP payload (the application
// header and CSI data, with the pcap and Ethernet framing already
// stripped) into the Frame slot and returns TypeCSI.
func (dec *Decoder) DecodeFrame(buf []byte) (code int, err error) {
	dec.Frame = Record{}
	if err := dec.decodeFrame(buf, &dec.Frame); err != nil {
		return TypeCSI, xerrors.Errorf("nexmon: could not decode frame: %w", err)
	}
	return TypeCSI, nil
}

func (dec *Decoder) decodeFrame(p []byte, rec *Record) error {
	cur := bitio.NewCursor(p, binary.LittleEndian)

	rec.Magic = cur.U32()
	copy(rec.Source[:], cur.Bytes(6))
	rec.Seq = cur.U16()
	cs := cur.U16()
	rec.Core = uint8(cs & 0x7)
	rec.Spatial = uint8(cs >> 3 & 0x7)
	rec.ChanSpec = cur.U16()
	rec.ChipVersion = cur.U16()
	if cur.Err() != nil {
		return xerrors.Errorf("could not read frame header: %w", cur.Err())
	}

	switch dec.fmt.kind {
	case fmtInt16:
		rec.CSI = make([]complex128, dec.nsub)
		n := cur.Remaining() / 4
		if n > dec.nsub {
			n = dec.nsub
		}
		for i := 0; i < n; i++ {
			re := cur.I16()
			im := cur.I16()
			rec.CSI[i] = complex(float64(re), float64(im))
		}
	case fmtFloat:
		rec.CSI = make([]complex128, dec.nsub)
		n := cur.Remaining() / 4
		if n > dec.nsub {
			n = dec.nsub
		}
		words := make([]uint32, n)
		for i := range words {
			words[i] = cur.U32()
		}
		unpackFloat(dec.fmt, words, rec.CSI)
	case fmtUnsupported:
		// unknown chip: headers only.
	}
	return nil
}

func (dec *Decoder) summary(store *Store, skipped int) {
	if !dec.cfg.Verbose {
		return
	}
	if dec.fmt.kind == fmtUnsupported {
		dec.msg.Printf("nexmon: decoded %d records (%d skipped, chip %q unsupported: CSI left raw)",
			len(store.Records), skipped, dec.cfg.Chip,
		)
		return
	}
	dec.msg.Printf("nexmon: decoded %d records (%d skipped)", len(store.Records), skipped)
}
