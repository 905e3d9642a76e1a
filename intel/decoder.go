// Copyright 2024 The go-csi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package intel

import (
	"encoding/binary"
	"log"

	"golang.org/x/xerrors"

	"github.com/go-csi/csikit/internal/bitio"
	"github.com/go-csi/csikit/internal/mmap"
)

// Config holds the construction-time options of a Decoder.
type Config struct {
	MaxRx      int  // maximum receive antenna count (default 3)
	MaxTx      int  // maximum transmit antenna count (default 2)
	PayloadCap int  // MAC payload bytes to retain (default 0)
	Verbose    bool // emit a summary after each batch decode

	Msg *log.Logger // destination of the summary (default log.Default())
}

// Decoder decodes Intel 5300 CSI log data.
//
// Batch decoding walks a whole capture buffer and returns a Store;
// live decoding consumes one pre-delimited frame at a time into the
// Frame/MAC slots. A Decoder is not safe for concurrent use.
type Decoder struct {
	cfg Config
	msg *log.Logger

	Frame Record    // last frame decoded by DecodeFrame
	MAC   MACRecord // last MAC header decoded by DecodeFrame
}

// NewDecoder returns a decoder configured with cfg.
func NewDecoder(cfg Config) (*Decoder, error) {
	if cfg.MaxRx == 0 {
		cfg.MaxRx = 3
	}
	if cfg.MaxTx == 0 {
		cfg.MaxTx = 2
	}
	if cfg.MaxRx < 1 || cfg.MaxRx > 3 {
		return nil, xerrors.Errorf("intel: invalid max-rx value %d", cfg.MaxRx)
	}
	if cfg.MaxTx < 1 || cfg.MaxTx > 3 {
		return nil, xerrors.Errorf("intel: invalid max-tx value %d", cfg.MaxTx)
	}
	if cfg.PayloadCap < 0 {
		return nil, xerrors.Errorf("intel: invalid payload cap %d", cfg.PayloadCap)
	}
	msg := cfg.Msg
	if msg == nil {
		msg = log.Default()
	}
	return &Decoder{cfg: cfg, msg: msg}, nil
}

// Decode decodes a whole capture buffer.
//
// The buffer is a stream of TLV records: a big-endian u16 length, a
// u8 type code and length-1 payload bytes. A truncated trailing
// record ends the decode cleanly; a structural error aborts it, but
// the returned store always holds every record parsed before the
// failure.
func (dec *Decoder) Decode(data []byte) (*Store, error) {
	var (
		cur     = bitio.NewCursor(data, binary.BigEndian)
		store   = newStore(len(data))
		skipped = 0
	)

loop:
	for cur.Remaining() >= 3 {
		flen := int(cur.U16())
		code := cur.U8()
		if flen < 1 || cur.Remaining() < flen-1 {
			break loop // truncated record: keep what we have
		}
		body := cur.Bytes(flen - 1)

		switch code {
		case codeCSI:
			var rec Record
			if err := dec.decodeCSI(body, &rec); err != nil {
				dec.summary(store, skipped)
				return store, xerrors.Errorf("intel: could not decode CSI record %d: %w",
					len(store.CSI), err,
				)
			}
			store.CSI = append(store.CSI, rec)
		case codeMAC:
			var rec MACRecord
			if err := dec.decodeMAC(body, &rec); err != nil {
				dec.summary(store, skipped)
				return store, xerrors.Errorf("intel: could not decode MAC record %d: %w",
					len(store.MAC), err,
				)
			}
			store.MAC = append(store.MAC, rec)
		default:
			skipped++
		}
	}

	dec.summary(store, skipped)
	return store, nil
}

// DecodeFile maps the file at path and decodes it.
func (dec *Decoder) DecodeFile(path string) (*Store, error) {
	h, err := mmap.Open(path)
	if err != nil {
		return nil, xerrors.Errorf("intel: could not map %q: %w", path, err)
	}
	defer h.Close()
	return dec.Decode(h.Bytes())
}

// DecodeFrame decodes one pre-delimited, type-coded frame into the
// Frame (0xbb) or MAC (0xc1) slot and returns its type code.
//
// A structural failure is not fatal here: the code is returned along
// with the error and the caller is free to skip the frame. Unknown
// type codes are returned undecoded with a nil error.
func (dec *Decoder) DecodeFrame(buf []byte) (code uint8, err error) {
	if len(buf) < 1 {
		return 0, xerrors.Errorf("intel: empty frame")
	}
	code = buf[0]
	switch code {
	case codeCSI:
		dec.Frame = Record{}
		if err := dec.decodeCSI(buf[1:], &dec.Frame); err != nil {
			return code, xerrors.Errorf("intel: could not decode CSI frame: %w", err)
		}
	case codeMAC:
		dec.MAC = MACRecord{}
		if err := dec.decodeMAC(buf[1:], &dec.MAC); err != nil {
			return code, xerrors.Errorf("intel: could not decode MAC frame: %w", err)
		}
	}
	return code, nil
}

func (dec *Decoder) decodeCSI(p []byte, rec *Record) error {
	cur := bitio.NewCursor(p, binary.LittleEndian)

	rec.Timestamp = cur.U32()
	rec.Count = cur.U16()
	cur.Skip(2) // reserved
	nrx := int(cur.U8())
	ntx := int(cur.U8())
	rec.RSSIA = cur.U8()
	rec.RSSIB = cur.U8()
	rec.RSSIC = cur.U8()
	rec.Noise = cur.I8()
	rec.AGC = cur.U8()
	antSel := cur.U8()
	blen := int(cur.U16())
	rec.Rate = cur.U16()
	if cur.Err() != nil {
		return xerrors.Errorf("could not read CSI header: %w", cur.Err())
	}

	if nrx > dec.cfg.MaxRx || ntx > dec.cfg.MaxTx {
		return xerrors.Errorf("frame declares %dx%d antennas (max %dx%d): %w",
			nrx, ntx, dec.cfg.MaxRx, dec.cfg.MaxTx, ErrAntennaRange,
		)
	}
	if blen != 60*nrx*ntx+12 {
		return xerrors.Errorf("beamforming size %d != %d for %dx%d antennas: %w",
			blen, 60*nrx*ntx+12, nrx, ntx, ErrFrameSize,
		)
	}
	bf := cur.Bytes(blen)
	if cur.Err() != nil {
		return xerrors.Errorf("beamforming size %d exceeds frame payload: %w", blen, ErrFrameSize)
	}

	rec.Nrx = uint8(nrx)
	rec.Ntx = uint8(ntx)
	for k := 0; k < 3; k++ {
		rec.Perm[k] = antSel >> (2 * k) & 0x3
	}
	if nrx > 1 {
		for k := 0; k < nrx; k++ {
			if int(rec.Perm[k]) >= nrx {
				return xerrors.Errorf("permutation %v for %d receive chains: %w",
					rec.Perm, nrx, ErrPermutation,
				)
			}
		}
	}

	rec.maxRx = dec.cfg.MaxRx
	rec.maxTx = dec.cfg.MaxTx
	rec.CSI = make([]complex128, NumSubcarriers*rec.maxRx*rec.maxTx)

	// each subcarrier starts with 3 bits of padding, then one 16-bit
	// complex sample (i8 real, i8 imag) per antenna pair, packed at
	// an arbitrary bit offset within a rolling 3-byte window.
	index := 0
	for sub := 0; sub < NumSubcarriers; sub++ {
		index += 3
		rem := uint(index % 8)
		for j := 0; j < nrx*ntx; j++ {
			var (
				start = index / 8
				re    = int8(bf[start]>>rem | bf[start+1]<<(8-rem))
				im    = int8(bf[start+1]>>rem | bf[start+2]<<(8-rem))
				rx    = j % nrx
				tx    = j / nrx
			)
			if nrx > 1 {
				rx = int(rec.Perm[rx])
			}
			rec.CSI[rec.index(sub, rx, tx)] = complex(float64(re), float64(im))
			index += 16
		}
	}

	return nil
}

func (dec *Decoder) decodeMAC(p []byte, rec *MACRecord) error {
	cur := bitio.NewCursor(p, binary.LittleEndian)

	rec.FrameControl = cur.U16()
	rec.Duration = cur.U16()
	copy(rec.Addr1[:], cur.Bytes(6))
	copy(rec.Addr2[:], cur.Bytes(6))
	copy(rec.Addr3[:], cur.Bytes(6))
	rec.Seq = cur.U16()
	if cur.Err() != nil {
		return xerrors.Errorf("could not read MAC header: %w", cur.Err())
	}

	n := cur.Remaining()
	if n > dec.cfg.PayloadCap {
		n = dec.cfg.PayloadCap
	}
	if n > 0 {
		rec.Payload = append([]byte(nil), cur.Bytes(n)...)
	}
	return nil
}

func (dec *Decoder) summary(store *Store, skipped int) {
	if !dec.cfg.Verbose {
		return
	}
	dec.msg.Printf("intel: decoded %d CSI records, %d MAC records (%d skipped)",
		len(store.CSI), len(store.MAC), skipped,
	)
}
