// Copyright 2024 The go-csi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package atheros

import (
	"encoding/binary"
	"log"

	"golang.org/x/xerrors"

	"github.com/go-csi/csikit/internal/bitio"
	"github.com/go-csi/csikit/internal/mmap"
)

// Config holds the construction-time options of a Decoder.
type Config struct {
	MaxNr      int    // maximum receive chain count (default 3)
	MaxNc      int    // maximum transmit chain count (default 2)
	Tones      int    // tone count: 56 (20 MHz) or 114 (40 MHz); default 56
	PayloadCap int    // payload bytes to retain (default 0)
	Endian     string // byte order of the log: "little" (default) or "big"
	Verbose    bool   // emit a summary after each batch decode

	Msg *log.Logger // destination of the summary (default log.Default())
}

// Decoder decodes Atheros CSI log data.
//
// Batch decoding walks a whole capture buffer and returns a Store;
// live decoding consumes one pre-delimited record at a time into the
// Frame slot. A Decoder is not safe for concurrent use.
type Decoder struct {
	cfg Config
	ord binary.ByteOrder
	msg *log.Logger

	Frame Record // last record decoded by DecodeFrame
}

// NewDecoder returns a decoder configured with cfg.
func NewDecoder(cfg Config) (*Decoder, error) {
	if cfg.MaxNr == 0 {
		cfg.MaxNr = 3
	}
	if cfg.MaxNc == 0 {
		cfg.MaxNc = 2
	}
	if cfg.Tones == 0 {
		cfg.Tones = 56
	}
	if cfg.MaxNr < 1 || cfg.MaxNr > 3 {
		return nil, xerrors.Errorf("atheros: invalid max-nr value %d", cfg.MaxNr)
	}
	if cfg.MaxNc < 1 || cfg.MaxNc > 3 {
		return nil, xerrors.Errorf("atheros: invalid max-nc value %d", cfg.MaxNc)
	}
	if cfg.Tones != 56 && cfg.Tones != 114 {
		return nil, xerrors.Errorf("atheros: invalid tone count %d (want 56 or 114)", cfg.Tones)
	}
	if cfg.PayloadCap < 0 {
		return nil, xerrors.Errorf("atheros: invalid payload cap %d", cfg.PayloadCap)
	}

	var ord binary.ByteOrder
	switch cfg.Endian {
	case "", "little":
		ord = binary.LittleEndian
	case "big":
		ord = binary.BigEndian
	default:
		return nil, xerrors.Errorf("atheros: invalid endianness %q", cfg.Endian)
	}

	msg := cfg.Msg
	if msg == nil {
		msg = log.Default()
	}
	return &Decoder{cfg: cfg, ord: ord, msg: msg}, nil
}

// Decode decodes a whole capture buffer.
//
// The buffer is a stream of records: a u16 length prefix followed by
// that many record bytes, all multi-byte fields in the configured
// byte order. A truncated trailing record ends the decode cleanly; a
// configuration violation aborts it, but the returned store always
// holds every record parsed before the failure. The trailing records
// some analysis tools drop by convention are kept.
func (dec *Decoder) Decode(data []byte) (*Store, error) {
	var (
		cur   = bitio.NewCursor(data, dec.ord)
		store = newStore(len(data))
	)

loop:
	for cur.Remaining() >= 2 {
		flen := int(cur.U16())
		if flen < headerLen || cur.Remaining() < flen {
			break loop // truncated record: keep what we have
		}
		body := cur.Bytes(flen)

		var rec Record
		ok, err := dec.decodeRecord(body, &rec)
		if err != nil {
			dec.summary(store)
			return store, xerrors.Errorf("atheros: could not decode record %d: %w",
				len(store.Records), err,
			)
		}
		if !ok {
			break loop // record shorter than its declared contents
		}
		store.Records = append(store.Records, rec)
	}

	dec.summary(store)
	return store, nil
}

// DecodeFile maps the file at path and decodes it.
func (dec *Decoder) DecodeFile(path string) (*Store, error) {
	h, err := mmap.Open(path)
	if err != nil {
		return nil, xerrors.Errorf("atheros: could not map %q: %w", path, err)
	}
	defer h.Close()
	return dec.Decode(h.Bytes())
}

// DecodeFrame decodes one pre-delimited record (without the length
// prefix) into the Frame slot and returns TypeCSI.
func (dec *Decoder) DecodeFrame(buf []byte) (code int, err error) {
	dec.Frame = Record{}
	ok, err := dec.decodeRecord(buf, &dec.Frame)
	if err != nil {
		return TypeCSI, xerrors.Errorf("atheros: could not decode frame: %w", err)
	}
	if !ok {
		return TypeCSI, xerrors.Errorf("atheros: frame shorter than its declared contents")
	}
	return TypeCSI, nil
}

// decodeRecord decodes one record body. It reports ok=false when the
// body is shorter than the contents its header declares, which batch
// mode treats as truncation.
func (dec *Decoder) decodeRecord(body []byte, rec *Record) (ok bool, err error) {
	cur := bitio.NewCursor(body, dec.ord)

	rec.Timestamp = cur.U64()
	rec.CSILen = cur.U16()
	rec.Channel = cur.U16()
	rec.ErrInfo = cur.U8()
	rec.NoiseFloor = cur.I8()
	rec.Rate = cur.U8()
	rec.Bandwidth = cur.U8()
	rec.Tones = cur.U8()
	rec.Nr = cur.U8()
	rec.Nc = cur.U8()
	rec.RSSI = cur.U8()
	rec.RSSI1 = cur.U8()
	rec.RSSI2 = cur.U8()
	rec.RSSI3 = cur.U8()
	rec.PayloadLen = cur.U16()
	if cur.Err() != nil {
		return false, nil
	}

	var (
		nr    = int(rec.Nr)
		nc    = int(rec.Nc)
		tones = int(rec.Tones)
	)
	if nr > dec.cfg.MaxNr || nc > dec.cfg.MaxNc {
		return false, xerrors.Errorf("frame declares %dx%d chains (max %dx%d): %w",
			nr, nc, dec.cfg.MaxNr, dec.cfg.MaxNc, ErrChainRange,
		)
	}
	if tones > dec.cfg.Tones {
		return false, xerrors.Errorf("frame declares %d tones (max %d): %w",
			tones, dec.cfg.Tones, ErrToneRange,
		)
	}

	rec.tones = dec.cfg.Tones
	rec.maxNr = dec.cfg.MaxNr
	rec.maxNc = dec.cfg.MaxNc

	if rec.CSILen > 0 {
		csi := cur.Bytes(int(rec.CSILen))
		if cur.Err() != nil {
			return false, nil
		}
		rec.CSI = make([]complex128, rec.tones*rec.maxNr*rec.maxNc)

		// one complex sample per (tone, chain pair), imaginary
		// component first, each a 10-bit two's-complement field.
		br := bitio.NewReader(csi)
		for k := 0; k < tones; k++ {
			for c := 0; c < nc; c++ {
				for r := 0; r < nr; r++ {
					im := br.Sign(csiBits)
					re := br.Sign(csiBits)
					rec.CSI[rec.index(k, r, c)] = complex(float64(re), float64(im))
				}
			}
		}
	}

	n := int(rec.PayloadLen)
	if n > dec.cfg.PayloadCap {
		n = dec.cfg.PayloadCap
	}
	if n > 0 {
		p := cur.Bytes(n)
		if cur.Err() != nil {
			return false, nil
		}
		rec.Payload = append([]byte(nil), p...)
	}
	return true, nil
}

func (dec *Decoder) summary(store *Store) {
	if !dec.cfg.Verbose {
		return
	}
	dec.msg.Printf("atheros: decoded %d records", len(store.Records))
}
