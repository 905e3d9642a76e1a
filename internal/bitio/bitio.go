// Copyright 2024 The go-csi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bitio

// Reader extracts successive bit fields from a packed byte stream.
// The accumulator is refilled 16 bits at a time, in little-endian byte
// order, whenever fewer bits remain buffered than a field needs.
// Reads past the end of the stream yield zero bits; callers are
// expected to bound the number of fields from the frame metadata.
type Reader struct {
	buf   []byte
	pos   int    // next byte to load
	acc   uint64 // rolling accumulator, low nbits valid
	nbits int
}

// NewReader returns a bit-field reader over p.
func NewReader(p []byte) *Reader {
	return &Reader{buf: p}
}

func (r *Reader) refill() {
	switch {
	case r.pos+1 < len(r.buf):
		v := uint64(r.buf[r.pos]) | uint64(r.buf[r.pos+1])<<8
		r.acc |= v << r.nbits
		r.pos += 2
		r.nbits += 16
	case r.pos < len(r.buf):
		r.acc |= uint64(r.buf[r.pos]) << r.nbits
		r.pos++
		r.nbits += 8
	default:
		r.nbits += 16 // zero-fill past the end
	}
}

// Uint returns the next n-bit unsigned field, n in [1,32].
func (r *Reader) Uint(n int) uint32 {
	for r.nbits < n {
		r.refill()
	}
	v := uint32(r.acc & (1<<n - 1))
	r.acc >>= n
	r.nbits -= n
	return v
}

// Sign returns the next n-bit two's-complement field, n in [1,32].
func (r *Reader) Sign(n int) int32 {
	v := r.Uint(n)
	if v&(1<<(n-1)) != 0 {
		v |= ^uint32(0) << n
	}
	return int32(v)
}
