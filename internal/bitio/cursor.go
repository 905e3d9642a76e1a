// Copyright 2024 The go-csi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bitio provides byte-order and bit-field primitives for the
// CSI frame decoders.
package bitio // import "github.com/go-csi/csikit/internal/bitio"

import (
	"encoding/binary"
	"io"
)

// Cursor is a bounds-checked, forward-only reader over a byte slice.
// Multi-byte reads honour the byte order chosen at construction.
// The first short read latches an error; every read after that returns
// a zero value and Err reports the failure.
type Cursor struct {
	buf []byte
	pos int
	ord binary.ByteOrder
	err error
}

// NewCursor returns a cursor over p, decoding multi-byte fields with ord.
func NewCursor(p []byte, ord binary.ByteOrder) *Cursor {
	return &Cursor{buf: p, ord: ord}
}

// Err reports the first error encountered by the cursor, if any.
func (cur *Cursor) Err() error { return cur.err }

// Pos returns the current offset from the start of the underlying slice.
func (cur *Cursor) Pos() int { return cur.pos }

// Remaining returns the number of unread bytes.
func (cur *Cursor) Remaining() int {
	if cur.err != nil {
		return 0
	}
	return len(cur.buf) - cur.pos
}

func (cur *Cursor) load(n int) []byte {
	if cur.err != nil {
		return nil
	}
	if len(cur.buf)-cur.pos < n {
		cur.err = io.ErrUnexpectedEOF
		return nil
	}
	p := cur.buf[cur.pos : cur.pos+n]
	cur.pos += n
	return p
}

// Skip advances the cursor by n bytes.
func (cur *Cursor) Skip(n int) { _ = cur.load(n) }

// Bytes returns the next n bytes without copying them.
// The returned slice aliases the cursor's backing array.
func (cur *Cursor) Bytes(n int) []byte {
	p := cur.load(n)
	if p == nil {
		return nil
	}
	return p
}

func (cur *Cursor) U8() uint8 {
	p := cur.load(1)
	if p == nil {
		return 0
	}
	return p[0]
}

func (cur *Cursor) I8() int8 { return int8(cur.U8()) }

func (cur *Cursor) U16() uint16 {
	p := cur.load(2)
	if p == nil {
		return 0
	}
	return cur.ord.Uint16(p)
}

func (cur *Cursor) I16() int16 { return int16(cur.U16()) }

func (cur *Cursor) U32() uint32 {
	p := cur.load(4)
	if p == nil {
		return 0
	}
	return cur.ord.Uint32(p)
}

func (cur *Cursor) U64() uint64 {
	p := cur.load(8)
	if p == nil {
		return 0
	}
	return cur.ord.Uint64(p)
}

func (cur *Cursor) I64() int64 { return int64(cur.U64()) }
