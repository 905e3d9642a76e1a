// Copyright 2024 The go-csi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bitio

import (
	"encoding/binary"
	"io"
	"reflect"
	"testing"
)

func TestCursor(t *testing.T) {
	for _, tc := range []struct {
		name string
		buf  []byte
		ord  binary.ByteOrder
		fun  func(cur *Cursor) interface{}
		want interface{}
		err  error
	}{
		{
			name: "u8",
			buf:  []byte{0xab},
			ord:  binary.LittleEndian,
			fun:  func(cur *Cursor) interface{} { return cur.U8() },
			want: uint8(0xab),
		},
		{
			name: "i8-negative",
			buf:  []byte{0x80},
			ord:  binary.LittleEndian,
			fun:  func(cur *Cursor) interface{} { return cur.I8() },
			want: int8(-128),
		},
		{
			name: "u16-le",
			buf:  []byte{0x34, 0x12},
			ord:  binary.LittleEndian,
			fun:  func(cur *Cursor) interface{} { return cur.U16() },
			want: uint16(0x1234),
		},
		{
			name: "u16-be",
			buf:  []byte{0x12, 0x34},
			ord:  binary.BigEndian,
			fun:  func(cur *Cursor) interface{} { return cur.U16() },
			want: uint16(0x1234),
		},
		{
			name: "u32-le",
			buf:  []byte{0x78, 0x56, 0x34, 0x12},
			ord:  binary.LittleEndian,
			fun:  func(cur *Cursor) interface{} { return cur.U32() },
			want: uint32(0x12345678),
		},
		{
			name: "u64-be",
			buf:  []byte{0, 0, 0, 0, 0x12, 0x34, 0x56, 0x78},
			ord:  binary.BigEndian,
			fun:  func(cur *Cursor) interface{} { return cur.U64() },
			want: uint64(0x12345678),
		},
		{
			name: "short-read",
			buf:  []byte{0x12},
			ord:  binary.LittleEndian,
			fun:  func(cur *Cursor) interface{} { return cur.U16() },
			want: uint16(0),
			err:  io.ErrUnexpectedEOF,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cur := NewCursor(tc.buf, tc.ord)
			got := tc.fun(cur)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("invalid value: got=%v, want=%v", got, tc.want)
			}
			if cur.Err() != tc.err {
				t.Fatalf("invalid error: got=%v, want=%v", cur.Err(), tc.err)
			}
		})
	}
}

func TestCursorLatchesError(t *testing.T) {
	cur := NewCursor([]byte{0x01, 0x02}, binary.LittleEndian)
	if got, want := cur.U32(), uint32(0); got != want {
		t.Fatalf("got=%v, want=%v", got, want)
	}
	if cur.Err() != io.ErrUnexpectedEOF {
		t.Fatalf("invalid error: got=%v", cur.Err())
	}
	// reads after the error stay zero, even though bytes remain.
	if got, want := cur.U8(), uint8(0); got != want {
		t.Fatalf("got=%v, want=%v", got, want)
	}
	if got, want := cur.Remaining(), 0; got != want {
		t.Fatalf("got=%v, want=%v", got, want)
	}
}

func TestCursorSkip(t *testing.T) {
	cur := NewCursor([]byte{1, 2, 3, 4}, binary.LittleEndian)
	cur.Skip(3)
	if got, want := cur.U8(), uint8(4); got != want {
		t.Fatalf("got=%v, want=%v", got, want)
	}
	if got, want := cur.Remaining(), 0; got != want {
		t.Fatalf("got=%v, want=%v", got, want)
	}
}

func TestSign10(t *testing.T) {
	// 0b0111111111 -> +511, 0b1000000000 -> -512.
	for _, tc := range []struct {
		name string
		buf  []byte
		skip int // leading bits to discard
		want []int32
	}{
		{
			name: "aligned",
			// lsb-first packing: 0x1ff then 0x200 in successive 10-bit fields.
			// bits: 1111111110 0000000010 0000...
			buf:  []byte{0xff, 0x01, 0x08},
			want: []int32{511, -512},
		},
		{
			name: "unaligned",
			// same two fields after 3 padding bits.
			buf:  []byte{0xf8, 0x0f, 0x40},
			skip: 3,
			want: []int32{511, -512},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := NewReader(tc.buf)
			if tc.skip > 0 {
				_ = r.Uint(tc.skip)
			}
			got := make([]int32, 0, len(tc.want))
			for range tc.want {
				got = append(got, r.Sign(10))
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("invalid fields: got=%v, want=%v", got, tc.want)
			}
		})
	}
}

func TestReaderRefill(t *testing.T) {
	// 48 bits of alternating 10-bit fields crossing every refill boundary.
	fields := []uint32{0x3ff, 0x000, 0x2aa, 0x155}
	var (
		acc   uint64
		nbits int
	)
	for i := len(fields) - 1; i >= 0; i-- {
		acc = acc<<10 | uint64(fields[i])
		nbits += 10
	}
	buf := make([]byte, (nbits+7)/8)
	for i := range buf {
		buf[i] = byte(acc >> (8 * i))
	}

	r := NewReader(buf)
	for i, want := range fields {
		if got := r.Uint(10); got != want {
			t.Fatalf("field %d: got=0x%x, want=0x%x", i, got, want)
		}
	}
}
