// Copyright 2024 The go-csi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package stamp reads the companion timestamp side-files written
// next to CSI captures, one 8-byte entry per logical record.
package stamp // import "github.com/go-csi/csikit/stamp"

import (
	"encoding/binary"
	"os"
	"time"

	"golang.org/x/xerrors"
)

// entryLen is the wire size of one timestamp entry.
const entryLen = 8

// Time is one capture timestamp.
type Time struct {
	Sec  uint32
	Usec uint32
}

// Time returns the entry as a time.Time.
func (t Time) Time() time.Time {
	return time.Unix(int64(t.Sec), int64(t.Usec)*1e3)
}

// Read decodes the timestamp entries in data: little-endian
// (seconds, microseconds) pairs. A trailing partial entry is
// ignored, mirroring the truncation rule of the frame decoders.
func Read(data []byte) []Time {
	ts := make([]Time, 0, len(data)/entryLen)
	for len(data) >= entryLen {
		ts = append(ts, Time{
			Sec:  binary.LittleEndian.Uint32(data[0:4]),
			Usec: binary.LittleEndian.Uint32(data[4:8]),
		})
		data = data[entryLen:]
	}
	return ts
}

// ReadFile reads and decodes the timestamp side-file at path.
func ReadFile(path string) ([]Time, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("stamp: could not read %q: %w", path, err)
	}
	return Read(data), nil
}
