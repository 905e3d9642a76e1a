// Copyright 2024 The go-csi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stamp

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestRead(t *testing.T) {
	var raw []byte
	raw = binary.LittleEndian.AppendUint32(raw, 1700000000)
	raw = binary.LittleEndian.AppendUint32(raw, 250000)
	raw = binary.LittleEndian.AppendUint32(raw, 1700000001)
	raw = binary.LittleEndian.AppendUint32(raw, 0)
	raw = append(raw, 0xaa, 0xbb, 0xcc) // trailing partial entry

	want := []Time{
		{Sec: 1700000000, Usec: 250000},
		{Sec: 1700000001, Usec: 0},
	}
	got := Read(raw)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("invalid timestamps (-want +got):\n%s", diff)
	}

	if got, want := got[0].Time(), time.Unix(1700000000, 250_000_000); !got.Equal(want) {
		t.Fatalf("invalid time: got=%v, want=%v", got, want)
	}
}

func TestReadFile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "timestamps.stp")

	var raw []byte
	raw = binary.LittleEndian.AppendUint32(raw, 42)
	raw = binary.LittleEndian.AppendUint32(raw, 7)
	if err := os.WriteFile(fname, raw, 0644); err != nil {
		t.Fatalf("could not write side-file: %+v", err)
	}

	ts, err := ReadFile(fname)
	if err != nil {
		t.Fatalf("could not read side-file: %+v", err)
	}
	if len(ts) != 1 || ts[0].Sec != 42 || ts[0].Usec != 7 {
		t.Fatalf("invalid timestamps: %+v", ts)
	}

	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.stp")); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}
