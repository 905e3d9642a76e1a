// Copyright 2024 The go-csi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mmap // import "github.com/go-csi/csikit/internal/mmap"

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestHandle(t *testing.T) {
	t.Run("nil-handle", func(t *testing.T) {
		var h *Handle

		_, err := h.ReadAt(nil, 0)
		if !errors.Is(err, os.ErrInvalid) {
			t.Fatalf("invalid read-at error: %+v", err)
		}

		err = h.Close()
		if !errors.Is(err, os.ErrInvalid) {
			t.Fatalf("invalid close error: %+v", err)
		}
	})
	t.Run("nil-data", func(t *testing.T) {
		var h Handle

		_, err := h.ReadAt(nil, 0)
		if !errors.Is(err, errClosed) {
			t.Fatalf("invalid read-at error: %+v", err)
		}

		err = h.Close()
		if err != nil {
			t.Fatalf("error closing nil-data handle: %+v", err)
		}
	})
}

func TestHandleFrom(t *testing.T) {
	h := HandleFrom([]byte{0, 1, 2, 3})

	if got, want := h.Len(), 4; got != want {
		t.Fatalf("invalid len: got=%d, want=%d", got, want)
	}

	if got, want := h.Bytes()[1], byte(1); got != want {
		t.Fatalf("invalid value: got=%d, want=%d", got, want)
	}

	_, err := h.ReadAt(nil, -1)
	if got, want := err.Error(), "mmap: invalid ReadAt offset -1"; got != want {
		t.Fatalf("invalid error: %+v", err)
	}

	p := make([]byte, 4)
	n, err := h.ReadAt(p, 2)
	if n != 2 || !errors.Is(err, io.EOF) {
		t.Fatalf("invalid short read: n=%d err=%+v", n, err)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	fname := filepath.Join(dir, "data.raw")
	want := []byte{0xde, 0xad, 0xbe, 0xef}
	if err := os.WriteFile(fname, want, 0644); err != nil {
		t.Fatalf("could not create data file: %+v", err)
	}

	h, err := Open(fname)
	if err != nil {
		t.Fatalf("could not mmap file: %+v", err)
	}
	defer h.Close()

	if !bytes.Equal(h.Bytes(), want) {
		t.Fatalf("invalid mapping: got=%x, want=%x", h.Bytes(), want)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("could not close handle: %+v", err)
	}

	t.Run("empty", func(t *testing.T) {
		fname := filepath.Join(dir, "empty.raw")
		if err := os.WriteFile(fname, nil, 0644); err != nil {
			t.Fatalf("could not create data file: %+v", err)
		}
		h, err := Open(fname)
		if err != nil {
			t.Fatalf("could not mmap empty file: %+v", err)
		}
		defer h.Close()
		if h.Len() != 0 {
			t.Fatalf("invalid len: got=%d, want=0", h.Len())
		}
	})

	t.Run("missing", func(t *testing.T) {
		if _, err := Open(filepath.Join(dir, "missing.raw")); err == nil {
			t.Fatalf("expected an error for a missing file")
		}
	})
}
