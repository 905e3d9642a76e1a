// Copyright 2024 The go-csi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// csi-dump decodes and displays CSI capture files.
//
// Usage: csi-dump -format=FORMAT [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//  $> csi-dump -format=intel ./testdata/csi.dat
//  === CSI record 0 ===
//  timestamp:      4,
//  antennas:     3x2
//  rss:        -63.2 dBm
//  [...]
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-csi/csikit/atheros"
	"github.com/go-csi/csikit/intel"
	"github.com/go-csi/csikit/nexmon"
)

func main() {
	log.SetPrefix("csi-dump: ")
	log.SetFlags(0)

	var (
		format  = flag.String("format", "intel", "capture format (intel, atheros or nexmon)")
		verbose = flag.Bool("v", false, "enable verbose decode summaries")

		nrx = flag.Int("nrx", 3, "maximum receive antenna count (intel)")
		ntx = flag.Int("ntx", 2, "maximum transmit antenna count (intel)")

		tones  = flag.Int("tones", 56, "tone count, 56 or 114 (atheros)")
		endian = flag.String("endian", "little", "log byte order (atheros)")

		chip = flag.String("chip", "4358", "chip identifier (nexmon)")
		bw   = flag.Int("bw", 80, "channel bandwidth in MHz (nexmon)")
	)

	flag.Usage = func() {
		fmt.Printf(`csi-dump decodes and displays CSI capture files.

Usage: csi-dump -format=FORMAT [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> csi-dump -format=intel ./testdata/csi.dat
 === CSI record 0 ===
 timestamp:  1133422
 antennas:       3x2
 rss:          -63.2 dBm
 [...]

`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		log.Fatalf("missing path to input CSI file")
	}

	for _, fname := range flag.Args() {
		var err error
		switch *format {
		case "intel":
			err = processIntel(os.Stdout, fname, *nrx, *ntx, *verbose)
		case "atheros":
			err = processAtheros(os.Stdout, fname, *tones, *endian, *verbose)
		case "nexmon":
			err = processNexmon(os.Stdout, fname, *chip, *bw, *verbose)
		default:
			log.Fatalf("unknown format %q", *format)
		}
		if err != nil {
			log.Fatalf("could not dump file %q: %+v", fname, err)
		}
	}
}

func processIntel(w io.Writer, fname string, nrx, ntx int, verbose bool) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	dec, err := intel.NewDecoder(intel.Config{MaxRx: nrx, MaxTx: ntx, Verbose: verbose})
	if err != nil {
		return fmt.Errorf("could not create decoder: %w", err)
	}
	store, err := dec.DecodeFile(fname)
	if err != nil {
		return fmt.Errorf("could not decode: %w", err)
	}

	for i, rec := range store.CSI {
		fmt.Fprintf(wbuf, "=== CSI record %d ===\n", i)
		fmt.Fprintf(wbuf, "timestamp: % 10d\n", rec.Timestamp)
		fmt.Fprintf(wbuf, "antennas:  % 7dx%d\n", rec.Nrx, rec.Ntx)
		fmt.Fprintf(wbuf, "rssi:      %d/%d/%d agc=%d noise=%d\n",
			rec.RSSIA, rec.RSSIB, rec.RSSIC, rec.AGC, rec.Noise,
		)
		fmt.Fprintf(wbuf, "rss:       % 10.1f dBm\n", intel.RSS(&store.CSI[i]))
	}
	for i, rec := range store.MAC {
		fmt.Fprintf(wbuf, "=== MAC record %d ===\n", i)
		fmt.Fprintf(wbuf, "fc=0x%04x dur=%d seq=%d %x > %x\n",
			rec.FrameControl, rec.Duration, rec.Seq, rec.Addr2, rec.Addr1,
		)
	}
	return nil
}

func processAtheros(w io.Writer, fname string, tones int, endian string, verbose bool) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	dec, err := atheros.NewDecoder(atheros.Config{Tones: tones, Endian: endian, Verbose: verbose})
	if err != nil {
		return fmt.Errorf("could not create decoder: %w", err)
	}
	store, err := dec.DecodeFile(fname)
	if err != nil {
		return fmt.Errorf("could not decode: %w", err)
	}

	for i, rec := range store.Records {
		fmt.Fprintf(wbuf, "=== record %d ===\n", i)
		fmt.Fprintf(wbuf, "timestamp: % 10d\n", rec.Timestamp)
		fmt.Fprintf(wbuf, "channel:   % 10d MHz\n", rec.Channel)
		fmt.Fprintf(wbuf, "chains:    % 7dx%d tones=%d\n", rec.Nr, rec.Nc, rec.Tones)
		fmt.Fprintf(wbuf, "rssi:      %d (%d/%d/%d) noise=%d\n",
			rec.RSSI, rec.RSSI1, rec.RSSI2, rec.RSSI3, rec.NoiseFloor,
		)
	}
	return nil
}

func processNexmon(w io.Writer, fname string, chip string, bw int, verbose bool) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	dec, err := nexmon.NewDecoder(nexmon.Config{Chip: chip, Bandwidth: bw, Verbose: verbose})
	if err != nil {
		return fmt.Errorf("could not create decoder: %w", err)
	}
	store, err := dec.DecodeFile(fname)
	if err != nil {
		return fmt.Errorf("could not decode: %w", err)
	}

	for i, rec := range store.Records {
		fmt.Fprintf(wbuf, "=== record %d ===\n", i)
		fmt.Fprintf(wbuf, "timestamp: %d.%06d\n", rec.Sec, rec.Usec)
		fmt.Fprintf(wbuf, "source:    %x seq=%d core=%d spatial=%d\n",
			rec.Source, rec.Seq, rec.Core, rec.Spatial,
		)
		fmt.Fprintf(wbuf, "chanspec:  0x%04x chip=0x%04x subcarriers=%d\n",
			rec.ChanSpec, rec.ChipVersion, len(rec.CSI),
		)
	}
	return nil
}
