// Copyright 2024 The go-csi Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// csi2csv converts CSI capture files to CSV tables, one output file
// per input file.
//
// Usage: csi2csv -format=FORMAT [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//  $> csi2csv -format=intel -j=4 run1.dat run2.dat
//  csi2csv: processed "run1.dat" (42 records)
//  csi2csv: processed "run2.dat" (128 records)
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/cmplx"

	"go-hep.org/x/hep/csvutil"
	"golang.org/x/sync/errgroup"

	"github.com/go-csi/csikit/atheros"
	"github.com/go-csi/csikit/intel"
	"github.com/go-csi/csikit/nexmon"
)

func main() {
	log.SetPrefix("csi2csv: ")
	log.SetFlags(0)

	var (
		format = flag.String("format", "intel", "capture format (intel, atheros or nexmon)")
		jobs   = flag.Int("j", 1, "number of files to convert in parallel")

		nrx = flag.Int("nrx", 3, "maximum receive antenna count (intel)")
		ntx = flag.Int("ntx", 2, "maximum transmit antenna count (intel)")

		tones  = flag.Int("tones", 56, "tone count, 56 or 114 (atheros)")
		endian = flag.String("endian", "little", "log byte order (atheros)")

		chip = flag.String("chip", "4358", "chip identifier (nexmon)")
		bw   = flag.Int("bw", 80, "channel bandwidth in MHz (nexmon)")
	)

	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		log.Fatalf("missing path to input CSI file")
	}
	if *jobs < 1 {
		log.Fatalf("invalid number of jobs %d", *jobs)
	}

	// decoder instances are independent, so files convert in
	// parallel with one decoder each.
	var grp errgroup.Group
	grp.SetLimit(*jobs)
	for _, fname := range flag.Args() {
		fname := fname
		grp.Go(func() error {
			n, err := process(*format, fname, options{
				nrx: *nrx, ntx: *ntx,
				tones: *tones, endian: *endian,
				chip: *chip, bw: *bw,
			})
			if err != nil {
				return fmt.Errorf("could not convert %q: %w", fname, err)
			}
			log.Printf("processed %q (%d records)", fname, n)
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		log.Fatalf("%+v", err)
	}
}

type options struct {
	nrx, ntx int
	tones    int
	endian   string
	chip     string
	bw       int
}

func process(format, fname string, opt options) (int, error) {
	switch format {
	case "intel":
		return processIntel(fname, opt)
	case "atheros":
		return processAtheros(fname, opt)
	case "nexmon":
		return processNexmon(fname, opt)
	default:
		return 0, fmt.Errorf("unknown format %q", format)
	}
}

func processIntel(fname string, opt options) (int, error) {
	dec, err := intel.NewDecoder(intel.Config{MaxRx: opt.nrx, MaxTx: opt.ntx})
	if err != nil {
		return 0, fmt.Errorf("could not create decoder: %w", err)
	}
	store, err := dec.DecodeFile(fname)
	if err != nil {
		return 0, fmt.Errorf("could not decode: %w", err)
	}

	tbl, err := csvutil.Create(fname + ".csv")
	if err != nil {
		return 0, fmt.Errorf("could not create output table: %w", err)
	}
	defer tbl.Close()
	tbl.Writer.Comma = ';'

	hdr := "# id;timestamp;nrx;ntx;rssi_a;rssi_b;rssi_c;noise;agc;rss_dbm"
	for sub := 0; sub < intel.NumSubcarriers; sub++ {
		hdr += fmt.Sprintf(";amp_%02d", sub)
	}
	if err := tbl.WriteHeader(hdr + "\n"); err != nil {
		return 0, fmt.Errorf("could not write header: %w", err)
	}

	for i := range store.CSI {
		rec := &store.CSI[i]
		row := []interface{}{
			int64(i), int64(rec.Timestamp),
			int64(rec.Nrx), int64(rec.Ntx),
			int64(rec.RSSIA), int64(rec.RSSIB), int64(rec.RSSIC),
			int64(rec.Noise), int64(rec.AGC),
			intel.RSS(rec),
		}
		// per-subcarrier amplitude, RMS across the antenna pairs.
		_, nrx, ntx := rec.Dims()
		for sub := 0; sub < intel.NumSubcarriers; sub++ {
			var pwr float64
			for rx := 0; rx < nrx; rx++ {
				for tx := 0; tx < ntx; tx++ {
					v := rec.At(sub, rx, tx)
					pwr += real(v)*real(v) + imag(v)*imag(v)
				}
			}
			row = append(row, math.Sqrt(pwr/float64(nrx*ntx)))
		}
		if err := tbl.WriteRow(row...); err != nil {
			return 0, fmt.Errorf("could not write row %d: %w", i, err)
		}
	}
	return len(store.CSI), nil
}

func processAtheros(fname string, opt options) (int, error) {
	dec, err := atheros.NewDecoder(atheros.Config{Tones: opt.tones, Endian: opt.endian})
	if err != nil {
		return 0, fmt.Errorf("could not create decoder: %w", err)
	}
	store, err := dec.DecodeFile(fname)
	if err != nil {
		return 0, fmt.Errorf("could not decode: %w", err)
	}

	tbl, err := csvutil.Create(fname + ".csv")
	if err != nil {
		return 0, fmt.Errorf("could not create output table: %w", err)
	}
	defer tbl.Close()
	tbl.Writer.Comma = ';'

	err = tbl.WriteHeader("# id;timestamp;channel;tones;nr;nc;rssi;noise\n")
	if err != nil {
		return 0, fmt.Errorf("could not write header: %w", err)
	}

	for i := range store.Records {
		rec := &store.Records[i]
		err = tbl.WriteRow(
			int64(i), int64(rec.Timestamp),
			int64(rec.Channel), int64(rec.Tones),
			int64(rec.Nr), int64(rec.Nc),
			int64(rec.RSSI), int64(rec.NoiseFloor),
		)
		if err != nil {
			return 0, fmt.Errorf("could not write row %d: %w", i, err)
		}
	}
	return len(store.Records), nil
}

func processNexmon(fname string, opt options) (int, error) {
	dec, err := nexmon.NewDecoder(nexmon.Config{Chip: opt.chip, Bandwidth: opt.bw})
	if err != nil {
		return 0, fmt.Errorf("could not create decoder: %w", err)
	}
	store, err := dec.DecodeFile(fname)
	if err != nil {
		return 0, fmt.Errorf("could not decode: %w", err)
	}

	tbl, err := csvutil.Create(fname + ".csv")
	if err != nil {
		return 0, fmt.Errorf("could not create output table: %w", err)
	}
	defer tbl.Close()
	tbl.Writer.Comma = ';'

	err = tbl.WriteHeader("# id;sec;usec;seq;core;spatial;chanspec;max_amplitude\n")
	if err != nil {
		return 0, fmt.Errorf("could not write header: %w", err)
	}

	for i := range store.Records {
		rec := &store.Records[i]
		var max float64
		for _, v := range rec.CSI {
			if m := cmplx.Abs(v); m > max {
				max = m
			}
		}
		err = tbl.WriteRow(
			int64(i), int64(rec.Sec), int64(rec.Usec),
			int64(rec.Seq), int64(rec.Core), int64(rec.Spatial),
			int64(rec.ChanSpec), max,
		)
		if err != nil {
			return 0, fmt.Errorf("could not write row %d: %w", i, err)
		}
	}
	return len(store.Records), nil
}
