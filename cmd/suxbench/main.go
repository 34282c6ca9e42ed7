// Command suxbench builds a minimal perfect hash function (and, when
// requested, a companion Elias-Fano offset index) over a line-delimited
// key file and reports construction time and space usage.
//
// It exists to exercise mph.Build end to end against real key sets
// rather than the synthetic ones in the package tests, and to give a
// concrete, humanize.Bytes-formatted answer to "how many bits per key
// does this construction cost".
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"github.com/aogurtsov/gosux/eliasfano"
	"github.com/aogurtsov/gosux/mph"
)

func main() {
	var (
		keysPath   = flag.String("keys", "", "path to a newline-delimited key file (required)")
		bucketSize = flag.Int("bucket", 256, "target keys per bucket")
		expansion  = flag.Float64("expansion", 1.23, "per-bucket hypergraph vertex expansion factor")
		tempDir    = flag.String("tmp", "", "bucket-store spill directory (defaults to the OS temp dir)")
		withOffsets = flag.Bool("offsets", false, "also build an Elias-Fano index over each key's byte offset in the file")
		quiet      = flag.Bool("quiet", false, "suppress the progress bar")
	)
	flag.Parse()

	if *keysPath == "" {
		fmt.Fprintln(os.Stderr, "suxbench: -keys is required")
		flag.Usage()
		os.Exit(2)
	}
	if *tempDir == "" {
		*tempDir = os.TempDir()
	}

	keys, offsets, err := readKeys(*keysPath, *quiet)
	if err != nil {
		fmt.Fprintf(os.Stderr, "suxbench: %v\n", err)
		os.Exit(1)
	}
	if len(keys) == 0 {
		fmt.Fprintln(os.Stderr, "suxbench: key file is empty")
		os.Exit(1)
	}

	cfg := mph.DefaultConfig(*tempDir)
	cfg.BucketKeysTarget = *bucketSize
	cfg.Expansion = *expansion

	start := time.Now()
	m, err := mph.Build(keys, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "suxbench: mph.Build failed: %v\n", err)
		os.Exit(1)
	}
	elapsed := time.Since(start)

	seen := make(map[uint64]bool, len(keys))
	for _, k := range keys {
		v := m.GetLong(k)
		if v >= m.NumKeys() || seen[v] {
			fmt.Fprintf(os.Stderr, "suxbench: built function is not a bijection (key %q -> %d)\n", k, v)
			os.Exit(1)
		}
		seen[v] = true
	}

	n := float64(len(keys))
	fmt.Printf("keys:            %s\n", humanize.Comma(int64(len(keys))))
	fmt.Printf("build time:      %s (%s/key)\n", elapsed, time.Duration(float64(elapsed)/n))
	fmt.Printf("mphf size:       %s (%.3f bits/key)\n", humanize.Bytes(m.Report().Bytes()), float64(m.NumBits())/n)
	fmt.Println(indent(m.Report().String()))

	if *withOffsets {
		ef := eliasfano.Build(offsets, offsets[len(offsets)-1]+1)
		naiveBytes := uint64(len(offsets)) * 8
		fmt.Printf("offset index:    %s (vs. %s as a plain []uint64)\n",
			humanize.Bytes(ef.Report().Bytes()), humanize.Bytes(naiveBytes))
	}
}

// readKeys reads keysPath line by line, returning each line's bytes
// (without the trailing newline) and its starting byte offset in the
// file. A progress bar ticks once per line unless quiet is set.
func readKeys(path string, quiet bool) (keys [][]byte, offsets []uint64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}

	var bar *progressbar.ProgressBar
	if quiet {
		bar = progressbar.DefaultBytesSilent(info.Size())
	} else {
		bar = progressbar.DefaultBytes(info.Size(), "reading keys")
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var offset uint64
	for scanner.Scan() {
		line := scanner.Bytes()
		key := make([]byte, len(line))
		copy(key, line)
		keys = append(keys, key)
		offsets = append(offsets, offset)
		consumed := uint64(len(line)) + 1 // the newline scanner.Bytes strips
		offset += consumed
		_ = bar.Add(len(line) + 1)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return keys, offsets, nil
}

func indent(s string) string {
	out := "  "
	for _, c := range s {
		out += string(c)
		if c == '\n' {
			out += "  "
		}
	}
	return out
}
