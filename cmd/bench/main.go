// bench - SGB1 codec benchmark runner
//
// For each save file given, compares:
//   - Size of the decoded Lua state against the game's LZ4 blob, our
//     own LZ4 re-encoding, zstd and the YAML export
//   - Time to decode and re-encode the state
//
// Output: CSV and markdown summary
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/Neumenon/sgb/luabins"
	"github.com/Neumenon/sgb/lz4block"
	"github.com/Neumenon/sgb/savefile"
)

type CaseResult struct {
	Name       string
	Version    savefile.Version
	FileBytes  int
	StateBytes int
	LZ4Bytes   int
	ZstdBytes  int
	YAMLBytes  int
	Values     int
	DecodeTime time.Duration
	EncodeTime time.Duration
}

// LZ4Pct is the LZ4 size as a share of the raw state.
func (r CaseResult) LZ4Pct() float64 { return pct(r.LZ4Bytes, r.StateBytes) }

// ZstdPct is the zstd size as a share of the raw state.
func (r CaseResult) ZstdPct() float64 { return pct(r.ZstdBytes, r.StateBytes) }

func pct(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

func main() {
	csvPath := flag.String("csv", "bench_results.csv", "CSV output `file`")
	mdPath := flag.String("md", "BENCH.md", "markdown output `file`")
	rounds := flag.Int("rounds", 5, "decode/encode repetitions per file")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: bench [-csv FILE] [-md FILE] [-rounds N] SAVE...")
		os.Exit(1)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		fmt.Fprintf(os.Stderr, "zstd: %v\n", err)
		os.Exit(1)
	}
	defer enc.Close()

	fmt.Fprintf(os.Stderr, "SGB1 Benchmark Runner\n")
	fmt.Fprintf(os.Stderr, "=====================\n")
	fmt.Fprintf(os.Stderr, "Files: %d, rounds: %d\n\n", flag.NArg(), *rounds)

	var results []CaseResult
	for _, path := range flag.Args() {
		r, err := runCase(path, enc, max(1, *rounds))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Skip %s: %v\n", path, err)
			continue
		}
		results = append(results, r)
	}

	if f, err := os.Create(*csvPath); err == nil {
		writeCSV(f, results)
		f.Close()
		fmt.Fprintf(os.Stderr, "CSV written to: %s\n", *csvPath)
	}
	if f, err := os.Create(*mdPath); err == nil {
		writeMarkdown(f, results, time.Now())
		f.Close()
		fmt.Fprintf(os.Stderr, "Markdown written to: %s\n", *mdPath)
	}

	var state, lz, zs int
	for _, r := range results {
		state += r.StateBytes
		lz += r.LZ4Bytes
		zs += r.ZstdBytes
	}
	fmt.Printf("\n=== SUMMARY ===\n")
	fmt.Printf("Files:        %d\n", len(results))
	fmt.Printf("State total:  %d bytes\n", state)
	fmt.Printf("LZ4 total:    %d bytes (%.1f%%)\n", lz, pct(lz, state))
	fmt.Printf("zstd total:   %d bytes (%.1f%%)\n", zs, pct(zs, state))
}

func runCase(path string, enc *zstd.Encoder, rounds int) (CaseResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return CaseResult{}, err
	}
	save, err := savefile.Read(data, savefile.WithV16Trim())
	if err != nil {
		return CaseResult{}, err
	}
	state := save.Common().LuaState

	var forest []*luabins.Value
	start := time.Now()
	for i := 0; i < rounds; i++ {
		if forest, err = luabins.Decode(state); err != nil {
			return CaseResult{}, err
		}
	}
	decodeTime := time.Since(start) / time.Duration(rounds)

	start = time.Now()
	for i := 0; i < rounds; i++ {
		if _, err := luabins.Encode(forest); err != nil {
			return CaseResult{}, err
		}
	}
	encodeTime := time.Since(start) / time.Duration(rounds)

	block, err := lz4block.Compress(state)
	if err != nil {
		return CaseResult{}, err
	}
	y, err := luabins.ToYAML(forest)
	if err != nil {
		return CaseResult{}, err
	}

	return CaseResult{
		Name:       filepath.Base(path),
		Version:    save.Version(),
		FileBytes:  len(data),
		StateBytes: len(state),
		LZ4Bytes:   len(block),
		ZstdBytes:  len(enc.EncodeAll(state, nil)),
		YAMLBytes:  len(y),
		Values:     len(forest),
		DecodeTime: decodeTime,
		EncodeTime: encodeTime,
	}, nil
}

func writeCSV(w io.Writer, results []CaseResult) {
	fmt.Fprintln(w, "name,version,file_bytes,state_bytes,lz4_bytes,lz4_pct,zstd_bytes,zstd_pct,yaml_bytes,values,decode_us,encode_us")
	for _, r := range results {
		fmt.Fprintf(w, "%s,%s,%d,%d,%d,%.1f,%d,%.1f,%d,%d,%d,%d\n",
			r.Name, r.Version, r.FileBytes, r.StateBytes, r.LZ4Bytes, r.LZ4Pct(),
			r.ZstdBytes, r.ZstdPct(), r.YAMLBytes, r.Values,
			r.DecodeTime.Microseconds(), r.EncodeTime.Microseconds())
	}
}

func writeMarkdown(w io.Writer, results []CaseResult, now time.Time) {
	fmt.Fprintf(w, "# SGB1 Benchmark Results\n\n")
	fmt.Fprintf(w, "**Date:** %s  \n", now.Format("2006-01-02"))
	fmt.Fprintf(w, "**Files:** %d  \n\n", len(results))

	fmt.Fprintf(w, "## Compression\n\n")
	fmt.Fprintf(w, "| File | Version | State | LZ4 | zstd | YAML |\n")
	fmt.Fprintf(w, "|------|---------|-------|-----|------|------|\n")
	for _, r := range results {
		fmt.Fprintf(w, "| %s | %s | %d | %d (%.1f%%) | %d (%.1f%%) | %d |\n",
			truncateName(r.Name, 25), r.Version, r.StateBytes,
			r.LZ4Bytes, r.LZ4Pct(), r.ZstdBytes, r.ZstdPct(), r.YAMLBytes)
	}

	fmt.Fprintf(w, "\n## Slowest Decodes\n\n")
	sorted := make([]CaseResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].DecodeTime > sorted[j].DecodeTime
	})
	fmt.Fprintf(w, "| File | Values | Decode | Encode |\n")
	fmt.Fprintf(w, "|------|--------|--------|--------|\n")
	for i := 0; i < min(5, len(sorted)); i++ {
		r := sorted[i]
		fmt.Fprintf(w, "| %s | %d | %s | %s |\n", truncateName(r.Name, 25), r.Values, r.DecodeTime, r.EncodeTime)
	}

	fmt.Fprintf(w, "\n## Methodology\n\n")
	fmt.Fprintf(w, "- **State:** decompressed luabins stream, v16 trimmed to its encoded length\n")
	fmt.Fprintf(w, "- **LZ4:** raw block via `lz4block.Compress`\n")
	fmt.Fprintf(w, "- **zstd:** `klauspost/compress/zstd` at SpeedBetterCompression\n")
	fmt.Fprintf(w, "- **Times:** mean over the configured rounds\n")
}

func truncateName(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
