// bench - avro size benchmark runner
//
// Compares, per case file of JSON texts:
//   - JSON text re-rendered from the decoded units
//   - Concatenated binary units
//   - An AVS1 container holding the same units
//
// Output: CSV and markdown summary
package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/pflag"

	"github.com/Neumenon/avro/avro"
	"github.com/Neumenon/avro/stream"
)

type CaseResult struct {
	Name           string
	Units          int
	JSONBytes      int
	BinaryBytes    int
	ContainerBytes int
	BinaryPct      float64 // Bytes saved by binary relative to JSON
	EncodeTime     time.Duration
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	var schemaPath, csvPath, mdPath string
	var blockSize int
	fs := pflag.NewFlagSet("bench", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&schemaPath, "schema", "", "schema file (required)")
	fs.StringVar(&csvPath, "csv", "", "write CSV results to this file")
	fs.StringVar(&mdPath, "markdown", "", "write a markdown report to this file")
	fs.IntVar(&blockSize, "block-size", stream.DefaultBlockSize, "container block size in bytes")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if schemaPath == "" {
		return errors.New("--schema is required")
	}
	if fs.NArg() == 0 {
		return errors.New("no case files given")
	}

	s, err := avro.ParseSchemaFile(schemaPath)
	if err != nil {
		return err
	}

	fmt.Fprintf(stderr, "Avro Benchmark Runner\n")
	fmt.Fprintf(stderr, "=====================\n")
	fmt.Fprintf(stderr, "Schema: %s (%s), %d cases\n\n", s.FullName(), s.FingerprintHex(), fs.NArg())

	var results []CaseResult
	for _, path := range fs.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(stderr, "Skip %s: %v\n", path, err)
			continue
		}
		r, err := measure(filepath.Base(path), data, s, blockSize)
		if err != nil {
			fmt.Fprintf(stderr, "Skip %s: %v\n", path, err)
			continue
		}
		results = append(results, r)
	}
	if len(results) == 0 {
		return errors.New("no case could be measured")
	}

	if csvPath != "" {
		if err := writeFile(csvPath, func(w io.Writer) { writeCSV(w, results) }); err != nil {
			return err
		}
		fmt.Fprintf(stderr, "CSV written to: %s\n", csvPath)
	}
	if mdPath != "" {
		if err := writeFile(mdPath, func(w io.Writer) { writeMarkdown(w, results, s) }); err != nil {
			return err
		}
		fmt.Fprintf(stderr, "Markdown written to: %s\n", mdPath)
	}

	t := totals(results)
	fmt.Fprintf(stdout, "\n=== SUMMARY ===\n")
	fmt.Fprintf(stdout, "Cases:           %d (%d units)\n", len(results), t.Units)
	fmt.Fprintf(stdout, "JSON total:      %d bytes\n", t.JSONBytes)
	fmt.Fprintf(stdout, "Binary total:    %d bytes\n", t.BinaryBytes)
	fmt.Fprintf(stdout, "Container total: %d bytes\n", t.ContainerBytes)
	fmt.Fprintf(stdout, "Bytes saved:     %d (%.1f%%)\n", t.JSONBytes-t.BinaryBytes, t.BinaryPct)
	return nil
}

// measure decodes every JSON text in data and renders the units three ways.
func measure(name string, data []byte, s *avro.Schema, blockSize int) (CaseResult, error) {
	var units []*avro.Value
	dec := avro.NewTextDecoder(bytes.NewReader(data), s)
	for {
		v, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return CaseResult{}, err
		}
		units = append(units, v)
	}

	var text, bin []byte
	var err error
	start := time.Now()
	for _, v := range units {
		if bin, err = avro.AppendEncode(bin, v, s); err != nil {
			return CaseResult{}, err
		}
	}
	elapsed := time.Since(start)
	for _, v := range units {
		if text, err = avro.AppendText(text, v, s); err != nil {
			return CaseResult{}, err
		}
	}

	var container bytes.Buffer
	w := stream.NewWriter(&container, s, stream.WithBlockSize(blockSize))
	for _, v := range units {
		if err := w.Append(v); err != nil {
			return CaseResult{}, err
		}
	}
	if err := w.Close(); err != nil {
		return CaseResult{}, err
	}

	return CaseResult{
		Name:           name,
		Units:          len(units),
		JSONBytes:      len(text),
		BinaryBytes:    len(bin),
		ContainerBytes: container.Len(),
		BinaryPct:      savedPct(len(text), len(bin)),
		EncodeTime:     elapsed,
	}, nil
}

func savedPct(jsonBytes, binBytes int) float64 {
	if jsonBytes == 0 {
		return 0
	}
	return float64(jsonBytes-binBytes) / float64(jsonBytes) * 100.0
}

func totals(results []CaseResult) CaseResult {
	var t CaseResult
	for _, r := range results {
		t.Units += r.Units
		t.JSONBytes += r.JSONBytes
		t.BinaryBytes += r.BinaryBytes
		t.ContainerBytes += r.ContainerBytes
		t.EncodeTime += r.EncodeTime
	}
	t.BinaryPct = savedPct(t.JSONBytes, t.BinaryBytes)
	return t
}

func writeFile(path string, fn func(io.Writer)) error {
	var buf bytes.Buffer
	fn(&buf)
	return os.WriteFile(path, buf.Bytes(), 0644)
}

func writeCSV(w io.Writer, results []CaseResult) {
	fmt.Fprintln(w, "name,units,json_bytes,binary_bytes,container_bytes,binary_pct,encode_ns")
	for _, r := range results {
		fmt.Fprintf(w, "%s,%d,%d,%d,%d,%.1f,%d\n",
			r.Name, r.Units, r.JSONBytes, r.BinaryBytes, r.ContainerBytes, r.BinaryPct, r.EncodeTime.Nanoseconds())
	}
}

func writeMarkdown(w io.Writer, results []CaseResult, s *avro.Schema) {
	t := totals(results)
	fmt.Fprintf(w, "# Avro Benchmark Results\n\n")
	fmt.Fprintf(w, "**Schema:** %s (fingerprint %s)  \n", s.FullName(), s.FingerprintHex())
	fmt.Fprintf(w, "**Cases:** %d (%d units)  \n\n", len(results), t.Units)

	fmt.Fprintf(w, "## Summary\n\n")
	fmt.Fprintf(w, "| Metric | JSON | Binary | Container |\n")
	fmt.Fprintf(w, "|--------|------|--------|-----------|\n")
	fmt.Fprintf(w, "| **Bytes** | %d | %d | %d |\n", t.JSONBytes, t.BinaryBytes, t.ContainerBytes)
	fmt.Fprintf(w, "| **Saved vs JSON** | | %.1f%% | %.1f%% |\n\n", t.BinaryPct, savedPct(t.JSONBytes, t.ContainerBytes))

	sorted := make([]CaseResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].BinaryPct > sorted[j].BinaryPct
	})

	fmt.Fprintf(w, "## Detailed Results\n\n")
	fmt.Fprintf(w, "| Case | Units | JSON | Binary | Container | Saved |\n")
	fmt.Fprintf(w, "|------|-------|------|--------|-----------|-------|\n")
	for _, r := range sorted {
		fmt.Fprintf(w, "| %s | %d | %d | %d | %d | %.1f%% |\n",
			truncateName(r.Name, 25), r.Units, r.JSONBytes, r.BinaryBytes, r.ContainerBytes, r.BinaryPct)
	}

	fmt.Fprintf(w, "\n## Methodology\n\n")
	fmt.Fprintf(w, "- **JSON:** compact text rendered by `avro.AppendText`, no separators\n")
	fmt.Fprintf(w, "- **Binary:** units concatenated by `avro.AppendEncode`\n")
	fmt.Fprintf(w, "- **Container:** AVS1 with header, checksums and sync markers\n")
}

func truncateName(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
