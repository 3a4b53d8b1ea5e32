// Package output writes downloaded records as JSON or JSON Lines, optionally
// compressed with gzip or zstd.
package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/Sternrassler/jsonpagination/pkg/jsonpath"
)

const maxLineSize = 10 * 1024 * 1024

// Format is the record encoding.
type Format string

const (
	// FormatJSON writes one JSON array.
	FormatJSON Format = "json"

	// FormatJSONLines writes one record per line.
	FormatJSONLines Format = "jsonl"
)

// Compression is the stream compression applied after encoding.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

// ParseFormat validates a format name. "ndjson" and "jsonlines" are aliases
// of jsonl; empty means json.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "jsonl", "ndjson", "jsonlines":
		return FormatJSONLines, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want json or jsonl)", s)
	}
}

// ParseCompression validates a compression name. Empty means none.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CompressionNone, nil
	case "gzip", "gz":
		return CompressionGzip, nil
	case "zstd", "zst":
		return CompressionZstd, nil
	default:
		return "", fmt.Errorf("unknown compression %q (want none, gzip or zstd)", s)
	}
}

// Extension returns the file suffix for c, including the dot.
func (c Compression) Extension() string {
	switch c {
	case CompressionGzip:
		return ".gz"
	case CompressionZstd:
		return ".zst"
	default:
		return ""
	}
}

// Options controls encoding.
type Options struct {
	Format      Format
	Compression Compression

	// Indent pretty-prints FormatJSON output. Ignored for JSON Lines.
	Indent bool
}

// FromPath guesses options from a file name such as "users.jsonl.zst".
func FromPath(path string) Options {
	opts := Options{Format: FormatJSON, Compression: CompressionNone}
	name := strings.ToLower(filepath.Base(path))

	switch ext := filepath.Ext(name); ext {
	case ".gz":
		opts.Compression = CompressionGzip
		name = strings.TrimSuffix(name, ext)
	case ".zst":
		opts.Compression = CompressionZstd
		name = strings.TrimSuffix(name, ext)
	}

	switch filepath.Ext(name) {
	case ".jsonl", ".ndjson":
		opts.Format = FormatJSONLines
	}
	return opts
}

// Write encodes records to w.
func Write(w io.Writer, records []any, opts Options) error {
	cw, err := compressor(w, opts.Compression)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(cw)
	if err := encode(bw, records, opts); err != nil {
		cw.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		cw.Close()
		return fmt.Errorf("flush output: %w", err)
	}
	if err := cw.Close(); err != nil {
		return fmt.Errorf("close %s stream: %w", opts.Compression, err)
	}
	return nil
}

// WriteFile encodes records into path, replacing any existing file.
func WriteFile(path string, records []any, opts Options) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output file: %w", cerr)
		}
	}()

	return Write(f, records, opts)
}

// Read decodes records written by Write with the same options.
func Read(r io.Reader, opts Options) ([]any, error) {
	rc, err := decompressor(r, opts.Compression)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	if opts.Format != FormatJSONLines {
		var records []any
		if err := jsonpath.API.NewDecoder(rc).Decode(&records); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		return records, nil
	}

	records := []any{}
	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		record, err := jsonpath.Parse(line)
		if err != nil {
			return nil, fmt.Errorf("decode line %d: %w", len(records)+1, err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func encode(w io.Writer, records []any, opts Options) error {
	if records == nil {
		records = []any{}
	}

	if opts.Format == FormatJSONLines {
		enc := jsonpath.API.NewEncoder(w)
		for i, record := range records {
			if err := enc.Encode(record); err != nil {
				return fmt.Errorf("encode record %d: %w", i, err)
			}
		}
		return nil
	}

	var (
		data []byte
		err  error
	)
	if opts.Indent {
		data, err = jsonpath.API.MarshalIndent(records, "", "  ")
	} else {
		data, err = jsonpath.API.Marshal(records)
	}
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write records: %w", err)
	}
	return nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func compressor(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case "", CompressionNone:
		return nopWriteCloser{w}, nil
	case CompressionGzip:
		return gzip.NewWriter(w), nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("create zstd writer: %w", err)
		}
		return enc, nil
	default:
		return nil, fmt.Errorf("unknown compression %q", c)
	}
}

func decompressor(r io.Reader, c Compression) (io.ReadCloser, error) {
	switch c {
	case "", CompressionNone:
		return io.NopCloser(r), nil
	case CompressionGzip:
		return gzip.NewReader(r)
	case CompressionZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("create zstd reader: %w", err)
		}
		return dec.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("unknown compression %q", c)
	}
}
