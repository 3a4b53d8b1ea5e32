package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []any {
	return []any{
		map[string]any{"id": json.Number("1"), "name": "alice", "tags": []any{"a"}},
		map[string]any{"id": json.Number("2"), "name": "bob <admin>"},
		"scalar",
	}
}

func TestWriteRead_RoundTrip(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatJSONLines} {
		for _, compression := range []Compression{CompressionNone, CompressionGzip, CompressionZstd} {
			t.Run(string(format)+"_"+string(compression), func(t *testing.T) {
				opts := Options{Format: format, Compression: compression}
				var buf bytes.Buffer
				require.NoError(t, Write(&buf, sampleRecords(), opts))

				got, err := Read(&buf, opts)
				require.NoError(t, err)
				assert.Equal(t, sampleRecords(), got)
			})
		}
	}
}

func TestWrite_JSONLinesOneRecordPerLine(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleRecords(), Options{Format: FormatJSONLines}))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `{"id":1,"name":"alice","tags":["a"]}`, lines[0])
	assert.Equal(t, `{"id":2,"name":"bob <admin>"}`, lines[1])
	assert.Equal(t, `"scalar"`, lines[2])
}

func TestWrite_JSONArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, []any{json.Number("1"), "x"}, Options{Format: FormatJSON}))
	assert.Equal(t, "[1,\"x\"]\n", buf.String())

	buf.Reset()
	require.NoError(t, Write(&buf, nil, Options{Format: FormatJSON}))
	assert.Equal(t, "[]\n", buf.String())
}

func TestWrite_Indent(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, []any{map[string]any{"a": "b"}}, Options{Format: FormatJSON, Indent: true}))
	assert.Contains(t, buf.String(), "\n  {\n")
}

func TestWrite_CompressedIsNotPlain(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleRecords(), Options{Format: FormatJSON, Compression: CompressionGzip}))
	assert.Equal(t, []byte{0x1f, 0x8b}, buf.Bytes()[:2])

	buf.Reset()
	require.NoError(t, Write(&buf, sampleRecords(), Options{Format: FormatJSON, Compression: CompressionZstd}))
	assert.Equal(t, []byte{0x28, 0xb5, 0x2f, 0xfd}, buf.Bytes()[:4])
}

func TestWrite_UnknownCompression(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, sampleRecords(), Options{Compression: "lz4"})
	assert.Error(t, err)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.jsonl.gz")
	opts := FromPath(path)
	require.NoError(t, WriteFile(path, sampleRecords(), opts))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	got, err := Read(f, opts)
	require.NoError(t, err)
	assert.Equal(t, sampleRecords(), got)
}

func TestFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Options
	}{
		{"out.json", Options{Format: FormatJSON, Compression: CompressionNone}},
		{"out.jsonl", Options{Format: FormatJSONLines, Compression: CompressionNone}},
		{"/tmp/OUT.NDJSON", Options{Format: FormatJSONLines, Compression: CompressionNone}},
		{"out.json.gz", Options{Format: FormatJSON, Compression: CompressionGzip}},
		{"out.jsonl.zst", Options{Format: FormatJSONLines, Compression: CompressionZstd}},
		{"out", Options{Format: FormatJSON, Compression: CompressionNone}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, FromPath(tt.path))
		})
	}
}

func TestParseFormatAndCompression(t *testing.T) {
	f, err := ParseFormat("NDJSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSONLines, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("csv")
	assert.Error(t, err)

	c, err := ParseCompression("gz")
	require.NoError(t, err)
	assert.Equal(t, CompressionGzip, c)
	assert.Equal(t, ".gz", c.Extension())

	c, err = ParseCompression("")
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, c)
	assert.Equal(t, "", c.Extension())

	_, err = ParseCompression("brotli")
	assert.Error(t, err)
}
