package report

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatCell(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "dog", "dog"},
		{"bytes", []byte("caf\xc3\xa9"), "café"},
		{"invalid bytes", []byte("ok\xff"), "ok"},
		{"int", -100, "-100"},
		{"int64", int64(42), "42"},
		{"whole float", 24.0, "24"},
		{"fraction", 18.5, "18.5"},
		{"bool", true, "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatCell(tt.in))
		})
	}
}

func TestWriteCSV_Quoting(t *testing.T) {
	table := Table{
		Header: []string{"study", "languages"},
		Rows: [][]any{
			{"A", "english,spanish"},
			{[]byte(`say "hi"`), nil},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, table))
	assert.Equal(t, "study,languages\nA,\"english,spanish\"\n\"say \"\"hi\"\"\",\n", buf.String())
}

func TestWriteZip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteZip(&buf, map[string][]byte{
		"B.csv": []byte("b"),
		"A.csv": []byte("a"),
	}))

	archive, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, archive.File, 2)
	assert.Equal(t, "A.csv", archive.File[0].Name)
	assert.Equal(t, "B.csv", archive.File[1].Name)

	f, err := archive.File[1].Open()
	require.NoError(t, err)
	defer f.Close()
	content, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "b", string(content))
}
