package report

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// WriteCSV writes the header and rows of a table as comma separated values.
// Records end in "\n" and cells are quoted only when needed.
func WriteCSV(w io.Writer, table Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(table.Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	record := make([]string, 0, len(table.Header))
	for i, row := range table.Rows {
		record = record[:0]
		for _, cell := range row {
			record = append(record, FormatCell(cell))
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// FormatCell renders a cell value as text. Byte slices are decoded as UTF-8
// with invalid sequences dropped.
func FormatCell(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.ToValidUTF8(v, "")
	case []byte:
		return strings.ToValidUTF8(string(v), "")
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if v {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(v)
	}
}

// WriteZip writes one archive entry per file, in name order, with no
// directory entries.
func WriteZip(w io.Writer, files map[string][]byte) error {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	archive := zip.NewWriter(w)
	for _, name := range names {
		entry, err := archive.Create(name)
		if err != nil {
			return fmt.Errorf("failed to create archive entry %s: %w", name, err)
		}
		if _, err := entry.Write(files[name]); err != nil {
			return fmt.Errorf("failed to write archive entry %s: %w", name, err)
		}
	}
	return archive.Close()
}

func tableCSV(table Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, table); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
