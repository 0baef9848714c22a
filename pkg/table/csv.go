package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// ReadCSV reads a delimited text file into a table. The first row is the
// header; every column is loaded as a string column. Ragged rows are an
// error.
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path is controlled by caller
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return readCSV(f)
}

func readCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	values := make([][]string, len(header))
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		for i := range header {
			values[i] = append(values[i], row[i])
		}
	}

	cols := make([]*Column, len(header))
	for i, name := range header {
		if values[i] == nil {
			values[i] = []string{}
		}
		cols[i] = NewStringColumn(name, values[i])
	}
	return New(cols...)
}

// WriteCSV writes the table as a delimited text file with a header row.
// Values are rendered as text; nulls become empty fields. A .gz or .zst
// path suffix selects gzip or zstandard output compression.
func WriteCSV(t *Table, path string) error {
	f, err := os.Create(path) //nolint:gosec // G304: path is controlled by caller
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	var w io.Writer = f
	var closeCompressor func() error
	switch filepath.Ext(path) {
	case ".gz":
		gw := gzip.NewWriter(f)
		w = gw
		closeCompressor = gw.Close
	case ".zst":
		zw, err := zstd.NewWriter(f)
		if err != nil {
			return fmt.Errorf("failed to create zstd writer: %w", err)
		}
		w = zw
		closeCompressor = zw.Close
	}

	if err := writeCSV(t, w); err != nil {
		return err
	}
	if closeCompressor != nil {
		if err := closeCompressor(); err != nil {
			return fmt.Errorf("failed to flush compressed output: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

func writeCSV(t *Table, w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.ColumnNames()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := make([]string, t.NumCols())
	for i := 0; i < t.NumRows(); i++ {
		for j, col := range t.Columns() {
			row[j] = col.Render(i)
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
