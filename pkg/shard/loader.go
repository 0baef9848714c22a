// Package shard loads parquet measurement shards into the pipeline's
// columnar table representation.
package shard

import (
	"context"
	"encoding/binary"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"go.uber.org/zap"

	"github.com/alex-miyake/TDP-43/pkg/errors"
	"github.com/alex-miyake/TDP-43/pkg/table"
)

// DefaultFooterLimit is the ceiling on a shard's footer size. Classification
// and metadata blocks embedded in shard footers can exceed typical reader
// defaults, so the limit is deliberately generous.
const DefaultFooterLimit int64 = 1 << 30

// parquet footer trailer: 4-byte little-endian footer length + magic
const (
	trailerSize  = 8
	footerMagic  = "PAR1"
	minShardSize = 12 // leading magic + trailer
)

// Loader reads parquet shards and concatenates them into a single table
type Loader struct {
	footerLimit int64
	alloc       memory.Allocator
	logger      *zap.Logger
}

// NewLoader creates a loader. footerLimit <= 0 selects DefaultFooterLimit.
func NewLoader(footerLimit int64, logger *zap.Logger) *Loader {
	if footerLimit <= 0 {
		footerLimit = DefaultFooterLimit
	}
	return &Loader{
		footerLimit: footerLimit,
		alloc:       memory.DefaultAllocator,
		logger:      logger.With(zap.String("component", "loader")),
	}
}

// LoadAll reads every shard and concatenates them into one table. All shards
// must carry the same schema. Any malformed shard aborts the whole load with
// a shard_read error; there is no partial-success mode.
func (l *Loader) LoadAll(ctx context.Context, paths []string) (*table.Table, error) {
	if len(paths) == 0 {
		return nil, errors.New(errors.ErrorTypeShardRead, "no shards to load")
	}

	var combined *table.Table
	for _, path := range paths {
		t, err := l.loadShard(ctx, path)
		if err != nil {
			return nil, err
		}
		l.logger.Info("loaded shard",
			zap.String("shard", path),
			zap.Int("rows", t.NumRows()),
			zap.Int("columns", t.NumCols()))

		if combined == nil {
			combined = t
			continue
		}
		combined, err = combined.Concat(t)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeShardRead, "shard schema does not match earlier shards").
				WithDetail("shard", path)
		}
	}
	return combined, nil
}

// loadShard reads one parquet shard into a table
func (l *Loader) loadShard(ctx context.Context, path string) (*table.Table, error) {
	if err := l.checkFooter(path); err != nil {
		return nil, err
	}

	f, err := os.Open(path) //nolint:gosec // G304: path comes from our own extraction
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeShardRead, "failed to open shard").
			WithDetail("shard", path)
	}
	defer f.Close()

	reader, err := file.NewParquetReader(f)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeShardRead, "failed to parse shard").
			WithDetail("shard", path)
	}
	defer reader.Close()

	arrowReader, err := pqarrow.NewFileReader(reader, pqarrow.ArrowReadProperties{}, l.alloc)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeShardRead, "failed to create arrow reader").
			WithDetail("shard", path)
	}

	arrowTable, err := arrowReader.ReadTable(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeShardRead, "failed to read shard rows").
			WithDetail("shard", path)
	}
	defer arrowTable.Release()

	t, err := fromArrowTable(arrowTable)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeShardRead, "shard schema is not consumable").
			WithDetail("shard", path)
	}
	return t, nil
}

// checkFooter validates the shard trailer and enforces the footer ceiling
// before any deserialization happens.
func (l *Loader) checkFooter(path string) error {
	f, err := os.Open(path) //nolint:gosec // G304: path comes from our own extraction
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeShardRead, "failed to open shard").
			WithDetail("shard", path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeShardRead, "failed to stat shard").
			WithDetail("shard", path)
	}
	if info.Size() < minShardSize {
		return errors.New(errors.ErrorTypeShardRead, "shard too small to be a parquet file").
			WithDetail("shard", path).
			WithDetail("size", info.Size())
	}

	trailer := make([]byte, trailerSize)
	if _, err := f.ReadAt(trailer, info.Size()-trailerSize); err != nil {
		return errors.Wrap(err, errors.ErrorTypeShardRead, "failed to read shard trailer").
			WithDetail("shard", path)
	}
	if string(trailer[4:]) != footerMagic {
		return errors.New(errors.ErrorTypeShardRead, "shard is missing the parquet magic").
			WithDetail("shard", path)
	}

	footerLen := int64(binary.LittleEndian.Uint32(trailer[:4]))
	if footerLen > l.footerLimit {
		return errors.New(errors.ErrorTypeShardRead, "shard footer exceeds the configured size limit").
			WithDetail("shard", path).
			WithDetail("footer_bytes", footerLen).
			WithDetail("limit_bytes", l.footerLimit)
	}
	if footerLen+minShardSize > info.Size() {
		return errors.New(errors.ErrorTypeShardRead, "shard footer length is inconsistent with file size").
			WithDetail("shard", path).
			WithDetail("footer_bytes", footerLen)
	}
	return nil
}

// fromArrowTable converts an arrow table into the pipeline table type.
// Integer columns widen to int64, floats to float64; unsupported arrow types
// fall back to their rendered string form.
func fromArrowTable(at arrow.Table) (*table.Table, error) {
	if at.NumCols() == 0 {
		return nil, errors.New(errors.ErrorTypeShardRead, "shard has no columns")
	}

	cols := make([]*table.Column, 0, at.NumCols())
	for i := 0; i < int(at.NumCols()); i++ {
		name := at.Schema().Field(i).Name
		col, err := fromArrowColumn(name, at.Column(i).Data().Chunks())
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return table.New(cols...)
}

func fromArrowColumn(name string, chunks []arrow.Array) (*table.Column, error) {
	if len(chunks) == 0 {
		return table.NewStringColumn(name, []string{}), nil
	}

	length := 0
	hasNulls := false
	for _, chunk := range chunks {
		length += chunk.Len()
		hasNulls = hasNulls || chunk.NullN() > 0
	}

	var valid []bool
	if hasNulls {
		valid = make([]bool, 0, length)
	}
	appendValid := func(chunk arrow.Array) {
		if valid == nil {
			return
		}
		for i := 0; i < chunk.Len(); i++ {
			valid = append(valid, !chunk.IsNull(i))
		}
	}

	var col *table.Column
	switch chunks[0].(type) {
	case *array.String, *array.LargeString:
		values := make([]string, 0, length)
		for _, chunk := range chunks {
			for i := 0; i < chunk.Len(); i++ {
				if chunk.IsNull(i) {
					values = append(values, "")
				} else {
					values = append(values, chunk.ValueStr(i))
				}
			}
			appendValid(chunk)
		}
		col = table.NewStringColumn(name, values)

	case *array.Int8, *array.Int16, *array.Int32, *array.Int64,
		*array.Uint8, *array.Uint16, *array.Uint32, *array.Uint64:
		values := make([]int64, 0, length)
		for _, chunk := range chunks {
			for i := 0; i < chunk.Len(); i++ {
				values = append(values, intValue(chunk, i))
			}
			appendValid(chunk)
		}
		col = table.NewIntColumn(name, values)

	case *array.Float32, *array.Float64:
		values := make([]float64, 0, length)
		for _, chunk := range chunks {
			for i := 0; i < chunk.Len(); i++ {
				values = append(values, floatValue(chunk, i))
			}
			appendValid(chunk)
		}
		col = table.NewFloatColumn(name, values)

	case *array.Boolean:
		values := make([]bool, 0, length)
		for _, chunk := range chunks {
			arr := chunk.(*array.Boolean)
			for i := 0; i < arr.Len(); i++ {
				values = append(values, !arr.IsNull(i) && arr.Value(i))
			}
			appendValid(chunk)
		}
		col = table.NewBoolColumn(name, values)

	default:
		// Timestamps, decimals, and anything else keep their rendered form
		values := make([]string, 0, length)
		for _, chunk := range chunks {
			for i := 0; i < chunk.Len(); i++ {
				if chunk.IsNull(i) {
					values = append(values, "")
				} else {
					values = append(values, chunk.ValueStr(i))
				}
			}
			appendValid(chunk)
		}
		col = table.NewStringColumn(name, values)
	}

	if valid != nil {
		col = col.WithValidity(valid)
	}
	return col, nil
}

func intValue(chunk arrow.Array, i int) int64 {
	if chunk.IsNull(i) {
		return 0
	}
	switch arr := chunk.(type) {
	case *array.Int8:
		return int64(arr.Value(i))
	case *array.Int16:
		return int64(arr.Value(i))
	case *array.Int32:
		return int64(arr.Value(i))
	case *array.Int64:
		return arr.Value(i)
	case *array.Uint8:
		return int64(arr.Value(i))
	case *array.Uint16:
		return int64(arr.Value(i))
	case *array.Uint32:
		return int64(arr.Value(i))
	case *array.Uint64:
		return int64(arr.Value(i))
	default:
		return 0
	}
}

func floatValue(chunk arrow.Array, i int) float64 {
	if chunk.IsNull(i) {
		return 0
	}
	switch arr := chunk.(type) {
	case *array.Float32:
		return float64(arr.Value(i))
	case *array.Float64:
		return arr.Value(i)
	default:
		return 0
	}
}
