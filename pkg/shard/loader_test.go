package shard

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alex-miyake/TDP-43/pkg/errors"
	"github.com/alex-miyake/TDP-43/pkg/table"
)

// measurementSchema mirrors the shape of the junction shards
var measurementSchema = arrow.NewSchema([]arrow.Field{
	{Name: "junction_coords", Type: arrow.BinaryTypes.String},
	{Name: "sample_name", Type: arrow.BinaryTypes.String},
	{Name: "cluster", Type: arrow.BinaryTypes.String},
}, nil)

func writeShard(t *testing.T, path string, schema *arrow.Schema, build func(*array.RecordBuilder)) {
	t.Helper()

	builder := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer builder.Release()
	build(builder)

	rec := builder.NewRecord()
	defer rec.Release()

	f, err := os.Create(path)
	require.NoError(t, err)

	writer, err := pqarrow.NewFileWriter(schema, f,
		parquet.NewWriterProperties(), pqarrow.NewArrowWriterProperties())
	require.NoError(t, err)
	require.NoError(t, writer.Write(rec))
	// writer.Close also closes the underlying file
	require.NoError(t, writer.Close())
}

func writeMeasurementShard(t *testing.T, path string, coords, samples, clusters []string) {
	t.Helper()
	writeShard(t, path, measurementSchema, func(b *array.RecordBuilder) {
		b.Field(0).(*array.StringBuilder).AppendValues(coords, nil)
		b.Field(1).(*array.StringBuilder).AppendValues(samples, nil)
		b.Field(2).(*array.StringBuilder).AppendValues(clusters, nil)
	})
}

func TestLoadAllSingleShard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "part-0.parquet")
	writeMeasurementShard(t, path,
		[]string{"coordsA", "coordsB"},
		[]string{"s1", "s2"},
		[]string{"clu1", "clu2"})

	loader := NewLoader(0, zap.NewNop())
	tbl, err := loader.LoadAll(context.Background(), []string{path})
	require.NoError(t, err)

	assert.Equal(t, []string{"junction_coords", "sample_name", "cluster"}, tbl.ColumnNames())
	require.Equal(t, 2, tbl.NumRows())
	assert.Equal(t, "coordsA", tbl.Column("junction_coords").StringAt(0))
	assert.Equal(t, "s2", tbl.Column("sample_name").StringAt(1))
}

func TestLoadAllConcatenatesShards(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "part-0.parquet")
	second := filepath.Join(dir, "part-1.parquet")
	writeMeasurementShard(t, first, []string{"coordsA"}, []string{"s1"}, []string{"clu1"})
	writeMeasurementShard(t, second, []string{"coordsB"}, []string{"s2"}, []string{"clu2"})

	loader := NewLoader(0, zap.NewNop())
	tbl, err := loader.LoadAll(context.Background(), []string{first, second})
	require.NoError(t, err)

	// Every shard contributes rows, in shard order
	require.Equal(t, 2, tbl.NumRows())
	assert.Equal(t, "coordsA", tbl.Column("junction_coords").StringAt(0))
	assert.Equal(t, "coordsB", tbl.Column("junction_coords").StringAt(1))
}

func TestLoadAllSchemaMismatch(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "part-0.parquet")
	second := filepath.Join(dir, "part-1.parquet")
	writeMeasurementShard(t, first, []string{"coordsA"}, []string{"s1"}, []string{"clu1"})

	otherSchema := arrow.NewSchema([]arrow.Field{
		{Name: "junction_coords", Type: arrow.BinaryTypes.String},
	}, nil)
	writeShard(t, second, otherSchema, func(b *array.RecordBuilder) {
		b.Field(0).(*array.StringBuilder).AppendValues([]string{"coordsB"}, nil)
	})

	loader := NewLoader(0, zap.NewNop())
	_, err := loader.LoadAll(context.Background(), []string{first, second})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeShardRead))
}

func TestLoadAllNoShards(t *testing.T) {
	loader := NewLoader(0, zap.NewNop())
	_, err := loader.LoadAll(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeShardRead))
}

func TestLoadShardTypedColumns(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "name", Type: arrow.BinaryTypes.String},
		{Name: "count", Type: arrow.PrimitiveTypes.Int64},
		{Name: "score", Type: arrow.PrimitiveTypes.Float64},
		{Name: "flag", Type: arrow.FixedWidthTypes.Boolean},
	}, nil)

	path := filepath.Join(t.TempDir(), "typed.parquet")
	writeShard(t, path, schema, func(b *array.RecordBuilder) {
		b.Field(0).(*array.StringBuilder).AppendValues([]string{"a", "b"}, nil)
		b.Field(1).(*array.Int64Builder).AppendValues([]int64{7, 11}, nil)
		b.Field(2).(*array.Float64Builder).AppendValues([]float64{0.5, 1.25}, nil)
		b.Field(3).(*array.BooleanBuilder).AppendValues([]bool{true, false}, nil)
	})

	loader := NewLoader(0, zap.NewNop())
	tbl, err := loader.LoadAll(context.Background(), []string{path})
	require.NoError(t, err)

	assert.Equal(t, table.ColumnTypeInt, tbl.Column("count").Type())
	assert.Equal(t, int64(11), tbl.Column("count").IntAt(1))
	assert.Equal(t, table.ColumnTypeFloat, tbl.Column("score").Type())
	assert.Equal(t, 1.25, tbl.Column("score").FloatAt(1))
	assert.Equal(t, table.ColumnTypeBool, tbl.Column("flag").Type())
	assert.True(t, tbl.Column("flag").BoolAt(0))
}

func TestLoadShardNulls(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)

	path := filepath.Join(t.TempDir(), "nulls.parquet")
	writeShard(t, path, schema, func(b *array.RecordBuilder) {
		sb := b.Field(0).(*array.StringBuilder)
		sb.Append("a")
		sb.AppendNull()
	})

	loader := NewLoader(0, zap.NewNop())
	tbl, err := loader.LoadAll(context.Background(), []string{path})
	require.NoError(t, err)

	col := tbl.Column("name")
	assert.False(t, col.IsNull(0))
	assert.True(t, col.IsNull(1))
	assert.Equal(t, "", col.Render(1))
}

func TestFooterLimitEnforced(t *testing.T) {
	path := filepath.Join(t.TempDir(), "part-0.parquet")
	writeMeasurementShard(t, path, []string{"coordsA"}, []string{"s1"}, []string{"clu1"})

	// Any real footer dwarfs a 4 byte ceiling
	loader := NewLoader(4, zap.NewNop())
	_, err := loader.LoadAll(context.Background(), []string{path})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeShardRead))
	assert.Contains(t, err.Error(), "footer")

	// The default ceiling loads the same shard fine
	loader = NewLoader(0, zap.NewNop())
	_, err = loader.LoadAll(context.Background(), []string{path})
	require.NoError(t, err)
}

func TestLoadShardMalformed(t *testing.T) {
	dir := t.TempDir()

	t.Run("not parquet", func(t *testing.T) {
		path := filepath.Join(dir, "junk.parquet")
		require.NoError(t, os.WriteFile(path, []byte("definitely not parquet data"), 0o644))

		loader := NewLoader(0, zap.NewNop())
		_, err := loader.LoadAll(context.Background(), []string{path})
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeShardRead))
	})

	t.Run("too small", func(t *testing.T) {
		path := filepath.Join(dir, "tiny.parquet")
		require.NoError(t, os.WriteFile(path, []byte("PAR1"), 0o644))

		loader := NewLoader(0, zap.NewNop())
		_, err := loader.LoadAll(context.Background(), []string{path})
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeShardRead))
	})
}
