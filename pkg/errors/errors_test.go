package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndError(t *testing.T) {
	err := New(ErrorTypeShardRead, "bad shard")
	assert.Equal(t, "shard_read: bad shard", err.Error())
	assert.NotEmpty(t, err.Stack)
}

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Wrap(cause, ErrorTypeOutputWrite, "failed to write summary")

	assert.Equal(t, "output_write: failed to write summary: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, Wrap(nil, ErrorTypeOutputWrite, "ignored"))
}

func TestWrapPreservesInnerType(t *testing.T) {
	inner := New(ErrorTypeNoShards, "empty archive")
	outer := Wrap(inner, ErrorTypeArchiveCorrupt, "extraction failed")

	// The outer type wins for classification, the cause stays reachable
	assert.True(t, IsType(outer, ErrorTypeArchiveCorrupt))
	assert.ErrorIs(t, outer, inner)
}

func TestIsType(t *testing.T) {
	err := New(ErrorTypeJoinKey, "missing key")
	assert.True(t, IsType(err, ErrorTypeJoinKey))
	assert.False(t, IsType(err, ErrorTypeAggregation))
	assert.False(t, IsType(fmt.Errorf("plain"), ErrorTypeJoinKey))
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, ErrorTypePredicateColumn, TypeOf(New(ErrorTypePredicateColumn, "x")))
	assert.Equal(t, ErrorTypeInternal, TypeOf(fmt.Errorf("plain")))
}

func TestWithDetail(t *testing.T) {
	err := New(ErrorTypeShardRead, "too large").
		WithDetail("shard", "part-0.parquet").
		WithDetail("footer_bytes", int64(2048))

	require.NotNil(t, err.Details)
	assert.Equal(t, "part-0.parquet", err.Details["shard"])
	assert.Equal(t, int64(2048), err.Details["footer_bytes"])
}
