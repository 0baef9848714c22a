package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInnerJoin(t *testing.T) {
	left := mustTable(t,
		NewStringColumn("junction_coords", []string{"coordsA", "coordsB", "coordsA"}),
		NewStringColumn("sample_name", []string{"s1", "s2", "s3"}),
	)
	right := mustTable(t,
		NewStringColumn("junction_coords", []string{"coordsA", "coordsC"}),
		NewStringColumn("junc_cat", []string{"novel_donor", "novel_acceptor"}),
	)

	joined, err := InnerJoin(left, right, "junction_coords")
	require.NoError(t, err)

	// Only coordsA matches, twice on the left
	require.Equal(t, 2, joined.NumRows())
	assert.Equal(t, []string{"junction_coords", "sample_name", "junc_cat"}, joined.ColumnNames())
	assert.Equal(t, "s1", joined.Column("sample_name").StringAt(0))
	assert.Equal(t, "s3", joined.Column("sample_name").StringAt(1))
	assert.Equal(t, "novel_donor", joined.Column("junc_cat").StringAt(0))
}

func TestInnerJoinDropsUnmatchedBothSides(t *testing.T) {
	left := mustTable(t,
		NewStringColumn("k", []string{"a", "b"}),
		NewStringColumn("lv", []string{"l1", "l2"}),
	)
	right := mustTable(t,
		NewStringColumn("k", []string{"b", "c"}),
		NewStringColumn("rv", []string{"r1", "r2"}),
	)

	joined, err := InnerJoin(left, right, "k")
	require.NoError(t, err)

	// a has no right match, c has no left match
	require.Equal(t, 1, joined.NumRows())
	assert.Equal(t, "b", joined.Column("k").StringAt(0))
	assert.Equal(t, "l2", joined.Column("lv").StringAt(0))
	assert.Equal(t, "r1", joined.Column("rv").StringAt(0))
}

func TestInnerJoinRightDuplicatesMultiplyRows(t *testing.T) {
	left := mustTable(t,
		NewStringColumn("k", []string{"a"}),
	)
	right := mustTable(t,
		NewStringColumn("k", []string{"a", "a"}),
		NewStringColumn("rv", []string{"r1", "r2"}),
	)

	joined, err := InnerJoin(left, right, "k")
	require.NoError(t, err)
	require.Equal(t, 2, joined.NumRows())
	assert.Equal(t, "r1", joined.Column("rv").StringAt(0))
	assert.Equal(t, "r2", joined.Column("rv").StringAt(1))
}

func TestInnerJoinNullKeysNeverMatch(t *testing.T) {
	left := mustTable(t,
		NewStringColumn("k", []string{"a", "a"}).WithValidity([]bool{true, false}),
	)
	right := mustTable(t,
		NewStringColumn("k", []string{"a"}).WithValidity([]bool{false}),
		NewStringColumn("rv", []string{"r1"}),
	)

	joined, err := InnerJoin(left, right, "k")
	require.NoError(t, err)
	assert.Equal(t, 0, joined.NumRows())
}

func TestInnerJoinMissingKey(t *testing.T) {
	withKey := mustTable(t, NewStringColumn("k", []string{"a"}))
	withoutKey := mustTable(t, NewStringColumn("other", []string{"a"}))

	_, err := InnerJoin(withoutKey, withKey, "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "left table")

	_, err = InnerJoin(withKey, withoutKey, "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "right table")
}

func TestInnerJoinIncompatibleKeyTypes(t *testing.T) {
	left := mustTable(t, NewStringColumn("k", []string{"1"}))
	right := mustTable(t, NewIntColumn("k", []int64{1}))

	_, err := InnerJoin(left, right, "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incompatible types")
}

func TestInnerJoinDuplicateColumn(t *testing.T) {
	left := mustTable(t,
		NewStringColumn("k", []string{"a"}),
		NewStringColumn("v", []string{"l"}),
	)
	right := mustTable(t,
		NewStringColumn("k", []string{"a"}),
		NewStringColumn("v", []string{"r"}),
	)

	_, err := InnerJoin(left, right, "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both sides")
}
