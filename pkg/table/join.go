package table

import "fmt"

// InnerJoin joins left and right on the named key column using inner
// semantics: rows without a match on either side are dropped, not retained
// with nulls. When a key value occurs more than once on the right, the left
// row is repeated for each match.
//
// The output carries every left column followed by every right column except
// the key. Both key columns must exist and have the same type.
func InnerJoin(left, right *Table, key string) (*Table, error) {
	leftKey := left.Column(key)
	if leftKey == nil {
		return nil, fmt.Errorf("join key %q not found in left table", key)
	}
	rightKey := right.Column(key)
	if rightKey == nil {
		return nil, fmt.Errorf("join key %q not found in right table", key)
	}
	if leftKey.Type() != rightKey.Type() {
		return nil, fmt.Errorf("join key %q has incompatible types: left %s, right %s",
			key, leftKey.Type(), rightKey.Type())
	}
	for _, col := range right.Columns() {
		if col.Name() != key && left.HasColumn(col.Name()) {
			return nil, fmt.Errorf("column %q exists on both sides of the join", col.Name())
		}
	}

	// Hash the right side, null keys never match
	index := make(map[string][]int, right.NumRows())
	for i := 0; i < rightKey.Len(); i++ {
		if rightKey.IsNull(i) {
			continue
		}
		k := rightKey.Render(i)
		index[k] = append(index[k], i)
	}

	leftRows := make([]int, 0, left.NumRows())
	rightRows := make([]int, 0, left.NumRows())
	for i := 0; i < leftKey.Len(); i++ {
		if leftKey.IsNull(i) {
			continue
		}
		for _, j := range index[leftKey.Render(i)] {
			leftRows = append(leftRows, i)
			rightRows = append(rightRows, j)
		}
	}

	cols := make([]*Column, 0, left.NumCols()+right.NumCols()-1)
	for _, col := range left.Columns() {
		cols = append(cols, col.take(leftRows))
	}
	for _, col := range right.Columns() {
		if col.Name() == key {
			continue
		}
		cols = append(cols, col.take(rightRows))
	}
	return New(cols...)
}
